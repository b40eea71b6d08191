// Package detector picks the progress renderer for the current terminal.
package detector

import (
	"os"
	"strings"

	"go.trai.ch/zerr"
	"golang.org/x/term"
)

// OutputMode represents the rendering mode for batch progress.
type OutputMode int

const (
	// ModeAuto automatically detects the appropriate mode.
	ModeAuto OutputMode = iota
	// ModeTUI forces the interactive progress view.
	ModeTUI
	// ModeLinear forces line-per-event progress output.
	ModeLinear
)

// ErrUnknownMode is returned for an output flag that names no mode.
var ErrUnknownMode = zerr.New("unknown output mode")

func (m OutputMode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModeLinear:
		return "linear"
	default:
		return "auto"
	}
}

// DetectEnvironment returns the recommended output mode. Anything but an
// interactive terminal outside CI gets linear output.
func DetectEnvironment() OutputMode {
	return detect(term.IsTerminal(int(os.Stdout.Fd())), os.Getenv("CI")) //nolint:gosec // Fd fits in int
}

func detect(isTTY bool, ci string) OutputMode {
	isCI := ci == "true" || ci == "1"
	if !isTTY || isCI {
		return ModeLinear
	}
	return ModeTUI
}

// ResolveMode applies the user's --output flag to the detected mode. The
// flag is one of auto, tui, linear or its alias ci; empty means auto.
func ResolveMode(autoDetected OutputMode, flag string) (OutputMode, error) {
	switch strings.ToLower(flag) {
	case "tui":
		return ModeTUI, nil
	case "linear", "ci":
		return ModeLinear, nil
	case "auto", "":
		return autoDetected, nil
	default:
		return autoDetected, zerr.With(zerr.Wrap(ErrUnknownMode, "resolve output mode"), "output", flag)
	}
}
