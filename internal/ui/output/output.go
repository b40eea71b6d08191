// Package output holds terminal writers and the number formats used in
// command output.
package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muesli/termenv"
)

// Profile reports the color profile for terminal output. NO_COLOR wins over
// whatever the terminal advertises.
func Profile() termenv.Profile {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// New wraps w for styled writes. The output is treated as a terminal so
// piping keeps colors unless NO_COLOR is set. A nil w writes to stderr.
func New(w io.Writer, opts ...termenv.OutputOption) *termenv.Output {
	if w == nil {
		w = os.Stderr
	}
	return termenv.NewOutput(w, append(opts, termenv.WithProfile(Profile()), termenv.WithTTY(true))...)
}

const binaryUnits = "KMGTPE"

// Bytes formats a size with binary units, for example "1.5 KiB".
func Bytes(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	v := float64(n)
	i := -1
	for v >= 1024 && i < len(binaryUnits)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %ciB", v, binaryUnits[i])
}

// Size formats image dimensions as WxH.
func Size(width, height int) string {
	return fmt.Sprintf("%dx%d", width, height)
}

// Elapsed formats a duration for progress lines: milliseconds below one
// second, tenths of a second below a minute and whole seconds above.
func Elapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}
