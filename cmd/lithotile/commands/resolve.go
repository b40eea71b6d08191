package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/lithotile/internal/app"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/zerr"
)

func (c *CLI) newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <project.yaml | images...>",
		Short: "Resolve one viewport and list the tiles it draws",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zoom, _ := cmd.Flags().GetFloat64("zoom")
			rect, _ := cmd.Flags().GetString("rect")

			visible, err := parseRect(rect)
			if err != nil {
				return err
			}

			frame, err := c.app.Resolve(cmd.Context(), args, app.ResolveOptions{Zoom: zoom, Visible: visible})
			if err != nil {
				return err
			}
			printFrame(cmd.OutOrStdout(), frame)
			return nil
		},
	}
	cmd.Flags().Float64P("zoom", "z", 1, "Screen pixels per reference pixel")
	cmd.Flags().StringP("rect", "r", "", "Visible rectangle in reference pixels as x,y,w,h (default: whole reference image)")
	return cmd
}

// parseRect reads "x,y,w,h". An empty string yields an empty rectangle.
func parseRect(s string) (domain.Rect, error) {
	if strings.TrimSpace(s) == "" {
		return domain.Rect{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.Rect{}, zerr.With(zerr.Wrap(domain.ErrInvalidViewport, "rect must be x,y,w,h"), "rect", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.Rect{}, zerr.With(zerr.Wrap(domain.ErrInvalidViewport, fmt.Sprintf("invalid rect component %q", p)), "rect", s)
		}
		v[i] = f
	}
	return domain.RectXYWH(v[0], v[1], v[2], v[3]), nil
}
