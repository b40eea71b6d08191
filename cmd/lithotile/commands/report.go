package commands

import (
	"fmt"
	"io"
	"time"

	"go.trai.ch/lithotile/internal/app"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/lithotile/internal/ui/output"
	"go.trai.ch/lithotile/internal/ui/style"
)

// newProgressPrinter prints one line per finished image with the time since
// the batch started.
func newProgressPrinter(w io.Writer) ports.ProgressSink {
	start := time.Now()
	return ports.ProgressFunc(func(p domain.Progress) {
		if !p.IsPreparationPhase || p.CurrentImageName == "" {
			return
		}
		_, _ = fmt.Fprintf(w, "%s %s %s %s\n",
			style.Muted.Render(fmt.Sprintf("[%d/%d]", p.CompletedImages, p.TotalImages)),
			style.Active.Render(),
			p.CurrentImageName,
			style.Muted.Render(output.Elapsed(time.Since(start))),
		)
	})
}

func printBatch(w io.Writer, res domain.BatchResult) {
	for _, job := range res.Jobs {
		line := fmt.Sprintf("%s %s %s", style.ForJob(job.Status).Render(), job.Name,
			style.Muted.Render(fmt.Sprintf("%d/%d tiles", job.CompletedTiles, job.TotalTiles)))
		if job.Err != nil && job.Status == domain.JobFailed {
			line += " " + style.Failed.Text(job.Err.Error())
		}
		_, _ = fmt.Fprintln(w, line)
	}
	_, _ = fmt.Fprintf(w, "%s prepared %d, cached %d, failed %d, cancelled %d of %d\n",
		style.Heading.Render("summary"),
		res.Prepared, res.Cached, res.Failed, res.Cancelled, res.Total)
}

func printStatus(w io.Writer, statuses []app.ImageStatus) {
	for _, st := range statuses {
		switch {
		case st.Err != nil:
			_, _ = fmt.Fprintf(w, "%s %s %s\n", style.Failed.Render(), st.Name, style.Failed.Text(st.Err.Error()))
		case st.Cached:
			_, _ = fmt.Fprintf(w, "%s %s %s\n", style.Done.Render(), st.Name,
				style.Muted.Render(fmt.Sprintf("%s, %d levels, %s", output.Size(st.Width, st.Height), st.Levels, st.Fingerprint)))
		default:
			_, _ = fmt.Fprintf(w, "%s %s %s\n", style.Idle.Render(), st.Name,
				style.Muted.Render(fmt.Sprintf("%s, %d levels, not prepared", output.Size(st.Width, st.Height), st.Levels)))
		}
	}
}

func printStats(w io.Writer, stats domain.CacheStats) {
	_, _ = fmt.Fprintf(w, "%s %d tiles, %s", style.Heading.Render("cache"), stats.TileCount, output.Bytes(stats.TotalBytes))
	if stats.BudgetBytes > 0 {
		_, _ = fmt.Fprintf(w, " of %s", output.Bytes(stats.BudgetBytes))
	}
	_, _ = fmt.Fprintln(w)
}

func printFrame(w io.Writer, frame domain.Frame) {
	counts := make(map[domain.TileKind]int)
	for _, rt := range frame.Tiles {
		counts[rt.Kind]++
		line := fmt.Sprintf("%s %-12s %-11s %s", style.ForTile(rt.Kind).Render(), rt.ImageID, rt.Kind, rt.Key)
		if rt.Kind == domain.TilePlaceholder && rt.Tile != nil {
			line += style.Muted.Render(fmt.Sprintf(" from %s %v", rt.Tile.Key, rt.SourceRect))
		}
		if rt.Err != nil {
			line += " " + style.Failed.Text(rt.Err.Error())
		}
		_, _ = fmt.Fprintln(w, line)
	}
	for _, warn := range frame.Warnings {
		_, _ = fmt.Fprintf(w, "%s %s\n", style.Warn.Render(), warn)
	}
	_, _ = fmt.Fprintf(w, "%s ready %d, placeholder %d, missing %d, error %d, deferred %d\n",
		style.Heading.Render("frame"),
		counts[domain.TileReady], counts[domain.TilePlaceholder], counts[domain.TileMissing], counts[domain.TileError],
		frame.Deferred)
}
