package main

import (
	"io"

	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"

	"github.com/joseph-ayodele/automations/internal/entity"
)

type barLine struct {
	label    string
	progress entity.Progress
}

// renderBars draws one static bar per line. Jobs without a known total get no bar and
// incomplete bars are aborted in place so Wait returns.
func renderBars(w io.Writer, lines []barLine) {
	p := mpb.New(mpb.WithOutput(w), mpb.WithWidth(40))
	for _, l := range lines {
		if l.progress.Total <= 0 {
			continue
		}
		bar := p.AddBar(int64(l.progress.Total),
			mpb.PrependDecorators(
				decor.Name(l.label, decor.WCSyncSpaceR),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Percentage(decor.WC{W: 5}),
			),
		)
		bar.SetCurrent(int64(l.progress.Processed))
		if l.progress.Processed < l.progress.Total {
			bar.Abort(false)
		}
	}
	p.Wait()
}
