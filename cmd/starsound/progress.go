package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"starsound/internal/services/ffmpeg"
	"starsound/internal/transcoding"
)

// buildProgress renders split and conversion progress for interactive runs
// and falls back to one line per finished file when stdout is not a
// terminal. Callbacks arrive on a single goroutine, so no locking is needed.
type buildProgress struct {
	out         io.Writer
	interactive bool

	splitBar *progressbar.ProgressBar

	bar      *progressbar.ProgressBar
	percents map[int]float64
}

func newBuildProgress(out io.Writer) *buildProgress {
	return &buildProgress{
		out:         out,
		interactive: writerIsTerminal(out),
		percents:    make(map[int]float64),
	}
}

func writerIsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p *buildProgress) SplitProgress(update ffmpeg.Progress) {
	if !p.interactive {
		return
	}
	if p.splitBar == nil {
		p.splitBar = progressbar.NewOptions64(100,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("splitting"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	percent := update.Percent
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	p.splitBar.Set64(int64(percent))
}

func (p *buildProgress) ConversionEvent(ev transcoding.Event) {
	if p.splitBar != nil {
		p.splitBar.Finish()
		p.splitBar = nil
	}
	if !p.interactive {
		if ev.Kind == transcoding.EventFinished && ev.Result != nil {
			name := filepath.Base(ev.Job.OutputPath)
			if ev.Result.Err != nil {
				fmt.Fprintf(p.out, "[%d/%d] %s: failed: %v\n", ev.Index, ev.Total, name, ev.Result.Err)
			} else {
				fmt.Fprintf(p.out, "[%d/%d] %s: done in %s\n", ev.Index, ev.Total, name, formatElapsed(ev.Result.Elapsed))
			}
		}
		return
	}

	if p.bar == nil {
		p.bar = progressbar.NewOptions64(int64(ev.Total)*100,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("converting"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	switch ev.Kind {
	case transcoding.EventStarted:
		p.bar.Describe(fmt.Sprintf("converting %d/%d %s", ev.Index, ev.Total, filepath.Base(ev.Job.InputPath)))
	case transcoding.EventProgress:
		percent := ev.Progress.Percent
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		p.percents[ev.Index] = percent
		p.bar.Set64(p.sum())
	case transcoding.EventFinished:
		p.percents[ev.Index] = 100
		p.bar.Set64(p.sum())
	}
}

func (p *buildProgress) sum() int64 {
	var total float64
	for _, percent := range p.percents {
		total += percent
	}
	return int64(total)
}

// Finish clears any live bar so summary output starts on a clean line.
func (p *buildProgress) Finish() {
	if p.splitBar != nil {
		p.splitBar.Finish()
		p.splitBar = nil
	}
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}
