package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"vidgrab/internal/progress"
)

// textReporter prints progress for `get`. On a terminal the download line is
// redrawn in place; otherwise only stage changes are printed.
type textReporter struct {
	w   io.Writer
	tty bool

	mu        sync.Mutex
	stage     progress.Stage
	lastDraw  time.Time
	lineDrawn bool
}

func newTextReporter(w io.Writer, tty bool) *textReporter {
	return &textReporter{w: w, tty: tty}
}

func (r *textReporter) Update(u progress.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.Stage != r.stage {
		r.stage = u.Stage
		if u.Stage != progress.StageDownloading || !r.tty {
			r.endLine()
			if msg := stageLine(u); msg != "" {
				fmt.Fprintln(r.w, msg)
			}
			return
		}
	}
	if !r.tty || u.Stage != progress.StageDownloading {
		return
	}
	if time.Since(r.lastDraw) < 100*time.Millisecond && u.Percent < 100 {
		return
	}
	r.lastDraw = time.Now()
	r.lineDrawn = true
	fmt.Fprintf(r.w, "\r\033[K%s", downloadLine(u))
}

func (r *textReporter) Log(progress.Log) {}

func (r *textReporter) Result(progress.Result) {
	r.finish()
}

// finish terminates a redrawn progress line.
func (r *textReporter) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endLine()
}

func (r *textReporter) endLine() {
	if r.lineDrawn {
		fmt.Fprintln(r.w)
		r.lineDrawn = false
	}
}

func stageLine(u progress.Update) string {
	switch u.Stage {
	case progress.StageDownloading:
		return "Downloading…"
	case progress.StagePostprocessing:
		return "Post-processing: " + u.Message
	case progress.StageError, progress.StageCompleted:
		return ""
	}
	return u.Message
}

func downloadLine(u progress.Update) string {
	parts := []string{fmt.Sprintf("%5.1f%%", u.Percent)}
	if u.Bytes != nil && u.TotalBytes != nil && *u.Bytes >= 0 && *u.TotalBytes > 0 {
		parts = append(parts, humanize.IBytes(uint64(*u.Bytes))+" / "+humanize.IBytes(uint64(*u.TotalBytes)))
	}
	if u.Speed != nil {
		parts = append(parts, *u.Speed)
	}
	if u.ETA != nil {
		parts = append(parts, "ETA "+u.ETA.Round(time.Second).String())
	}
	return strings.Join(parts, "  ")
}
