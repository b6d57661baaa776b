package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"vidgrab/internal/progress"
)

// teaReporter forwards pipeline events into the program's event channel.
// Terminal events block until delivered or the program is gone.
type teaReporter struct {
	ch   chan tea.Msg
	done <-chan struct{}
}

func (r teaReporter) send(msg tea.Msg) {
	select {
	case r.ch <- msg:
	case <-r.done:
	}
}

func (r teaReporter) Update(u progress.Update) {
	if u.Stage.Terminal() {
		r.send(jobUpdateMsg{U: u})
		return
	}
	select {
	case r.ch <- jobUpdateMsg{U: u}:
	default:
	}
}

func (r teaReporter) Log(l progress.Log) {
	select {
	case r.ch <- jobLogMsg{L: l}:
	default:
	}
}

func (r teaReporter) Result(res progress.Result) {
	r.send(jobResultMsg{R: res})
}

// download tracks the running job for the progress view.
type download struct {
	stage      progress.Stage
	percent    float64 // -1 means unknown
	status     string
	speed      string
	bytes      int64
	total      int64
	lastLine   string
	outputPath string
}

func (d *download) apply(u progress.Update) {
	if u.Stage != "" {
		d.stage = u.Stage
	}
	if u.Percent >= 0 {
		d.percent = u.Percent
	}
	if u.Message != "" {
		d.status = u.Message
	}
	if u.Speed != nil {
		d.speed = *u.Speed
	}
	if u.Bytes != nil {
		d.bytes = *u.Bytes
	}
	if u.TotalBytes != nil {
		d.total = *u.TotalBytes
	}
	if u.Stage == progress.StagePostprocessing {
		d.speed = ""
	}
}
