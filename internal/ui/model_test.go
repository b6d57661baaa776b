package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"vidgrab/internal/model"
	"vidgrab/internal/pipeline"
	"vidgrab/internal/progress"
	"vidgrab/internal/util"
)

type metaRunner struct{ json string }

func (r metaRunner) Run(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	return util.CmdResult{Stdout: []byte(r.json)}, nil
}

const metaJSON = `{"id":"v","title":"Clip","uploader":"Chan","duration":125,"formats":[
 {"format_id":"136","vcodec":"avc1","acodec":"none","height":720,"fps":30,"ext":"mp4","filesize":1048576},
 {"format_id":"137","vcodec":"avc1","acodec":"none","height":1080,"fps":30,"ext":"mp4","filesize":2097152}
]}`

func newTestModel(t *testing.T) Model {
	t.Helper()
	svc := pipeline.NewService(
		pipeline.WithDownloaderPath("yt-dlp"),
		pipeline.WithRunner(metaRunner{json: metaJSON}),
		pipeline.WithAcceleratorProbe(func() bool { return false }),
	)
	m := NewModel(context.Background(), svc, "https://youtu.be/v", Options{OutDir: t.TempDir()})
	t.Cleanup(m.cancel)
	return m
}

func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func inspected(t *testing.T, m Model) Model {
	t.Helper()
	msg := m.inspectCmd()()
	im, ok := msg.(inspectedMsg)
	if !ok || im.Err != nil {
		t.Fatalf("inspect = %#v", msg)
	}
	m, _ = step(t, m, im)
	return m
}

func TestPickerFlow(t *testing.T) {
	m := newTestModel(t)
	if !strings.Contains(m.View(), "Fetching formats") {
		t.Errorf("initial view = %q", m.View())
	}

	m = inspected(t, m)
	view := m.View()
	for _, want := range []string{"Clip (Chan, 2:05)", "1080p30 mp4 avc1 ~2.0 MB", "720p30 mp4 avc1 ~1.0 MB"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m, _ = step(t, m, key("down"))
	m, _ = step(t, m, key("down")) // stays on the last row
	if m.cursor != 1 {
		t.Fatalf("cursor = %d", m.cursor)
	}
	m, cmd := step(t, m, key("enter"))
	if cmd == nil || m.phase != phaseDownloading {
		t.Fatalf("enter did not start download: phase %v", m.phase)
	}
	if m.req.Mode != model.ModeExact || m.req.FormatID != "136" || m.req.URL != "https://youtu.be/v" {
		t.Errorf("req = %+v", m.req)
	}

	total, done := int64(10<<20), int64(5<<20)
	m, _ = step(t, m, jobUpdateMsg{U: progress.Update{Stage: progress.StageDownloading, Percent: 50, Bytes: &done, TotalBytes: &total}})
	if view := m.View(); !strings.Contains(view, "50.0%") || !strings.Contains(view, "5.0 MiB / 10 MiB") {
		t.Errorf("progress view = %q", view)
	}

	m, cmd = step(t, m, jobResultMsg{R: progress.Result{OutputPath: "/out/Clip_720p30.mp4", Bytes: 42}})
	if cmd == nil || m.phase != phaseDone {
		t.Fatalf("result did not finish: phase %v", m.phase)
	}
	if !strings.Contains(m.View(), "Saved to: /out/Clip_720p30.mp4") {
		t.Errorf("final view = %q", m.View())
	}
	res, err := m.Result()
	if err != nil || res.File.Path != "/out/Clip_720p30.mp4" || res.File.Bytes != 42 {
		t.Errorf("Result = %+v, %v", res, err)
	}
}

func TestPickerNoFormats(t *testing.T) {
	m := newTestModel(t)
	m, _ = step(t, m, inspectedMsg{In: pipeline.Inspection{Info: model.MediaInfo{Title: "Song"}, Options: []model.QualityOption{}}})
	if !strings.Contains(m.View(), "No video formats listed") {
		t.Errorf("view = %q", m.View())
	}

	m, cmd := step(t, m, key("enter"))
	if cmd != nil || m.phase != phasePicking {
		t.Fatal("enter started a download with no formats")
	}

	m, _ = step(t, m, key("m"))
	if m.phase != phaseDownloading || m.req.Mode != model.ModeAudioMP3 || m.req.AudioBitrateKbps != 320 {
		t.Errorf("mp3 shortcut: phase %v req %+v", m.phase, m.req)
	}
}

func TestQuitCancels(t *testing.T) {
	m := newTestModel(t)
	m = inspected(t, m)
	m, cmd := step(t, m, key("q"))
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if m.ctx.Err() == nil {
		t.Error("context not cancelled")
	}
	if _, err := m.Result(); !errors.Is(err, ErrAborted) {
		t.Errorf("Result err = %v", err)
	}
}

func TestFailures(t *testing.T) {
	m := newTestModel(t)
	boom := errors.New("metadata failed: boom")
	m, _ = step(t, m, inspectedMsg{Err: boom})
	if m.phase != phaseFailed || !strings.Contains(m.View(), "boom") {
		t.Errorf("view = %q", m.View())
	}
	if _, err := m.Result(); !errors.Is(err, boom) {
		t.Errorf("Result err = %v", err)
	}

	m = inspected(t, newTestModel(t))
	m, _ = step(t, m, key("o"))
	m, _ = step(t, m, jobResultMsg{R: progress.Result{Err: boom}})
	if _, err := m.Result(); !errors.Is(err, boom) || m.req.Mode != model.ModeAudioOriginal {
		t.Errorf("Result err = %v, req %+v", err, m.req)
	}
}
