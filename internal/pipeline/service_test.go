package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"vidgrab/internal/credentials"
	"vidgrab/internal/downloader"
	"vidgrab/internal/model"
	"vidgrab/internal/progress"
	"vidgrab/internal/util"
)

type recordingReporter struct {
	mu      sync.Mutex
	updates []progress.Update
	results []progress.Result
	logs    []progress.Log
}

func (r *recordingReporter) Update(u progress.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recordingReporter) Log(l progress.Log) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, l)
}

func (r *recordingReporter) Result(res progress.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

type fakeRunner struct {
	t        *testing.T
	dlPath   string
	metaJSON string
	outName  string
	stderr   string
	fail     error

	mu    sync.Mutex
	specs []util.CmdSpec
}

// Run implements util.CmdRunner.Run and simulates yt-dlp behavior.
func (f *fakeRunner) Run(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	f.mu.Lock()
	f.specs = append(f.specs, spec)
	f.mu.Unlock()

	if spec.Path != f.dlPath {
		f.t.Fatalf("unexpected binary %q", spec.Path)
	}
	if f.fail != nil {
		return util.CmdResult{Stderr: []byte(f.stderr), Code: 1, Err: f.fail}, f.fail
	}
	if contains(spec.Args, "--dump-json") {
		return util.CmdResult{Stdout: []byte(f.metaJSON)}, nil
	}

	if spec.Dir == "" {
		f.t.Fatalf("downloader run missing working dir")
	}
	out := filepath.Join(spec.Dir, f.outName)
	if err := os.WriteFile(out, []byte("downloaded"), 0o644); err != nil {
		f.t.Fatalf("failed to create fake downloaded file: %v", err)
	}
	if spec.StdoutLine != nil {
		spec.StdoutLine("[download]  50.0% of 10.00MiB at  1.0MiB/s ETA 00:04")
		spec.StdoutLine("[download] 100.0% of 10.00MiB at  1.0MiB/s ETA 00:00")
		spec.StdoutLine("[Merger] Merging formats into \"" + out + "\"")
	}
	return util.CmdResult{}, nil
}

func (f *fakeRunner) lastArgs() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.specs[len(f.specs)-1].Args, " ")
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

const metaJSON = `{"id":"vid1","title":"Clip","duration":60,"formats":[
 {"format_id":"18","vcodec":"avc1","acodec":"mp4a","height":360,"ext":"mp4"},
 {"format_id":"136","vcodec":"avc1","acodec":"none","height":720,"fps":30,"ext":"mp4","filesize":1048576},
 {"format_id":"137","vcodec":"avc1","acodec":"none","height":1080,"fps":30,"ext":"mp4","tbr":800}
]}`

func TestInspect(t *testing.T) {
	fr := &fakeRunner{t: t, dlPath: "/bin/yt-dlp", metaJSON: metaJSON}
	svc := NewService(
		WithDownloaderPath("/bin/yt-dlp"),
		WithRunner(fr),
		WithAcceleratorProbe(func() bool { return true }),
	)

	in, err := svc.Inspect(context.Background(), "https://youtu.be/vid1")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if !in.AcceleratorAvailable {
		t.Error("AcceleratorAvailable = false")
	}
	if len(in.Options) != 2 {
		t.Fatalf("got %d options, want 2", len(in.Options))
	}
	if in.Options[0].ID != "137" || in.Options[0].Label != "1080p30 mp4 avc1 ~5.7 MB" {
		t.Errorf("first option = %+v", in.Options[0])
	}
	if in.Options[1].Label != "720p30 mp4 avc1 ~1.0 MB" {
		t.Errorf("second option = %+v", in.Options[1])
	}
	if strings.Contains(fr.lastArgs(), "--downloader") {
		t.Error("metadata fetch must not use the accelerator")
	}
}

func TestRunJob(t *testing.T) {
	outDir := t.TempDir()
	cookie := filepath.Join(t.TempDir(), "cookies.txt")
	if err := os.WriteFile(cookie, []byte("# Netscape HTTP Cookie File\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	fr := &fakeRunner{t: t, dlPath: "/bin/yt-dlp", outName: "Clip_1080p30.mp4"}
	rep := &recordingReporter{}
	svc := NewService(
		WithDownloaderPath("/bin/yt-dlp"),
		WithFFmpegDir("/opt/ffmpeg"),
		WithRunner(fr),
		WithReporter(rep),
		WithJobID("job-9"),
		WithCredentials(credentials.CookieFile{Path: cookie}),
		WithAcceleratorProbe(func() bool { return true }),
	)

	req := model.DownloadRequest{
		URL:            "https://youtu.be/vid1",
		Mode:           model.ModeExact,
		FormatID:       "137",
		OutDir:         outDir,
		UseAccelerator: true,
	}
	res, err := svc.RunJob(context.Background(), req)
	if err != nil {
		t.Fatalf("RunJob: %v", err)
	}
	if filepath.Base(res.File.Path) != "Clip_1080p30.mp4" || res.File.Bytes != int64(len("downloaded")) {
		t.Errorf("File = %+v", res.File)
	}

	args := fr.lastArgs()
	for _, want := range []string{
		"-f 137+bestaudio/best",
		"--cookies " + cookie,
		"--ffmpeg-location /opt/ffmpeg",
		"--downloader aria2c",
		"--retries 10",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}

	if len(rep.results) != 1 || rep.results[0].Err != nil || rep.results[0].JobID != "job-9" {
		t.Fatalf("results = %+v", rep.results)
	}
	last := rep.updates[len(rep.updates)-1]
	if last.Stage != progress.StageCompleted || !strings.HasPrefix(last.Message, "Saved: Clip_1080p30.mp4") {
		t.Errorf("last update = %+v", last)
	}
	var sawPost bool
	for _, u := range rep.updates {
		if u.Stage == progress.StagePostprocessing {
			sawPost = true
		}
	}
	if !sawPost {
		t.Error("no postprocessing update")
	}
}

func TestRunJobCredentialFailureDegrades(t *testing.T) {
	fr := &fakeRunner{t: t, dlPath: "yt-dlp", outName: "a.mp3"}
	svc := NewService(
		WithDownloaderPath("yt-dlp"),
		WithRunner(fr),
		WithCredentials(credentials.CookieFile{Path: filepath.Join(t.TempDir(), "missing.txt")}),
		WithAcceleratorProbe(func() bool { return false }),
	)
	req := model.DownloadRequest{URL: "u", Mode: model.ModeAudioMP3, OutDir: t.TempDir(), UseAccelerator: true}
	if _, err := svc.RunJob(context.Background(), req); err != nil {
		t.Fatalf("RunJob: %v", err)
	}
	args := fr.lastArgs()
	if strings.Contains(args, "--cookies") || strings.Contains(args, "--downloader") {
		t.Errorf("unexpected flags in %q", args)
	}
}

func TestRunJobFailureReportsOnce(t *testing.T) {
	fr := &fakeRunner{
		t:      t,
		dlPath: "yt-dlp",
		stderr: "ERROR: [youtube] vid1: Sign in to confirm your age",
		fail:   errors.New("exit status 1"),
	}
	rep := &recordingReporter{}
	svc := NewService(WithDownloaderPath("yt-dlp"), WithRunner(fr), WithReporter(rep), WithJobID("j"))

	_, err := svc.RunJob(context.Background(), model.DownloadRequest{URL: "u", Mode: model.ModeAudioOriginal, OutDir: t.TempDir()})
	if !errors.Is(err, downloader.ErrAgeRestricted) {
		t.Fatalf("err = %v, want ErrAgeRestricted", err)
	}
	if len(rep.results) != 1 || !errors.Is(rep.results[0].Err, downloader.ErrAgeRestricted) {
		t.Errorf("results = %+v", rep.results)
	}
	if last := rep.updates[len(rep.updates)-1]; last.Stage != progress.StageError {
		t.Errorf("last stage = %v", last.Stage)
	}
}

func TestRunJobRequiresDownloader(t *testing.T) {
	rep := &recordingReporter{}
	_, err := NewService(WithReporter(rep)).RunJob(context.Background(), model.DownloadRequest{URL: "u"})
	if err == nil || len(rep.results) != 1 {
		t.Errorf("err = %v, results = %d", err, len(rep.results))
	}
}

func TestPlan(t *testing.T) {
	svc := NewService(
		WithDownloaderPath("yt-dlp"),
		WithCredentials(credentials.Browser{Name: "firefox"}),
		WithAcceleratorProbe(func() bool { return true }),
	)
	p, err := svc.Plan(context.Background(), model.DownloadRequest{
		URL:            "u",
		Mode:           model.ModeCapped,
		MaxHeight:      480,
		MaxFPS:         30,
		OutDir:         "/out",
		UseAccelerator: true,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !p.Accelerated || !p.Authenticated {
		t.Errorf("plan flags = %+v", p)
	}
	if !strings.HasPrefix(p.Selector, "bestvideo[height<=480][fps<=30]") {
		t.Errorf("Selector = %q", p.Selector)
	}
	if !contains(p.Args, "--cookies-from-browser") {
		t.Errorf("Args = %q", p.Args)
	}

	if _, err := svc.Plan(context.Background(), model.DownloadRequest{URL: "u", Mode: "nope"}); err == nil {
		t.Error("expected error for unknown mode")
	}
}
