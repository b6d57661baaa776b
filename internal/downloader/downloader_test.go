package downloader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"vidgrab/internal/model"
	"vidgrab/internal/progress"
	"vidgrab/internal/util"
)

type recordingReporter struct {
	mu      sync.Mutex
	updates []progress.Update
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

func (r *recordingReporter) Result(progress.Result) {}

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name    string
		req     model.DownloadRequest
		want    []string
		notWant []string
		wantErr bool
	}{
		{
			name: "exact",
			req:  model.DownloadRequest{URL: "u", Mode: model.ModeExact, FormatID: "137", OutDir: "/out"},
			want: []string{"-f 137+bestaudio/best", "--merge-output-format mp4", "--recode-video mp4", "--no-playlist", "%(title)s_%(height)sp%(fps)s.%(ext)s", "-- u"},
		},
		{
			name:    "capped",
			req:     model.DownloadRequest{URL: "u", Mode: model.ModeCapped, MaxHeight: 720, MaxFPS: 30, OutDir: "/out"},
			want:    []string{"bestvideo[height<=720][fps<=30][ext=mp4]", "--merge-output-format mp4"},
			notWant: []string{"--recode-video"},
		},
		{
			name: "mp3 default bitrate",
			req:  model.DownloadRequest{URL: "u", Mode: model.ModeAudioMP3, OutDir: "/out"},
			want: []string{"-f bestaudio/best", "-x --audio-format mp3 --audio-quality 320K", "%(title)s.%(ext)s"},
		},
		{
			name: "mp3 192",
			req:  model.DownloadRequest{URL: "u", Mode: model.ModeAudioMP3, AudioBitrateKbps: 192, OutDir: "/out"},
			want: []string{"--audio-quality 192K"},
		},
		{
			name:    "original audio",
			req:     model.DownloadRequest{URL: "u", Mode: model.ModeAudioOriginal, OutDir: "/out"},
			want:    []string{"-f bestaudio/best"},
			notWant: []string{"--audio-format", "--merge-output-format"},
		},
		{name: "bad bitrate", req: model.DownloadRequest{URL: "u", Mode: model.ModeAudioMP3, AudioBitrateKbps: 100}, wantErr: true},
		{name: "missing url", req: model.DownloadRequest{Mode: model.ModeAudioMP3}, wantErr: true},
		{name: "exact without id", req: model.DownloadRequest{URL: "u", Mode: model.ModeExact}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := BuildArgs(tt.req, Config{})
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", args)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			joined := strings.Join(args, " ")
			for _, w := range tt.want {
				if !strings.Contains(joined, w) {
					t.Errorf("args %q missing %q", joined, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(joined, w) {
					t.Errorf("args %q unexpectedly contain %q", joined, w)
				}
			}
		})
	}
}

func TestDownloadUsesPrintedPath(t *testing.T) {
	outDir := t.TempDir()
	final := filepath.Join(outDir, "Sample_1080p30.mp4")
	rep := &recordingReporter{}

	r := &scriptedRunner{
		onRun: func(spec util.CmdSpec) {
			if spec.Dir != outDir {
				t.Errorf("Dir = %q, want %q", spec.Dir, outDir)
			}
			if err := os.WriteFile(final, []byte("0123456789"), 0o644); err != nil {
				t.Fatal(err)
			}
			// a decoy that is newer but not the printed file
			_ = os.WriteFile(filepath.Join(outDir, "zzz.webm"), []byte("x"), 0o644)
		},
		lines: []string{
			"[youtube] abc: Downloading webpage",
			"[download]  50.0% of 10.00MiB at  1.00MiB/s ETA 00:05",
			"[download] 100% of 10.00MiB in 00:00:10 at 1.00MiB/s",
			`[Merger] Merging formats into "` + final + `"`,
			filepathMarker + final,
		},
	}

	req := model.DownloadRequest{URL: "https://youtu.be/x", Mode: model.ModeExact, FormatID: "137", OutDir: outDir}
	got, err := Download(context.Background(), req, Harden(Config{}, Hardening{}), Options{
		DownloaderPath: "yt-dlp",
		Runner:         r,
		Reporter:       rep,
		JobID:          "job-1",
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if got.Path != final || got.Bytes != 10 {
		t.Errorf("Download() = %+v", got)
	}

	var sawPost, sawHalf bool
	for _, u := range rep.updates {
		if u.JobID != "job-1" {
			t.Errorf("update for wrong job: %+v", u)
		}
		if u.Stage == progress.StagePostprocessing {
			sawPost = true
		}
		if u.Percent == 50 {
			sawHalf = true
		}
	}
	if !sawPost || !sawHalf {
		t.Errorf("missing updates: post=%v half=%v (%d updates)", sawPost, sawHalf, len(rep.updates))
	}
	for _, l := range rep.logs {
		if strings.HasPrefix(l.Line, filepathMarker) {
			t.Errorf("path marker leaked into logs: %q", l.Line)
		}
	}
	args := strings.Join(r.calls[0].Args, " ")
	if !strings.Contains(args, "--retries 10") || !strings.Contains(args, "--print after_move:") {
		t.Errorf("args = %q", args)
	}
}

func TestDownloadFallsBackToNewestFile(t *testing.T) {
	outDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(outDir, "older.mp3"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := &scriptedRunner{onRun: func(util.CmdSpec) {
		_ = os.WriteFile(filepath.Join(outDir, "Song.mp3"), []byte("new song"), 0o644)
	}}

	req := model.DownloadRequest{URL: "u", Mode: model.ModeAudioMP3, OutDir: outDir}
	got, err := Download(context.Background(), req, Config{}, Options{DownloaderPath: "yt-dlp", Runner: r})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Base(got.Path) != "Song.mp3" || got.Bytes != int64(len("new song")) {
		t.Errorf("Download() = %+v", got)
	}
}

func TestDownloadLogsToInjectedLogger(t *testing.T) {
	outDir := t.TempDir()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	r := &scriptedRunner{
		onRun: func(util.CmdSpec) {
			_ = os.WriteFile(filepath.Join(outDir, "Clip.mp4"), []byte("clip"), 0o644)
		},
		lines: []string{filepathMarker + filepath.Join(outDir, "gone.mp4")},
	}
	req := model.DownloadRequest{URL: "https://youtu.be/x", Mode: model.ModeCapped, OutDir: outDir}
	got, err := Download(context.Background(), req, Config{}, Options{DownloaderPath: "yt-dlp", Runner: r, Log: logger})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Base(got.Path) != "Clip.mp4" {
		t.Errorf("Download() = %+v", got)
	}
	if r.calls[0].Log != log.FieldLogger(logger) {
		t.Error("subprocess spec did not carry the logger")
	}
	entry := hook.LastEntry()
	if entry == nil || !strings.Contains(entry.Message, "printed output path missing") {
		t.Errorf("last entry = %+v", entry)
	}
}

func TestDownloadFailures(t *testing.T) {
	outDir := t.TempDir()

	r := &scriptedRunner{stderr: "ERROR: [youtube] x: Sign in to confirm your age", err: errors.New("exit status 1")}
	req := model.DownloadRequest{URL: "u", Mode: model.ModeAudioOriginal, OutDir: outDir}
	_, err := Download(context.Background(), req, Config{}, Options{DownloaderPath: "yt-dlp", Runner: r})
	if !errors.Is(err, ErrAgeRestricted) {
		t.Errorf("err = %v, want ErrAgeRestricted", err)
	}

	r = &scriptedRunner{}
	_, err = Download(context.Background(), req, Config{}, Options{DownloaderPath: "yt-dlp", Runner: r})
	if !errors.Is(err, ErrNoOutput) {
		t.Errorf("err = %v, want ErrNoOutput", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r = &scriptedRunner{err: errors.New("signal: killed")}
	_, err = Download(ctx, req, Config{}, Options{DownloaderPath: "yt-dlp", Runner: r})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
