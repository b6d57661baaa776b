package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"vidgrab/internal/formats"
	"vidgrab/internal/model"
	"vidgrab/internal/progress"
	"vidgrab/internal/util"
	"vidgrab/internal/util/media"
)

// Options controls how yt-dlp is invoked.
type Options struct {
	DownloaderPath string            // Path to yt-dlp or youtube-dl
	Runner         util.CmdRunner    // nil = os/exec
	Reporter       progress.Reporter // nil = discard
	JobID          string
	Log            log.FieldLogger   // nil = standard logger
}

func (o Options) logger() log.FieldLogger {
	if o.Log != nil {
		return o.Log
	}
	return log.StandardLogger()
}

func (o Options) runner() util.CmdRunner {
	if o.Runner != nil {
		return o.Runner
	}
	return util.NewDefaultRunner()
}

func (o Options) reporter() progress.Reporter {
	if o.Reporter != nil {
		return o.Reporter
	}
	return progress.Discard
}

// filepathMarker prefixes the final path printed after post-processing.
const filepathMarker = "VIDGRAB_FILEPATH:"

// BuildArgs returns the yt-dlp arguments for req, without the binary.
func BuildArgs(req model.DownloadRequest, cfg Config) ([]string, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, errors.New("url is required")
	}
	sel, err := formats.SelectorForRequest(req)
	if err != nil {
		return nil, err
	}

	args := cfg.Args()
	args = append(args,
		"-f", sel,
		"-o", media.OutputTemplate(req.OutDir, req.Mode),
		"--no-playlist",
		"--newline",
		"--progress",
		"--no-simulate",
		"--print", "after_move:"+filepathMarker+"%(filepath)s",
	)

	switch req.Mode {
	case model.ModeExact:
		args = append(args, "--merge-output-format", "mp4", "--recode-video", "mp4")
	case model.ModeCapped:
		args = append(args, "--merge-output-format", "mp4")
	case model.ModeAudioMP3:
		kbps := req.AudioBitrateKbps
		if kbps == 0 {
			kbps = model.DefaultAudioBitrate
		}
		if !model.ValidMP3Bitrate(kbps) {
			return nil, fmt.Errorf("unsupported mp3 bitrate %d kbps", kbps)
		}
		args = append(args, "-x", "--audio-format", "mp3", "--audio-quality", strconv.Itoa(kbps)+"K")
	case model.ModeAudioOriginal:
		// Keep the source codec and container.
	}

	return append(args, "--", req.URL), nil
}

// Download runs yt-dlp for req and returns the file it produced.
// Progress and subprocess output are forwarded to opts.Reporter.
func Download(ctx context.Context, req model.DownloadRequest, cfg Config, opts Options) (model.DownloadedFile, error) {
	if opts.DownloaderPath == "" {
		return model.DownloadedFile{}, errors.New("downloader path is required")
	}
	if req.OutDir == "" {
		return model.DownloadedFile{}, errors.New("output directory is required")
	}
	if err := util.EnsureDir(req.OutDir); err != nil {
		return model.DownloadedFile{}, fmt.Errorf("create output dir: %w", err)
	}
	args, err := BuildArgs(req, cfg)
	if err != nil {
		return model.DownloadedFile{}, err
	}

	before, err := util.ListNames(req.OutDir)
	if err != nil {
		return model.DownloadedFile{}, fmt.Errorf("list output dir: %w", err)
	}

	rep := opts.reporter()
	rep.Update(progress.Update{JobID: opts.JobID, Stage: progress.StageDownloading, Percent: 0, Message: "Starting download"})

	var (
		mu      sync.Mutex
		printed string
	)
	handle := func(stream progress.LogStream) func(string) {
		return func(line string) {
			if p, ok := strings.CutPrefix(strings.TrimSpace(line), filepathMarker); ok {
				mu.Lock()
				printed = p
				mu.Unlock()
				return
			}
			rep.Log(progress.Log{JobID: opts.JobID, Stream: stream, Line: line})
			if u, ok := ParseProgress(line, opts.JobID); ok {
				rep.Update(u)
			} else if u, ok := ParsePostprocess(line, opts.JobID); ok {
				rep.Update(u)
			}
		}
	}

	res, runErr := opts.runner().Run(ctx, util.CmdSpec{
		Path:       opts.DownloaderPath,
		Args:       args,
		Dir:        req.OutDir,
		StdoutLine: handle(progress.StreamStdout),
		StderrLine: handle(progress.StreamStderr),
		Log:        opts.logger(),
	})
	if ctx.Err() != nil {
		return model.DownloadedFile{}, ctx.Err()
	}
	if runErr != nil {
		return model.DownloadedFile{}, classify("download", res.Stderr, runErr)
	}

	mu.Lock()
	path := printed
	mu.Unlock()
	if path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(req.OutDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			opts.logger().WithField("path", path).Debug("printed output path missing, scanning output dir")
			path = ""
		}
	}
	if path == "" {
		path, err = NewestNewFile(req.OutDir, before)
		if err != nil {
			return model.DownloadedFile{}, fmt.Errorf("locate downloaded file: %w", err)
		}
	}

	st, err := os.Stat(path)
	if err != nil {
		return model.DownloadedFile{}, fmt.Errorf("stat downloaded file: %w", err)
	}
	return model.DownloadedFile{Path: path, Bytes: st.Size()}, nil
}
