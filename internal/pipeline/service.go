// Package pipeline orchestrates the inspect → harden → download workflow.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"vidgrab/internal/credentials"
	"vidgrab/internal/downloader"
	"vidgrab/internal/formats"
	"vidgrab/internal/model"
	"vidgrab/internal/progress"
	"vidgrab/internal/util"
	"vidgrab/internal/util/deps"
	"vidgrab/internal/util/format"
)

// Service wires credentials, hardening and the downloader together.
type Service struct {
	dlPath      string
	ffmpegDir   string
	runner      util.CmdRunner
	reporter    progress.Reporter
	jobID       string
	creds       credentials.Provider
	accelerator func() bool
	log         log.FieldLogger
}

// Option configures a Service.
type Option func(*Service)

// WithDownloaderPath sets the downloader (yt-dlp/youtube-dl) binary path.
func WithDownloaderPath(p string) Option {
	return func(s *Service) {
		s.dlPath = p
	}
}

// WithFFmpegDir sets the directory yt-dlp should load ffmpeg from.
func WithFFmpegDir(dir string) Option {
	return func(s *Service) {
		s.ffmpegDir = dir
	}
}

// WithRunner injects a custom command runner (useful for testing).
func WithRunner(r util.CmdRunner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithReporter attaches a progress reporter.
func WithReporter(rp progress.Reporter) Option {
	return func(s *Service) {
		s.reporter = rp
	}
}

// WithJobID sets the job ID associated with reporter events.
func WithJobID(id string) Option {
	return func(s *Service) {
		s.jobID = id
	}
}

// WithCredentials sets the credential provider. Failures degrade to no credential.
func WithCredentials(p credentials.Provider) Option {
	return func(s *Service) {
		s.creds = p
	}
}

// WithAcceleratorProbe replaces the aria2c availability check.
func WithAcceleratorProbe(fn func() bool) Option {
	return func(s *Service) {
		s.accelerator = fn
	}
}

// WithLogger sets the logger failures are reported to.
func WithLogger(l log.FieldLogger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// NewService constructs a new Service with the provided options.
func NewService(opts ...Option) *Service {
	s := &Service{}
	for _, o := range opts {
		o(s)
	}
	if s.runner == nil {
		s.runner = util.NewDefaultRunner()
	}
	if s.reporter == nil {
		s.reporter = progress.Discard
	}
	if s.creds == nil {
		s.creds = credentials.None{}
	}
	if s.accelerator == nil {
		s.accelerator = deps.AcceleratorAvailable
	}
	if s.log == nil {
		s.log = log.StandardLogger()
	}
	return s
}

// With returns a copy of s with extra options applied.
func (s *Service) With(opts ...Option) *Service {
	c := *s
	for _, o := range opts {
		o(&c)
	}
	return &c
}

// Inspection is the outcome of Inspect.
type Inspection struct {
	Info                 model.MediaInfo
	Options              []model.QualityOption
	AcceleratorAvailable bool
}

// Inspect fetches metadata for url and derives the selectable quality options.
func (s *Service) Inspect(ctx context.Context, url string) (Inspection, error) {
	if s.dlPath == "" {
		return Inspection{}, errors.New("downloader path is required")
	}
	cfg := s.config(ctx, false)
	info, err := downloader.FetchInfo(ctx, url, cfg, s.downloaderOptions())
	if err != nil {
		return Inspection{}, err
	}
	return Inspection{
		Info:                 info,
		Options:              formats.BuildQualityOptions(info),
		AcceleratorAvailable: s.accelerator(),
	}, nil
}

// Result returns the outcome of RunJob.
type Result struct {
	Request model.DownloadRequest
	File    model.DownloadedFile
}

// RunJob downloads one request. It never prints; progress goes to the
// reporter, which also receives exactly one progress.Result.
func (s *Service) RunJob(ctx context.Context, req model.DownloadRequest) (Result, error) {
	res := Result{Request: req}
	if s.dlPath == "" {
		err := errors.New("downloader path is required")
		s.emitFailed(err)
		return res, err
	}

	s.reporter.Update(progress.Update{
		JobID:   s.jobID,
		Stage:   progress.StageMetadata,
		Percent: -1,
		Message: "Preparing download",
	})

	cfg := s.config(ctx, req.UseAccelerator)
	file, err := downloader.Download(ctx, req, cfg, s.downloaderOptions())
	if err != nil {
		err = fmt.Errorf("downloader: %w", err)
		s.jobLog(req).WithError(err).Warn("download failed")
		s.emitFailed(err)
		return res, err
	}
	s.jobLog(req).WithField("path", file.Path).Debug("download finished")
	res.File = file
	s.emitSaved(file)
	return res, nil
}

func (s *Service) jobLog(req model.DownloadRequest) log.FieldLogger {
	fields := log.Fields{"job": s.jobID, "url": req.URL, "mode": req.Mode}
	if id, ok := util.YouTubeVideoID(req.URL); ok {
		fields["video"] = id
	}
	return s.log.WithFields(fields)
}

// config resolves credentials and applies hardening.
func (s *Service) config(ctx context.Context, useAccel bool) downloader.Config {
	cred, _ := credentials.Fallback{Provider: s.creds, Log: s.log}.Resolve(ctx)
	accel := false
	if useAccel {
		accel = s.accelerator()
	}
	return downloader.Harden(downloader.Config{}, downloader.Hardening{
		FFmpegDir:            s.ffmpegDir,
		Credential:           cred,
		UseAccelerator:       useAccel,
		AcceleratorAvailable: accel,
	})
}

func (s *Service) downloaderOptions() downloader.Options {
	return downloader.Options{
		DownloaderPath: s.dlPath,
		Runner:         s.runner,
		Reporter:       s.reporter,
		JobID:          s.jobID,
		Log:            s.log,
	}
}

func (s *Service) emitSaved(f model.DownloadedFile) {
	s.reporter.Update(progress.Update{
		JobID:   s.jobID,
		Stage:   progress.StageCompleted,
		Percent: 100,
		Bytes:   &f.Bytes,
		Message: fmt.Sprintf("Saved: %s (%s)", filepath.Base(f.Path), format.FormatSize(float64(f.Bytes))),
	})
	s.reporter.Result(progress.Result{
		JobID:      s.jobID,
		OutputPath: f.Path,
		Bytes:      f.Bytes,
	})
}

func (s *Service) emitFailed(err error) {
	s.reporter.Update(progress.Update{
		JobID:   s.jobID,
		Stage:   progress.StageError,
		Percent: -1,
		Message: err.Error(),
	})
	s.reporter.Result(progress.Result{JobID: s.jobID, Err: err})
}
