package cmd

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"vidgrab/internal/credentials"
	"vidgrab/internal/model"
	"vidgrab/internal/pipeline"
	"vidgrab/internal/progress"
	"vidgrab/internal/util/deps"
)

// newService locates yt-dlp and builds the pipeline for opts.
func newService(opts model.CLIOptions, extra ...pipeline.Option) (*pipeline.Service, error) {
	dl, err := deps.FindDownloader(opts.DLBinary)
	if err != nil {
		return nil, &ExitError{Code: ExitMissingDep, Err: err}
	}
	if _, err := deps.FindFFmpeg(opts.FFmpegDir); err != nil {
		log.WithError(err).Warn("ffmpeg not found; merging and mp3 conversion will fail")
	}
	base := []pipeline.Option{
		pipeline.WithDownloaderPath(dl),
		pipeline.WithFFmpegDir(opts.FFmpegDir),
		pipeline.WithCredentials(credentialProvider(opts)),
		pipeline.WithReporter(progress.Discard),
	}
	return pipeline.NewService(append(base, extra...)...), nil
}

// credentialProvider turns the cookie flags into a provider chain.
// An explicit cookie file wins over browser cookies.
func credentialProvider(opts model.CLIOptions) credentials.Provider {
	var chain credentials.Chain
	if opts.CookieFile != "" {
		chain = append(chain, credentials.CookieFile{Path: opts.CookieFile})
	}
	if spec := strings.TrimSpace(opts.CookiesFromBrowser); spec != "" {
		name, profile, _ := strings.Cut(spec, ":")
		chain = append(chain, credentials.Browser{Name: name, Profile: profile})
	}
	if len(chain) == 0 {
		return credentials.None{}
	}
	return chain
}
