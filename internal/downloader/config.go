package downloader

import (
	"sort"
	"strconv"

	"vidgrab/internal/credentials"
)

// Accelerator settings applied when aria2c is requested and present.
const (
	AcceleratorName = "aria2c"
	AcceleratorArgs = "-x 16 -k 1M --file-allocation=none"
)

// Config is the set of yt-dlp options a run is started with.
// The zero value means "yt-dlp defaults".
type Config struct {
	Retries                  int
	FragmentRetries          int
	SkipUnavailableFragments bool
	ConcurrentFragments      int
	RestrictFilenames        bool
	WindowsFilenames         bool

	FFmpegLocation string

	CookieFile         string
	CookiesFromBrowser string
	Headers            map[string]string

	ExternalDownloader     string
	ExternalDownloaderArgs string
}

// Hardening carries the environment-dependent inputs of Harden.
type Hardening struct {
	FFmpegDir            string
	Credential           credentials.Credential
	UseAccelerator       bool
	AcceleratorAvailable bool
}

// Harden returns a copy of cfg with the reliability settings applied.
// It performs no I/O; the accelerator probe and credential resolution happen
// before the call. Keys not touched here keep their value from cfg.
func Harden(cfg Config, h Hardening) Config {
	out := cfg
	out.Headers = cloneHeaders(cfg.Headers)

	out.Retries = 10
	out.FragmentRetries = 10
	out.SkipUnavailableFragments = true
	out.ConcurrentFragments = 8
	out.RestrictFilenames = true
	out.WindowsFilenames = true

	if h.FFmpegDir != "" {
		out.FFmpegLocation = h.FFmpegDir
	}

	switch h.Credential.Kind {
	case credentials.KindCookieFile:
		out.CookieFile = h.Credential.CookieFile
	case credentials.KindBrowser:
		out.CookiesFromBrowser = h.Credential.Browser
	case credentials.KindOAuth:
		if out.Headers == nil {
			out.Headers = make(map[string]string, len(h.Credential.Headers))
		}
		for k, v := range h.Credential.Headers {
			out.Headers[k] = v
		}
	}

	if h.UseAccelerator && h.AcceleratorAvailable {
		out.ExternalDownloader = AcceleratorName
		out.ExternalDownloaderArgs = AcceleratorArgs
	}
	return out
}

func cloneHeaders(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Args renders the config as yt-dlp command-line flags in a stable order.
func (c Config) Args() []string {
	var args []string
	if c.Retries > 0 {
		args = append(args, "--retries", strconv.Itoa(c.Retries))
	}
	if c.FragmentRetries > 0 {
		args = append(args, "--fragment-retries", strconv.Itoa(c.FragmentRetries))
	}
	if c.SkipUnavailableFragments {
		args = append(args, "--skip-unavailable-fragments")
	}
	if c.ConcurrentFragments > 0 {
		args = append(args, "--concurrent-fragments", strconv.Itoa(c.ConcurrentFragments))
	}
	if c.RestrictFilenames {
		args = append(args, "--restrict-filenames")
	}
	if c.WindowsFilenames {
		args = append(args, "--windows-filenames")
	}
	if c.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", c.FFmpegLocation)
	}
	if c.CookieFile != "" {
		args = append(args, "--cookies", c.CookieFile)
	}
	if c.CookiesFromBrowser != "" {
		args = append(args, "--cookies-from-browser", c.CookiesFromBrowser)
	}
	keys := make([]string, 0, len(c.Headers))
	for k := range c.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--add-header", k+":"+c.Headers[k])
	}
	if c.ExternalDownloader != "" {
		args = append(args, "--downloader", c.ExternalDownloader)
		if c.ExternalDownloaderArgs != "" {
			args = append(args, "--downloader-args", c.ExternalDownloader+":"+c.ExternalDownloaderArgs)
		}
	}
	return args
}

// HasCredential reports whether cfg carries any authentication option.
func (c Config) HasCredential() bool {
	return c.CookieFile != "" || c.CookiesFromBrowser != "" || len(c.Headers) > 0
}
