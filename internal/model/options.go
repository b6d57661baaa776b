package model

// DownloadMode selects how a download request is turned into a yt-dlp format selector.
type DownloadMode string

const (
	ModeExact         DownloadMode = "exact"          // a specific QualityOption + best audio
	ModeCapped        DownloadMode = "capped"         // best video under a height/fps cap
	ModeAudioMP3      DownloadMode = "audio-mp3"      // best audio converted to mp3
	ModeAudioOriginal DownloadMode = "audio-original" // best audio, untouched container
)

// Valid reports whether m is a known mode.
func (m DownloadMode) Valid() bool {
	switch m {
	case ModeExact, ModeCapped, ModeAudioMP3, ModeAudioOriginal:
		return true
	}
	return false
}

// IsAudio reports whether the mode produces an audio-only file.
func (m DownloadMode) IsAudio() bool {
	return m == ModeAudioMP3 || m == ModeAudioOriginal
}

// MP3Bitrates lists the accepted mp3 bitrates in kbps.
var MP3Bitrates = []int{128, 192, 256, 320}

// ValidMP3Bitrate reports whether kbps is one of MP3Bitrates.
func ValidMP3Bitrate(kbps int) bool {
	for _, b := range MP3Bitrates {
		if b == kbps {
			return true
		}
	}
	return false
}

// Defaults used by the capped mode and mp3 extraction.
const (
	DefaultMaxHeight    = 1080
	DefaultMaxFPS       = 60
	DefaultAudioBitrate = 320
)

// DownloadRequest is everything needed to start one download.
type DownloadRequest struct {
	URL  string
	Mode DownloadMode

	FormatID string // ModeExact

	MaxHeight int // ModeCapped
	MaxFPS    int // ModeCapped

	AudioBitrateKbps int // ModeAudioMP3

	OutDir         string
	UseAccelerator bool
}

// CLIOptions holds user-configurable runtime options as parsed from flags and config.
type CLIOptions struct {
	OutDir             string
	Verbose            bool
	DLBinary           string // Optional explicit path to yt-dlp
	FFmpegDir          string // Directory holding ffmpeg/ffprobe; empty uses PATH
	UseAria2c          bool
	CookieFile         string
	CookiesFromBrowser string // "auto" picks the first detected browser
	NoUI               bool
}

// DownloadedFile is the outcome of a finished download.
type DownloadedFile struct {
	Path  string
	Bytes int64
}
