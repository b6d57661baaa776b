package model

// CodecNone is the sentinel yt-dlp reports for a stream without that track.
const CodecNone = "none"

// MediaInfo describes one media item as reported by the metadata source.
// It is produced fresh per query and never persisted.
type MediaInfo struct {
	ID           string
	Title        string
	Uploader     string
	WebpageURL   string
	DurationSec  *float64 // nil if unknown
	ThumbnailURL string
	AgeLimit     int
	Variants     []Variant
}

// Variant is one encoded stream alternative.
// Optional numerics are nil when the source did not report them.
type Variant struct {
	FormatID           string
	VideoCodec         string // "" when absent, CodecNone when audio-only
	AudioCodec         string // "" when absent, CodecNone when video-only
	Height             *int
	FrameRate          *float64
	Extension          string
	ExactSizeBytes     *int64
	ApproxSizeBytes    *int64
	AverageBitrateKbps *float64
}

// HasVideo reports whether the variant carries a real video codec.
func (v Variant) HasVideo() bool {
	return v.VideoCodec != "" && v.VideoCodec != CodecNone
}

// HasAudio reports whether the variant carries a real audio codec.
func (v Variant) HasAudio() bool {
	return v.AudioCodec != "" && v.AudioCodec != CodecNone
}

// QualityOption is one selectable row offered to the user.
type QualityOption struct {
	ID                 string   `json:"id"`
	Label              string   `json:"label"`
	Height             *int     `json:"height"`
	FrameRate          *float64 `json:"fps"`
	Extension          string   `json:"ext"`
	VideoCodec         string   `json:"vcodec"`
	EstimatedSizeBytes *float64 `json:"size_bytes"`
}

// Ptr returns a pointer to v. Handy for optional fields.
func Ptr[T any](v T) *T {
	return &v
}
