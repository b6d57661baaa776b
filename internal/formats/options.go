// Package formats turns the raw variant list of a media item into ranked,
// labeled quality options and the yt-dlp selector expressions that fetch them.
package formats

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"vidgrab/internal/model"
	"vidgrab/internal/util/format"
)

// BuildQualityOptions returns the video-only variants of info as labeled options,
// ordered by height then frame rate (highest first) and deduplicated.
//
// Malformed variants are dropped rather than reported. The result is never nil.
// It is a pure function of its input and safe for concurrent use.
func BuildQualityOptions(info model.MediaInfo) []model.QualityOption {
	options := make([]model.QualityOption, 0, len(info.Variants))
	for _, v := range info.Variants {
		id := strings.TrimSpace(v.FormatID)
		if id == "" || !v.HasVideo() || v.HasAudio() {
			continue
		}
		opt := model.QualityOption{
			ID:                 id,
			Height:             positiveInt(v.Height),
			FrameRate:          positiveFloat(v.FrameRate),
			Extension:          v.Extension,
			VideoCodec:         v.VideoCodec,
			EstimatedSizeBytes: EstimateSize(v, info.DurationSec),
		}
		opt.Label = Label(opt)
		options = append(options, opt)
	}

	sort.SliceStable(options, func(i, j int) bool {
		hi, hj := rankHeight(options[i]), rankHeight(options[j])
		if hi != hj {
			return hi > hj
		}
		return rankFPS(options[i]) > rankFPS(options[j])
	})

	seen := make(map[dedupKey]struct{}, len(options))
	deduped := options[:0]
	for _, opt := range options {
		k := keyOf(opt)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		deduped = append(deduped, opt)
	}
	return deduped
}

// Label renders the display text of an option, e.g. "1080p30 mp4 avc1 ~44.8 MB".
func Label(opt model.QualityOption) string {
	var b strings.Builder
	if opt.Height != nil {
		b.WriteString(strconv.Itoa(*opt.Height))
	} else {
		b.WriteString(format.Unknown)
	}
	b.WriteByte('p')
	b.WriteString(fpsText(opt.FrameRate))
	b.WriteByte(' ')
	b.WriteString(orUnknown(opt.Extension))
	b.WriteByte(' ')
	b.WriteString(orUnknown(opt.VideoCodec))
	b.WriteString(" ~")
	b.WriteString(format.FormatSizePtr(opt.EstimatedSizeBytes))
	return b.String()
}

func fpsText(fps *float64) string {
	if fps == nil {
		return format.Unknown
	}
	f := *fps
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func orUnknown(s string) string {
	if s == "" {
		return format.Unknown
	}
	return s
}

func positiveInt(p *int) *int {
	if p == nil || *p <= 0 {
		return nil
	}
	v := *p
	return &v
}

func positiveFloat(p *float64) *float64 {
	if p == nil || !(*p > 0) || math.IsInf(*p, 0) {
		return nil
	}
	v := *p
	return &v
}

func rankHeight(o model.QualityOption) int {
	if o.Height == nil {
		return 0
	}
	return *o.Height
}

func rankFPS(o model.QualityOption) float64 {
	if o.FrameRate == nil {
		return 0
	}
	return *o.FrameRate
}

type dedupKey struct {
	id        string
	height    int
	hasHeight bool
	fps       float64
	hasFPS    bool
	ext       string
	vcodec    string
}

func keyOf(o model.QualityOption) dedupKey {
	k := dedupKey{id: o.ID, ext: o.Extension, vcodec: o.VideoCodec}
	if o.Height != nil {
		k.height, k.hasHeight = *o.Height, true
	}
	if o.FrameRate != nil {
		k.fps, k.hasFPS = *o.FrameRate, true
	}
	return k
}
