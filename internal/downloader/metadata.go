package downloader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"vidgrab/internal/model"
	"vidgrab/internal/util"
)

// FetchInfo runs yt-dlp --dump-json for url and decodes the result leniently.
func FetchInfo(ctx context.Context, url string, cfg Config, opts Options) (model.MediaInfo, error) {
	if opts.DownloaderPath == "" {
		return model.MediaInfo{}, errors.New("downloader path is required")
	}
	args := append(cfg.Args(),
		"--dump-json",
		"--no-playlist",
		"--no-warnings",
		url,
	)
	res, runErr := opts.runner().Run(ctx, util.CmdSpec{
		Path:          opts.DownloaderPath,
		Args:          args,
		CaptureStdout: true,
		Log:           opts.logger(),
	})
	if ctx.Err() != nil {
		return model.MediaInfo{}, ctx.Err()
	}
	if runErr != nil && len(bytes.TrimSpace(res.Stdout)) == 0 {
		return model.MediaInfo{}, classify("metadata", res.Stderr, runErr)
	}
	return DecodeInfo(res.Stdout)
}

// DecodeInfo parses yt-dlp JSON output. When stdout holds several JSON
// documents the last one carrying an id wins.
func DecodeInfo(data []byte) (model.MediaInfo, error) {
	data = bytes.TrimSpace(data)
	if raw, err := decodeObject(data); err == nil {
		return infoFromMap(raw), nil
	}
	lines := bytes.Split(data, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 {
			continue
		}
		raw, err := decodeObject(line)
		if err == nil && str(raw["id"]) != "" {
			return infoFromMap(raw), nil
		}
	}
	return model.MediaInfo{}, fmt.Errorf("parse metadata JSON: no media object in %d bytes of output", len(data))
}

func decodeObject(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("null document")
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON document")
	}
	return raw, nil
}

func infoFromMap(raw map[string]any) model.MediaInfo {
	info := model.MediaInfo{
		ID:           str(raw["id"]),
		Title:        str(raw["title"]),
		Uploader:     firstNonEmpty(str(raw["uploader"]), str(raw["channel"])),
		WebpageURL:   str(raw["webpage_url"]),
		DurationSec:  num(raw["duration"]),
		ThumbnailURL: str(raw["thumbnail"]),
	}
	if age := integer(raw["age_limit"]); age != nil {
		info.AgeLimit = *age
	}

	list, _ := raw["formats"].([]any)
	for _, item := range list {
		f, ok := item.(map[string]any)
		if !ok {
			continue
		}
		info.Variants = append(info.Variants, variantFromMap(f))
	}
	return info
}

func variantFromMap(f map[string]any) model.Variant {
	id := str(f["format_id"])
	if id == "" {
		id = str(f["format"])
	}
	v := model.Variant{
		FormatID:           id,
		VideoCodec:         str(f["vcodec"]),
		AudioCodec:         str(f["acodec"]),
		Height:             integer(f["height"]),
		FrameRate:          num(f["fps"]),
		Extension:          str(f["ext"]),
		AverageBitrateKbps: num(f["tbr"]),
	}
	if n := num(f["filesize"]); n != nil {
		v.ExactSizeBytes = model.Ptr(int64(*n))
	}
	if n := num(f["filesize_approx"]); n != nil {
		v.ApproxSizeBytes = model.Ptr(int64(*n))
	}
	return v
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// num accepts JSON numbers and numeric strings; anything else is unknown.
func num(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case json.Number:
		x, err := t.Float64()
		if err != nil {
			return nil
		}
		f = x
	case float64:
		f = t
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = x
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func integer(v any) *int {
	f := num(v)
	if f == nil || *f > math.MaxInt32 || *f < math.MinInt32 {
		return nil
	}
	return model.Ptr(int(math.Round(*f)))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
