package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"vidgrab/internal/model"
	"vidgrab/internal/util"
)

// maxBody bounds JSON request bodies.
const maxBody = 64 << 10

var errNoURL = errors.New("No URL provided")

// fields reads request values by name regardless of encoding.
type fields func(name string) string

// first returns the first non-empty value among names.
func (f fields) first(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(f(n)); v != "" {
			return v
		}
	}
	return ""
}

// requestFields reads a JSON object body, or form/multipart values otherwise.
func requestFields(c *gin.Context) (fields, error) {
	if !strings.Contains(c.ContentType(), "json") && c.ContentType() != "" {
		return func(name string) string { return c.PostForm(name) }, nil
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	values := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&values); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	return func(name string) string {
		switch v := values[name].(type) {
		case nil:
			return ""
		case string:
			return v
		default:
			return fmt.Sprint(v)
		}
	}, nil
}

// apiKey returns the key sent with the request, from the body or the X-API-Key header.
func apiKey(c *gin.Context, f fields) string {
	if k := f.first("apiKey", "api_key"); k != "" {
		return k
	}
	return strings.TrimSpace(c.GetHeader("X-API-Key"))
}

// downloadRequest maps request fields to a DownloadRequest.
//
// The legacy form sends format=audio|video with quality, fps and
// audioQuality; newer clients send mode plus format_id or caps.
func downloadRequest(f fields) (model.DownloadRequest, error) {
	req := model.DownloadRequest{URL: f.first("url")}
	if req.URL == "" {
		return req, errNoURL
	}
	// Only http(s) page URLs reach yt-dlp; search keywords and file:// do not.
	normalized, err := util.NormalizeURL(req.URL)
	if err != nil {
		return req, err
	}
	req.URL = normalized

	mode := model.DownloadMode(strings.ToLower(f.first("mode")))
	formatID := f.first("format_id")
	switch {
	case mode != "":
	case strings.EqualFold(f.first("format"), "audio"):
		mode = model.ModeAudioMP3
	case formatID != "":
		mode = model.ModeExact
	default:
		mode = model.ModeCapped
	}
	if !mode.Valid() {
		return req, fmt.Errorf("unknown mode %q", mode)
	}
	req.Mode = mode

	switch mode {
	case model.ModeExact:
		if formatID == "" {
			return req, fmt.Errorf("format_id is required for mode %q", mode)
		}
		req.FormatID = formatID
	case model.ModeCapped:
		if req.MaxHeight, err = optionalInt(f.first("quality", "max_height")); err != nil {
			return req, fmt.Errorf("quality: %w", err)
		}
		if req.MaxFPS, err = optionalInt(f.first("fps", "max_fps")); err != nil {
			return req, fmt.Errorf("fps: %w", err)
		}
	case model.ModeAudioMP3:
		kbps, err := optionalInt(strings.TrimSuffix(strings.ToLower(f.first("audio_bitrate", "audioQuality")), "k"))
		if err != nil {
			return req, fmt.Errorf("audio bitrate: %w", err)
		}
		if kbps == 0 {
			kbps = model.DefaultAudioBitrate
		}
		if !model.ValidMP3Bitrate(kbps) {
			return req, fmt.Errorf("unsupported audio bitrate %d kbps", kbps)
		}
		req.AudioBitrateKbps = kbps
	}

	// Server-side downloads use aria2c when it is installed unless the client opts out.
	req.UseAccelerator = true
	if v := f.first("use_aria2c"); v != "" {
		if req.UseAccelerator, err = strconv.ParseBool(v); err != nil {
			return req, fmt.Errorf("use_aria2c: invalid boolean %q", v)
		}
	}
	return req, nil
}

// optionalInt parses a positive integer; empty means 0.
func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return n, nil
}
