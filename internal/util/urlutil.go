package util

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformOther   Platform = "other"
)

// DetectPlatform parses a raw URL string, adding https:// when the scheme is missing,
// and reports whether it targets YouTube. Other http(s) hosts are accepted as
// PlatformOther since yt-dlp supports many sites.
func DetectPlatform(raw string) (Platform, *url.URL, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err == nil && (u.Scheme == "" || u.Host == "") {
		if u2, e2 := url.Parse("https://" + raw); e2 == nil {
			u = u2
		}
	}
	if err != nil || u.Host == "" || !strings.Contains(u.Host, ".") {
		return "", nil, fmt.Errorf("invalid URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", nil, fmt.Errorf("unsupported URL scheme %q in %q", u.Scheme, raw)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be", "youtube-nocookie.com":
		return PlatformYouTube, u, nil
	default:
		return PlatformOther, u, nil
	}
}

// NormalizeURL returns the parsed form of raw (scheme added when missing).
func NormalizeURL(raw string) (string, error) {
	_, u, err := DetectPlatform(raw)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

var (
	watchIDRe = regexp.MustCompile(`[?&]v=([\w-]{11})`)
	shortIDRe = regexp.MustCompile(`youtu\.be/([\w-]{11})(?:[?&/#]|$)`)
	pathIDRe  = regexp.MustCompile(`/(?:shorts|embed|live|v)/([\w-]{11})(?:[?&/#]|$)`)
)

// YouTubeVideoID extracts the 11-character video id from common YouTube URL shapes.
// It is only used for display and file naming, never as a job key.
func YouTubeVideoID(raw string) (string, bool) {
	for _, re := range []*regexp.Regexp{watchIDRe, shortIDRe, pathIDRe} {
		if m := re.FindStringSubmatch(raw); m != nil {
			return m[1], true
		}
	}
	return "", false
}
