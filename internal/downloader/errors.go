package downloader

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAgeRestricted means the site requires a signed-in, age-verified session.
	ErrAgeRestricted = errors.New("age-restricted content requires authentication")
	// ErrUnavailable means the media is private, removed or blocked.
	ErrUnavailable = errors.New("media unavailable")
)

// Error wraps a failed yt-dlp run with the last meaningful stderr line.
type Error struct {
	Op     string // "metadata" or "download"
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s failed: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// classify maps yt-dlp stderr output onto the sentinel errors.
func classify(op string, stderr []byte, runErr error) error {
	text := strings.ToLower(string(stderr))
	reason := lastErrorLine(string(stderr))

	var kind error
	switch {
	case strings.Contains(text, "sign in to confirm your age"),
		strings.Contains(text, "age-restricted"),
		strings.Contains(text, "age restricted"):
		kind = ErrAgeRestricted
	case strings.Contains(text, "video unavailable"),
		strings.Contains(text, "private video"),
		strings.Contains(text, "has been removed"):
		kind = ErrUnavailable
	}
	if kind != nil {
		return &Error{Op: op, Reason: reason, Err: fmt.Errorf("%w: %v", kind, runErr)}
	}
	return &Error{Op: op, Reason: reason, Err: runErr}
}

// lastErrorLine returns the last "ERROR:" line, or the last non-empty line.
func lastErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	last := ""
	for i := len(lines) - 1; i >= 0; i-- {
		l := strings.TrimSpace(lines[i])
		if l == "" {
			continue
		}
		if strings.HasPrefix(l, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(l, "ERROR:"))
		}
		if last == "" {
			last = l
		}
	}
	return last
}
