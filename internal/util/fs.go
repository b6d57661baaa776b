package util

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MakeTempWorkdir creates a unique directory under base (os.TempDir()/vidgrab when empty).
func MakeTempWorkdir(base, prefix string) (string, error) {
	if base == "" {
		base = filepath.Join(os.TempDir(), "vidgrab")
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", err
	}
	return os.MkdirTemp(base, prefix+"-")
}

// EnsureDir creates the directory path if it does not exist.
func EnsureDir(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(filepath.Clean(path), 0o755)
}

// ListNames returns the set of entry names in dir. A missing dir yields an empty set.
func ListNames(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]struct{}{}, nil
		}
		return nil, err
	}
	names := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		names[e.Name()] = struct{}{}
	}
	return names, nil
}

// SanitizeFilename cleans a string to be safe as a download filename:
// forbidden characters become underscores, runs of underscores collapse,
// and the result is truncated to 200 runes.
func SanitizeFilename(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "untitled"
	}
	forbidden := `/\:*?"<>|` + "\x00"
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(forbidden, r) {
			return '_'
		}
		return r
	}, s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	s = strings.Trim(s, ". _")

	const maxRunes = 200
	if utf8.RuneCountInString(s) > maxRunes {
		rs := []rune(s)
		ext := filepath.Ext(s)
		if n := utf8.RuneCountInString(ext); n > 0 && n < 16 {
			s = string(rs[:maxRunes-n]) + ext
		} else {
			s = string(rs[:maxRunes])
		}
	}
	if s == "" {
		return "untitled"
	}
	return s
}
