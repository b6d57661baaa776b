package downloader

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoOutput is returned when a finished run left no recognizable file.
var ErrNoOutput = errors.New("no output file found")

// NewestNewFile returns the most recently modified regular file in dir whose
// name is not in before. Partial downloads are ignored. Equal modification
// times are broken by container preference.
func NewestNewFile(dir string, before map[string]struct{}) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	type cand struct {
		path string
		mod  time.Time
	}
	var cands []cand
	for _, e := range entries {
		name := e.Name()
		if _, seen := before[name]; seen || e.IsDir() || isPartial(name) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		cands = append(cands, cand{path: filepath.Join(dir, name), mod: info.ModTime()})
	}
	if len(cands) == 0 {
		return "", ErrNoOutput
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if !cands[i].mod.Equal(cands[j].mod) {
			return cands[i].mod.After(cands[j].mod)
		}
		pi, pj := extPriority(filepath.Ext(cands[i].path)), extPriority(filepath.Ext(cands[j].path))
		if pi != pj {
			return pi < pj
		}
		return cands[i].path < cands[j].path
	})
	return cands[0].path, nil
}

func isPartial(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range []string{".part", ".ytdl", ".temp", ".tmp"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return strings.Contains(lower, ".part-frag")
}

// extPriority returns a priority score for file extensions (lower = better).
// Prefers common playable containers, then audio.
func extPriority(ext string) int {
	switch strings.ToLower(ext) {
	case ".mp4":
		return 0
	case ".mkv":
		return 1
	case ".webm":
		return 2
	case ".mov":
		return 3
	case ".mp3":
		return 4
	case ".m4a":
		return 5
	case ".opus":
		return 6
	default:
		return 100
	}
}
