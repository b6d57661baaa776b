package downloader

import (
	"math"
	"strconv"
	"strings"
	"time"

	"vidgrab/internal/progress"
)

// ParseProgress parses yt-dlp progress output lines.
// Returns a progress.Update if the line contains download progress, and ok=true.
func ParseProgress(line, jobID string) (u progress.Update, ok bool) {
	// [download]  45.2% of ~10.00MiB at  1.50MiB/s ETA 00:04 (frag 3/20)
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[download]") {
		return progress.Update{}, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "[download]"))

	idx := strings.Index(rest, "%")
	if idx <= 0 {
		// Destination:, "has already been downloaded", etc.
		return progress.Update{}, false
	}
	percent, err := strconv.ParseFloat(strings.TrimSpace(rest[:idx]), 64)
	if err != nil {
		return progress.Update{}, false
	}
	percent = math.Max(0, math.Min(100, percent))

	u = progress.Update{
		JobID:   jobID,
		Stage:   progress.StageDownloading,
		Percent: percent,
		Message: "Downloading",
	}

	fields := strings.Fields(rest[idx+1:])
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "of":
			if i+1 < len(fields) {
				if fields[i+1] == "~" && i+2 < len(fields) {
					i++
				}
				if total, ok := parseSize(strings.TrimPrefix(fields[i+1], "~")); ok {
					u.TotalBytes = &total
					done := int64(float64(total) * percent / 100)
					u.Bytes = &done
				}
				i++
			}
		case "at":
			if i+1 < len(fields) && !strings.HasPrefix(fields[i+1], "Unknown") {
				s := fields[i+1]
				u.Speed = &s
				i++
			}
		case "ETA":
			if i+1 < len(fields) {
				if d, err := parseETA(fields[i+1]); err == nil {
					u.ETA = &d
				}
				i++
			}
		}
	}
	return u, true
}

var postprocessors = map[string]string{
	"[Merger]":             "Merging formats",
	"[ExtractAudio]":       "Extracting audio",
	"[VideoConvertor]":     "Converting video",
	"[VideoRemuxer]":       "Remuxing video",
	"[FixupM3u8]":          "Fixing container",
	"[FixupM4a]":           "Fixing container",
	"[Metadata]":           "Writing metadata",
	"[EmbedThumbnail]":     "Embedding thumbnail",
	"[MoveFiles]":          "Moving files",
	"[ModifyChapters]":     "Modifying chapters",
	"[SponsorBlock]":       "Removing segments",
	"[FFmpegMetadata]":     "Writing metadata",
	"[FFmpegExtractAudio]": "Extracting audio",
}

// ParsePostprocess recognizes yt-dlp post-processor lines.
func ParsePostprocess(line, jobID string) (progress.Update, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") {
		return progress.Update{}, false
	}
	end := strings.Index(line, "]")
	if end < 0 {
		return progress.Update{}, false
	}
	msg, ok := postprocessors[line[:end+1]]
	if !ok {
		return progress.Update{}, false
	}
	return progress.Update{
		JobID:   jobID,
		Stage:   progress.StagePostprocessing,
		Percent: -1,
		Message: msg,
	}, true
}

var sizeUnits = map[string]float64{
	"B":   1,
	"KiB": 1 << 10,
	"MiB": 1 << 20,
	"GiB": 1 << 30,
	"TiB": 1 << 40,
	"KB":  1e3,
	"MB":  1e6,
	"GB":  1e9,
	"TB":  1e12,
}

// parseSize parses yt-dlp sizes like "10.00MiB" or "512.3KiB".
func parseSize(s string) (int64, bool) {
	i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if i <= 0 {
		return 0, false
	}
	mult, ok := sizeUnits[s[i:]]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, false
	}
	return int64(n * mult), true
}

// parseETA parses duration strings like "00:04", "01:23:45", etc.
func parseETA(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, strconv.ErrSyntax
	}
	var d time.Duration
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, err
		}
		d = d*60 + time.Duration(n)
	}
	return d * time.Second, nil
}
