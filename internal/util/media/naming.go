package media

import (
	"fmt"
	"path/filepath"
	"strings"

	"vidgrab/internal/model"
	"vidgrab/internal/util"
)

// yt-dlp output templates.
const (
	VideoTemplate = "%(title)s_%(height)sp%(fps)s.%(ext)s"
	AudioTemplate = "%(title)s.%(ext)s"
)

// OutputTemplate returns the yt-dlp -o template for mode rooted at outDir.
func OutputTemplate(outDir string, mode model.DownloadMode) string {
	tmpl := VideoTemplate
	if mode.IsAudio() {
		tmpl = AudioTemplate
	}
	if outDir == "" {
		return tmpl
	}
	return filepath.Join(outDir, tmpl)
}

// AttachmentName builds the filename offered to browsers for a finished file:
// the sanitized title plus the real extension, or the file's own base name.
func AttachmentName(title, path string) string {
	ext := filepath.Ext(path)
	title = strings.TrimSpace(title)
	if title == "" {
		return util.SanitizeFilename(filepath.Base(path))
	}
	return util.SanitizeFilename(title) + ext
}

// Describe renders a one-line summary like "Title (uploader, 3:25)".
func Describe(info model.MediaInfo) string {
	var parts []string
	if info.Uploader != "" {
		parts = append(parts, info.Uploader)
	}
	if info.DurationSec != nil {
		parts = append(parts, Duration(*info.DurationSec))
	}
	title := info.Title
	if title == "" {
		title = info.ID
	}
	if len(parts) == 0 {
		return title
	}
	return fmt.Sprintf("%s (%s)", title, strings.Join(parts, ", "))
}

// Duration formats seconds as m:ss or h:mm:ss.
func Duration(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int64(sec + 0.5)
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
