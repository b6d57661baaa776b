package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"vidgrab/internal/model"
	"vidgrab/internal/progress"
	"vidgrab/internal/util/media"
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("vidgrab"))
	b.WriteString("\n")

	switch m.phase {
	case phaseFetching:
		b.WriteString(m.spinner.View() + " " + m.styles.Faint.Render("Fetching formats for "+truncate(m.url, 60)))
		b.WriteString("\n")
	case phasePicking:
		b.WriteString(m.viewInfo())
		b.WriteString(m.viewOptions())
	case phaseDownloading, phaseDone:
		b.WriteString(m.viewInfo())
		b.WriteString(m.viewDownload())
	case phaseFailed:
		if m.inspect.Info.Title != "" {
			b.WriteString(m.viewInfo())
		}
		b.WriteString(m.styles.Error.Render("✗ " + m.err.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewInfo() string {
	info := m.inspect.Info
	var b strings.Builder
	b.WriteString(m.styles.Header.Render(media.Describe(info)))
	b.WriteString("\n")
	if info.AgeLimit > 0 {
		b.WriteString(m.styles.Warning.Render("Age restricted"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) viewOptions() string {
	var b strings.Builder
	opts := m.inspect.Options
	if len(opts) == 0 {
		b.WriteString(m.styles.Faint.Render("  No video formats listed"))
		b.WriteString("\n")
	}
	for i, o := range opts {
		if i == m.cursor {
			b.WriteString(m.styles.Cursor.Render("> ") + m.styles.Selected.Render(o.Label))
		} else {
			b.WriteString("  " + m.styles.Info.Render(o.Label))
		}
		b.WriteString("\n")
	}

	var keys []string
	if len(opts) > 0 {
		keys = append(keys, "↑/↓ choose", "enter download")
	}
	keys = append(keys,
		fmt.Sprintf("b best ≤%dp", model.DefaultMaxHeight),
		fmt.Sprintf("m mp3 %dk", m.opts.AudioBitrate),
		"o original audio",
		"q quit",
	)
	if m.opts.UseAria2c && !m.inspect.AcceleratorAvailable {
		b.WriteString(m.styles.Warning.Render("aria2c not found; downloading without it"))
		b.WriteString("\n")
	}
	b.WriteString("\n" + m.styles.Subtitle.Render(strings.Join(keys, " • ")))
	b.WriteString("\n")
	return b.String()
}

func (m Model) viewDownload() string {
	d := m.dl
	var b strings.Builder
	b.WriteString(m.styles.stage(d.stage).Render(string(d.stage)))
	b.WriteString("\n")
	if d.percent >= 0 && d.percent <= 100 {
		b.WriteString(fmt.Sprintf("%s %5.1f%%", m.bar.ViewAs(d.percent/100.0), d.percent))
	} else {
		b.WriteString(m.spinner.View() + " " + m.styles.Faint.Render("working"))
	}
	b.WriteString("\n")

	var parts []string
	if d.status != "" {
		parts = append(parts, d.status)
	}
	if d.total > 0 && d.phaseBytes() {
		parts = append(parts, humanize.IBytes(uint64(d.bytes))+" / "+humanize.IBytes(uint64(d.total)))
	}
	if d.speed != "" {
		parts = append(parts, d.speed)
	}
	b.WriteString(m.styles.Box.Render(m.styles.Info.Render(strings.Join(parts, " • "))))
	b.WriteString("\n")

	if m.phase == phaseDone && d.outputPath != "" {
		b.WriteString("\n" + m.styles.Success.Render("Saved to: "+d.outputPath))
		b.WriteString("\n")
	}
	return b.String()
}

// phaseBytes reports whether byte counts are meaningful for the current stage.
func (d download) phaseBytes() bool {
	return d.stage == progress.StageDownloading && d.bytes >= 0
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if n <= 0 || len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
