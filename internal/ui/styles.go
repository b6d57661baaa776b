package ui

import (
	"github.com/charmbracelet/lipgloss"

	"vidgrab/internal/progress"
)

type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Header   lipgloss.Style
	Info     lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Faint    lipgloss.Style
	Box      lipgloss.Style
	Spinner  lipgloss.Style
	Cursor   lipgloss.Style
	Selected lipgloss.Style
	Stages   map[progress.Stage]lipgloss.Style
}

func defaultStyles() Styles {
	base := lipgloss.NewStyle()
	meta := base.Foreground(lipgloss.Color("#60A5FA"))
	return Styles{
		Title:    base.Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		Subtitle: base.Faint(true),
		Header:   base.Bold(true),
		Info:     base.Foreground(lipgloss.Color("#D1D5DB")),
		Success:  base.Foreground(lipgloss.Color("#22C55E")),
		Error:    base.Foreground(lipgloss.Color("#EF4444")),
		Warning:  base.Foreground(lipgloss.Color("#F59E0B")),
		Faint:    base.Faint(true),
		Box:      base.Padding(0, 1),
		Spinner:  base.Foreground(lipgloss.Color("#22D3EE")),
		Cursor:   base.Foreground(lipgloss.Color("#7D56F4")).Bold(true),
		Selected: base.Foreground(lipgloss.Color("#FFFFFF")).Bold(true),
		Stages: map[progress.Stage]lipgloss.Style{
			progress.StageQueued:         meta,
			progress.StageMetadata:       meta,
			progress.StageDownloading:    base.Foreground(lipgloss.Color("#06B6D4")),
			progress.StagePostprocessing: base.Foreground(lipgloss.Color("#D946EF")),
			progress.StageCompleted:      base.Foreground(lipgloss.Color("#22C55E")),
			progress.StageError:          base.Foreground(lipgloss.Color("#EF4444")),
		},
	}
}

// stage picks the colour for a stage label.
func (s Styles) stage(st progress.Stage) lipgloss.Style {
	if style, ok := s.Stages[st]; ok {
		return style
	}
	return s.Info
}
