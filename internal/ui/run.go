package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"vidgrab/internal/pipeline"
)

// Run shows the picker for url, downloads the chosen option and returns it.
func Run(ctx context.Context, svc *pipeline.Service, url string, opts Options) (pipeline.Result, error) {
	m := NewModel(ctx, svc, url, opts)
	prog := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := prog.Run()
	m.cancel()
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("tui: %w", err)
	}
	fm, ok := final.(Model)
	if !ok {
		return pipeline.Result{}, fmt.Errorf("tui: unexpected model %T", final)
	}
	return fm.Result()
}
