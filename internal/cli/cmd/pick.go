package cmd

import (
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vidgrab/internal/pipeline"
	"vidgrab/internal/ui"
	"vidgrab/internal/util"
	"vidgrab/internal/util/format"
)

func newPickCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "pick <url>",
		Short:         "Choose a quality interactively and download it",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPick(cmd, args[0])
		},
	}
}

func runPick(cmd *cobra.Command, rawURL string) error {
	cfg := settings(cmd)
	url, err := util.NormalizeURL(rawURL)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	// Failures are shown by the picker; log lines would corrupt the screen.
	quiet := log.New()
	quiet.SetOutput(io.Discard)
	svc, err := newService(cfg.Download, pipeline.WithLogger(quiet))
	if err != nil {
		return err
	}
	if err := util.EnsureDir(cfg.Download.OutDir); err != nil {
		return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("failed to create output dir: %w", err)}
	}

	res, err := ui.Run(cmd.Context(), svc, url, ui.Options{
		OutDir:    cfg.Download.OutDir,
		UseAria2c: cfg.Download.UseAria2c,
	})
	if errors.Is(err, ui.ErrAborted) {
		return nil
	}
	if err != nil {
		return downloadExit(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s (%s)\n", res.File.Path, format.FormatSize(float64(res.File.Bytes)))
	return nil
}
