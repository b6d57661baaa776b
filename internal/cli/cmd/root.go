package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vidgrab/internal/config"
	"vidgrab/internal/downloader"
	"vidgrab/internal/logging"
)

const (
	ExitOK            = 0
	ExitCLIError      = 1
	ExitMissingDep    = 2
	ExitDownloadError = 3
	ExitAuthError     = 4
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

type ctxKey string

const settingsKey ctxKey = "settings"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vidgrab [url]",
		Short: "Pick a quality and download videos with yt-dlp",
		Long: "vidgrab lists the qualities a video is available in, lets you pick one " +
			"(or an MP3/audio-only rip) and downloads it with yt-dlp, hardened with retries " +
			"and optional aria2c acceleration. `vidgrab serve` offers the same from a browser.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.MaximumNArgs(1),
		PersistentPreRunE: loadSettings,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			if !settings(cmd).Download.NoUI && isTerminal() {
				return runPick(cmd, args[0])
			}
			return runGet(cmd, args[0], getFlags{maxHeight: defaultMaxHeight, maxFPS: defaultMaxFPS})
		},
	}

	pf := root.PersistentFlags()
	pf.StringP("out-dir", "o", "", "Output directory (default ~/Downloads)")
	pf.BoolP("verbose", "v", false, "Debug logging, including subprocess command lines")
	pf.String("log-format", logging.FormatText, "Log format: text or json")
	pf.String("dl-binary", "", "Path to yt-dlp or youtube-dl")
	pf.String("ffmpeg-dir", "", "Directory containing ffmpeg/ffprobe (default: PATH)")
	pf.Bool("aria2c", false, "Use aria2c as external downloader when installed")
	pf.String("cookies", "", "Netscape cookie file passed to yt-dlp")
	pf.String("cookies-from-browser", "", "Read cookies from a browser (chrome, firefox, edge, ... or auto), optionally browser:profile")

	root.Flags().Bool("no-ui", false, "Never start the interactive picker")

	root.AddCommand(newInfoCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newPickCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())
	return root
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	if err := config.Init(root); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	return root.ExecuteContext(ctx)
}

// loadSettings reads the merged configuration and sets up logging.
func loadSettings(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	if err := logging.Setup(cfg.Download.Verbose, cfg.LogFormat); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	cmd.SetContext(context.WithValue(cmd.Context(), settingsKey, cfg))
	return nil
}

func settings(cmd *cobra.Command) config.Config {
	if cfg, ok := cmd.Context().Value(settingsKey).(config.Config); ok {
		return cfg
	}
	cfg, _ := config.Load()
	return cfg
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// downloadExit maps a pipeline failure to an exit code.
func downloadExit(err error) error {
	var ee *ExitError
	switch {
	case errors.As(err, &ee):
		return ee
	case errors.Is(err, downloader.ErrAgeRestricted):
		return &ExitError{Code: ExitAuthError, Err: fmt.Errorf("%w (try --cookies-from-browser auto)", err)}
	case errors.Is(err, context.Canceled):
		return &ExitError{Code: ExitCLIError, Err: err}
	default:
		return &ExitError{Code: ExitDownloadError, Err: err}
	}
}
