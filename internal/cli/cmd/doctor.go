package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidgrab/internal/util/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external dependencies (yt-dlp, ffmpeg, aria2c)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := settings(cmd).Download
			out := cmd.OutOrStdout()

			dl, derr := deps.FindDownloader(opts.DLBinary)
			if derr != nil {
				return &ExitError{Code: ExitMissingDep, Err: derr}
			}
			ff, ferr := deps.FindFFmpeg(opts.FFmpegDir)
			if ferr != nil {
				return &ExitError{Code: ExitMissingDep, Err: ferr}
			}
			fmt.Fprintf(out, "Downloader: %s\n", dl)
			fmt.Fprintf(out, "FFmpeg:     %s\n", ff)
			if a, err := deps.FindAccelerator(); err == nil {
				fmt.Fprintf(out, "aria2c:     %s\n", a)
			} else {
				fmt.Fprintln(out, "aria2c:     not found (optional)")
			}
			return nil
		},
	}
}
