package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vidgrab/internal/model"
	"vidgrab/internal/pipeline"
	"vidgrab/internal/util"
	"vidgrab/internal/util/format"
)

const (
	defaultMaxHeight = model.DefaultMaxHeight
	defaultMaxFPS    = model.DefaultMaxFPS
)

type getFlags struct {
	formatID     string
	maxHeight    int
	maxFPS       int
	audio        string
	audioBitrate int
	dryRun       bool
	jsonOut      bool
}

func newGetCmd() *cobra.Command {
	var f getFlags
	cmd := &cobra.Command{
		Use:   "get <url>",
		Short: "Download a video (or its audio) without the interactive picker",
		Example: `  vidgrab get https://youtu.be/dQw4w9WgXcQ --max-height 720
  vidgrab get https://youtu.be/dQw4w9WgXcQ --format-id 137
  vidgrab get https://youtu.be/dQw4w9WgXcQ --audio mp3 --audio-bitrate 192`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, args[0], f)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.formatID, "format-id", "", "Exact format id from `vidgrab info`, merged with the best audio")
	fs.IntVar(&f.maxHeight, "max-height", defaultMaxHeight, "Best video up to this height")
	fs.IntVar(&f.maxFPS, "max-fps", defaultMaxFPS, "Best video up to this frame rate")
	fs.StringVar(&f.audio, "audio", "", "Audio only: mp3 or original")
	fs.IntVar(&f.audioBitrate, "audio-bitrate", model.DefaultAudioBitrate, "MP3 bitrate in kbps: 128, 192, 256 or 320")
	fs.BoolVar(&f.dryRun, "dry-run", false, "Print the yt-dlp invocation instead of downloading")
	fs.BoolVar(&f.jsonOut, "json", false, "With --dry-run, print the plan as JSON")
	return cmd
}

// request maps the flags onto a DownloadRequest.
func (f getFlags) request(url string) (model.DownloadRequest, error) {
	req := model.DownloadRequest{URL: url}
	switch strings.ToLower(f.audio) {
	case "":
	case "mp3":
		req.Mode = model.ModeAudioMP3
	case "original", "best", "m4a":
		req.Mode = model.ModeAudioOriginal
	default:
		return req, fmt.Errorf("invalid --audio %q (valid: mp3|original)", f.audio)
	}
	if req.Mode != "" && f.formatID != "" {
		return req, fmt.Errorf("--format-id cannot be combined with --audio")
	}

	switch {
	case req.Mode == model.ModeAudioMP3:
		if !model.ValidMP3Bitrate(f.audioBitrate) {
			return req, fmt.Errorf("invalid --audio-bitrate %d (valid: 128|192|256|320)", f.audioBitrate)
		}
		req.AudioBitrateKbps = f.audioBitrate
	case req.Mode != "":
	case f.formatID != "":
		req.Mode = model.ModeExact
		req.FormatID = f.formatID
	default:
		if f.maxHeight <= 0 || f.maxFPS <= 0 {
			return req, fmt.Errorf("--max-height and --max-fps must be positive")
		}
		req.Mode = model.ModeCapped
		req.MaxHeight = f.maxHeight
		req.MaxFPS = f.maxFPS
	}
	return req, nil
}

func runGet(cmd *cobra.Command, rawURL string, f getFlags) error {
	cfg := settings(cmd)
	url, err := util.NormalizeURL(rawURL)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	req, err := f.request(url)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	req.OutDir = cfg.Download.OutDir
	req.UseAccelerator = cfg.Download.UseAria2c

	rep := newTextReporter(cmd.ErrOrStderr(), isTerminal())
	svc, err := newService(cfg.Download, pipeline.WithReporter(rep))
	if err != nil {
		return err
	}

	if f.dryRun {
		plan, err := svc.Plan(cmd.Context(), req)
		if err != nil {
			return &ExitError{Code: ExitCLIError, Err: err}
		}
		return printPlan(cmd, plan, f.jsonOut)
	}

	if err := util.EnsureDir(req.OutDir); err != nil {
		return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("failed to create output dir: %w", err)}
	}
	res, err := svc.RunJob(cmd.Context(), req)
	rep.finish()
	if err != nil {
		return downloadExit(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s (%s)\n", res.File.Path, format.FormatSize(float64(res.File.Bytes)))
	return nil
}

func printPlan(cmd *cobra.Command, p pipeline.Plan, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	fmt.Fprintln(out, "Dry-run plan:")
	fmt.Fprintf(out, "- URL:            %s\n", p.URL)
	fmt.Fprintf(out, "- Mode:           %s\n", p.Mode)
	fmt.Fprintf(out, "- Format:         %s\n", p.Selector)
	fmt.Fprintf(out, "- Output:         %s\n", p.OutputTemplate)
	fmt.Fprintf(out, "- Downloader:     %s\n", p.DownloaderPath)
	fmt.Fprintf(out, "- aria2c:         %v\n", p.Accelerated)
	fmt.Fprintf(out, "- Authenticated:  %v\n", p.Authenticated)
	fmt.Fprintf(out, "- Command:        %s\n", util.ShellQuote(p.DownloaderPath, p.Args))
	return nil
}
