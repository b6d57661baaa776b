package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"vidgrab/internal/model"
	"vidgrab/internal/pipeline"
	"vidgrab/internal/util"
	"vidgrab/internal/util/format"
	"vidgrab/internal/util/media"
)

func newInfoCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:           "info <url>",
		Short:         "Show title, duration and the available video qualities",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := settings(cmd)
			url, err := util.NormalizeURL(args[0])
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			svc, err := newService(cfg.Download)
			if err != nil {
				return err
			}
			in, err := svc.Inspect(cmd.Context(), url)
			if err != nil {
				return downloadExit(err)
			}
			if asJSON {
				return writeInfoJSON(cmd.OutOrStdout(), in)
			}
			writeInfoTable(cmd.OutOrStdout(), in)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print machine-readable JSON")
	return cmd
}

type infoJSON struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Uploader      string                `json:"uploader,omitempty"`
	WebpageURL    string                `json:"webpage_url,omitempty"`
	Duration      *float64              `json:"duration"`
	Thumbnail     string                `json:"thumbnail,omitempty"`
	AgeRestricted bool                  `json:"age_restricted"`
	Options       []model.QualityOption `json:"options"`
	Aria2c        bool                  `json:"aria2c"`
}

func writeInfoJSON(w io.Writer, in pipeline.Inspection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(infoJSON{
		ID:            in.Info.ID,
		Title:         in.Info.Title,
		Uploader:      in.Info.Uploader,
		WebpageURL:    in.Info.WebpageURL,
		Duration:      in.Info.DurationSec,
		Thumbnail:     in.Info.ThumbnailURL,
		AgeRestricted: in.Info.AgeLimit > 0,
		Options:       in.Options,
		Aria2c:        in.AcceleratorAvailable,
	})
}

func writeInfoTable(w io.Writer, in pipeline.Inspection) {
	fmt.Fprintln(w, media.Describe(in.Info))
	if in.Info.AgeLimit > 0 {
		fmt.Fprintf(w, "Age restricted (%d+); sign-in cookies may be required\n", in.Info.AgeLimit)
	}
	if len(in.Options) == 0 {
		fmt.Fprintln(w, "No video formats listed")
		return
	}

	rows := make([][]string, 0, len(in.Options))
	for _, o := range in.Options {
		height := format.Unknown
		if o.Height != nil {
			height = strconv.Itoa(*o.Height) + "p"
		}
		rows = append(rows, []string{o.ID, height, fps(o.FrameRate), o.Extension, o.VideoCodec, format.FormatSizePtr(o.EstimatedSizeBytes)})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "HEIGHT", "FPS", "EXT", "CODEC", "SIZE").
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

func fps(f *float64) string {
	if f == nil {
		return format.Unknown
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
