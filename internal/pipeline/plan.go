package pipeline

import (
	"context"

	"vidgrab/internal/downloader"
	"vidgrab/internal/formats"
	"vidgrab/internal/model"
	"vidgrab/internal/util/media"
)

// Plan describes a download without running it.
type Plan struct {
	URL            string             `json:"url"`
	Mode           model.DownloadMode `json:"mode"`
	Selector       string             `json:"selector"`
	OutputTemplate string             `json:"output_template"`
	DownloaderPath string             `json:"downloader"`
	Accelerated    bool               `json:"aria2c"`
	Authenticated  bool               `json:"authenticated"`
	Args           []string           `json:"args"`
}

// Plan resolves credentials and hardening for req and reports the exact
// yt-dlp invocation RunJob would use.
func (s *Service) Plan(ctx context.Context, req model.DownloadRequest) (Plan, error) {
	sel, err := formats.SelectorForRequest(req)
	if err != nil {
		return Plan{}, err
	}
	cfg := s.config(ctx, req.UseAccelerator)
	args, err := downloader.BuildArgs(req, cfg)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		URL:            req.URL,
		Mode:           req.Mode,
		Selector:       sel,
		OutputTemplate: media.OutputTemplate(req.OutDir, req.Mode),
		DownloaderPath: s.dlPath,
		Accelerated:    cfg.ExternalDownloader != "",
		Authenticated:  cfg.HasCredential(),
		Args:           args,
	}, nil
}
