package web

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"vidgrab/internal/downloader"
	"vidgrab/internal/formats"
	"vidgrab/internal/jobs"
	"vidgrab/internal/model"
	"vidgrab/internal/pipeline"
	"vidgrab/internal/progress"
	"vidgrab/internal/util"
	"vidgrab/internal/util/media"
)

//go:embed static/index.html
var indexHTML []byte

const ageRestrictedMessage = "This video is age-restricted. Please sign in with Google to access it."

func (s *Server) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

type infoResponse struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Channel       string                `json:"channel"`
	Duration      *float64              `json:"duration"`
	DurationText  string                `json:"duration_text,omitempty"`
	Thumbnail     string                `json:"thumbnail,omitempty"`
	WebpageURL    string                `json:"webpage_url,omitempty"`
	AgeRestricted bool                  `json:"age_restricted"`
	Options       []model.QualityOption `json:"options"`
	Heights       []int                 `json:"heights"`
	FPS           []int                 `json:"fps"`
	Aria2c        bool                  `json:"aria2c"`
	AudioBitrates []int                 `json:"audio_bitrates"`
}

func (s *Server) info(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errNoURL.Error()})
		return
	}
	if _, err := util.NormalizeURL(url); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := s.sessions.get(c)
	svc := s.svc.With(pipeline.WithCredentials(s.credentialsFor(c.Request.Context(), sess)))
	in, err := svc.Inspect(c.Request.Context(), url)
	if err != nil {
		switch {
		case errors.Is(err, downloader.ErrAgeRestricted) && sess.UserID == "":
			c.JSON(http.StatusForbidden, gin.H{"error": ageRestrictedMessage, "requires_auth": true})
		case errors.Is(err, downloader.ErrAgeRestricted), errors.Is(err, downloader.ErrUnavailable):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			s.log.WithError(err).WithField("url", url).Warn("metadata fetch failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	resp := infoResponse{
		ID:            in.Info.ID,
		Title:         in.Info.Title,
		Channel:       in.Info.Uploader,
		Duration:      in.Info.DurationSec,
		Thumbnail:     in.Info.ThumbnailURL,
		WebpageURL:    in.Info.WebpageURL,
		AgeRestricted: in.Info.AgeLimit > 0,
		Options:       in.Options,
		Heights:       formats.AvailableHeights(in.Info),
		FPS:           formats.AvailableFPS(in.Info),
		Aria2c:        in.AcceleratorAvailable,
		AudioBitrates: model.MP3Bitrates,
	}
	if in.Info.DurationSec != nil {
		resp.DurationText = media.Duration(*in.Info.DurationSec)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) createJob(c *gin.Context) {
	f, err := requestFields(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if len(s.apiKeys) > 0 {
		if _, ok := s.apiKeys[apiKey(c, f)]; !ok {
			c.String(http.StatusUnauthorized, "Unauthorized: invalid API key")
			return
		}
	}
	req, err := downloadRequest(f)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	dec, err := s.store.Check(c.Request.Context(), c.ClientIP(), time.Now())
	if err != nil {
		s.log.WithError(err).Error("rate limit check failed")
		c.String(http.StatusServiceUnavailable, "Rate limiter unavailable. Try again later.")
		return
	}
	if !dec.Allowed {
		if dec.RetryAfter > 0 {
			c.Header("Retry-After", formatSeconds(dec.RetryAfter))
		}
		c.String(http.StatusTooManyRequests, dec.Reason)
		return
	}

	dir, err := util.MakeTempWorkdir(s.tempDir, "job")
	if err != nil {
		s.log.WithError(err).Error("create job workdir")
		c.String(http.StatusInternalServerError, "could not create work directory")
		return
	}
	req.OutDir = dir

	creds := s.credentialsFor(c.Request.Context(), s.sessions.get(c))
	// Jobs outlive the request, so they run under a background context.
	job := s.jobs.Start(context.Background(), req.URL, func(ctx context.Context, job *jobs.Job) error {
		svc := s.svc.With(
			pipeline.WithReporter(job),
			pipeline.WithJobID(job.ID()),
			pipeline.WithCredentials(creds),
		)
		_, err := svc.RunJob(ctx, req)
		return err
	})
	s.trackWorkdir(job.ID(), dir)

	s.log.WithFields(log.Fields{"job": job.ID(), "url": req.URL, "mode": req.Mode}).Info("job started")
	c.JSON(http.StatusAccepted, gin.H{"id": job.ID()})
}

// jobView is a snapshot plus display fields.
type jobView struct {
	jobs.Snapshot
	BytesText string `json:"bytes_text,omitempty"`
	TotalText string `json:"total_text,omitempty"`
	Started   string `json:"started"`
	FileURL   string `json:"file_url,omitempty"`
}

func viewOf(snap jobs.Snapshot) jobView {
	v := jobView{Snapshot: snap, Started: humanize.Time(snap.CreatedAt)}
	if snap.Bytes != nil && *snap.Bytes >= 0 {
		v.BytesText = humanize.IBytes(uint64(*snap.Bytes))
	}
	if snap.TotalBytes != nil && *snap.TotalBytes >= 0 {
		v.TotalText = humanize.IBytes(uint64(*snap.TotalBytes))
	}
	if snap.Done && snap.Stage == progress.StageCompleted && snap.OutputPath != "" {
		v.FileURL = "/api/jobs/" + snap.ID + "/file"
	}
	return v
}

func (s *Server) lookup(c *gin.Context) (*jobs.Job, bool) {
	job, err := s.jobs.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return job, true
}

func (s *Server) getJob(c *gin.Context) {
	job, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, viewOf(job.Snapshot()))
}

func (s *Server) cancelJob(c *gin.Context) {
	job, ok := s.lookup(c)
	if !ok {
		return
	}
	job.Cancel()
	c.JSON(http.StatusAccepted, viewOf(job.Snapshot()))
}

func (s *Server) jobFile(c *gin.Context) {
	job, ok := s.lookup(c)
	if !ok {
		return
	}
	snap := job.Snapshot()
	switch {
	case !snap.Done:
		c.JSON(http.StatusConflict, gin.H{"error": "job is still running"})
		return
	case snap.Error != "":
		c.JSON(http.StatusConflict, gin.H{"error": snap.Error})
		return
	}
	if _, err := os.Stat(snap.OutputPath); err != nil {
		c.JSON(http.StatusGone, gin.H{"error": "file is no longer available"})
		return
	}
	c.FileAttachment(snap.OutputPath, media.AttachmentName("", snap.OutputPath))
}

func formatSeconds(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	return strconv.FormatInt(secs, 10)
}
