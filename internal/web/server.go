// Package web serves the browser front end and its JSON API.
package web

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"vidgrab/internal/credentials"
	"vidgrab/internal/jobs"
	"vidgrab/internal/pipeline"
	"vidgrab/internal/store"
)

// Options configures a Server.
type Options struct {
	Service     *pipeline.Service
	Store       *store.Store
	Credentials credentials.Provider // used when the session has no OAuth account
	OAuth       *oauth2.Config       // nil when Google sign-in is not configured

	APIKeys   []string
	TempDir   string
	PublicURL string

	JobTTL            time.Duration
	MaxJobs           int
	RequestsPerSecond float64 // global API throttle; <= 0 disables it

	Logger log.FieldLogger
}

// Server is the HTTP front end. Create it with New.
type Server struct {
	svc       *pipeline.Service
	store     *store.Store
	creds     credentials.Provider
	oauth     *oauth2.Config
	apiKeys   map[string]struct{}
	tempDir   string
	publicURL string
	limiter   *rate.Limiter
	log       log.FieldLogger

	jobs     *jobs.Manager
	sessions *sessions

	// userInfoURL is the OpenID Connect userinfo endpoint.
	userInfoURL string

	mu       sync.Mutex
	workdirs map[string]string

	engine *gin.Engine
}

// New builds a Server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, errors.New("web: pipeline service is required")
	}
	if opts.Store == nil {
		return nil, errors.New("web: store is required")
	}
	s := &Server{
		svc:         opts.Service,
		store:       opts.Store,
		creds:       opts.Credentials,
		oauth:       opts.OAuth,
		apiKeys:     make(map[string]struct{}, len(opts.APIKeys)),
		tempDir:     opts.TempDir,
		publicURL:   opts.PublicURL,
		log:         opts.Logger,
		sessions:    newSessions(),
		userInfoURL: googleUserInfoURL,
		workdirs:    make(map[string]string),
	}
	if s.creds == nil {
		s.creds = credentials.None{}
	}
	if s.log == nil {
		s.log = log.StandardLogger()
	}
	for _, k := range opts.APIKeys {
		s.apiKeys[k] = struct{}{}
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond * 2)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	jobOpts := []jobs.Option{
		jobs.WithMaxConcurrent(opts.MaxJobs),
		jobs.WithOnExpired(s.dropWorkdir),
		jobs.WithLogger(s.log),
	}
	if opts.JobTTL > 0 {
		jobOpts = append(jobOpts, jobs.WithTTL(opts.JobTTL))
	}
	s.jobs = jobs.NewManager(jobOpts...)
	s.engine = s.routes()
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Jobs returns the job manager backing the API.
func (s *Server) Jobs() *jobs.Manager { return s.jobs }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	r.GET("/", s.index)
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	auth := r.Group("/auth")
	{
		auth.GET("/login", s.login)
		auth.GET("/callback", s.callback)
		auth.GET("/logout", s.logout)
	}

	api := r.Group("/api", s.throttle())
	{
		api.GET("/info", s.info)
		api.GET("/me", s.me)
		api.POST("/jobs", s.createJob)
		api.GET("/jobs/:id", s.getJob)
		api.DELETE("/jobs/:id", s.cancelJob)
		api.GET("/jobs/:id/ws", s.streamJob)
		api.GET("/jobs/:id/file", s.jobFile)
	}
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.jobs.StartCleanup(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.jobs.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) trackWorkdir(jobID, dir string) {
	s.mu.Lock()
	s.workdirs[jobID] = dir
	s.mu.Unlock()
}

// dropWorkdir removes the temp directory of an expired job.
func (s *Server) dropWorkdir(snap jobs.Snapshot) {
	s.mu.Lock()
	dir, ok := s.workdirs[snap.ID]
	delete(s.workdirs, snap.ID)
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		s.log.WithError(err).WithField("dir", dir).Warn("remove job workdir")
	}
}

// throttle applies the global in-process limiter to the API.
func (s *Server) throttle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Server busy, try again shortly."})
			return
		}
		c.Next()
	}
}

func requestLogger(l log.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := l.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Round(time.Millisecond),
			"ip":      c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request")
			return
		}
		entry.Debug("request")
	}
}
