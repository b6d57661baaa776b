package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RunFunc performs the work of a job. It reports progress through job and
// should deliver exactly one progress.Result; if it does not, the returned
// error (or success) finishes the job.
type RunFunc func(ctx context.Context, job *Job) error

// ErrNotFound is returned for unknown or expired job ids.
var ErrNotFound = errors.New("job not found")

// Manager owns the set of live jobs.
type Manager struct {
	ttl       time.Duration
	now       func() time.Time
	sem       chan struct{}
	onExpired func(Snapshot)
	log       log.FieldLogger

	mu   sync.RWMutex
	jobs map[string]*Job
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL sets how long finished jobs stay retrievable.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) { m.ttl = d }
}

// WithMaxConcurrent bounds how many jobs run at once; extra jobs stay queued.
func WithMaxConcurrent(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.sem = make(chan struct{}, n)
		}
	}
}

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithOnExpired registers a hook run for each job removed by Cleanup.
func WithOnExpired(fn func(Snapshot)) Option {
	return func(m *Manager) { m.onExpired = fn }
}

// WithLogger sets the logger job failures are reported to.
func WithLogger(l log.FieldLogger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager returns an empty Manager. Finished jobs are kept for 30 minutes by default.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		ttl:  30 * time.Minute,
		now:  time.Now,
		jobs: make(map[string]*Job),
	}
	for _, o := range opts {
		o(m)
	}
	if m.log == nil {
		m.log = log.StandardLogger()
	}
	return m
}

// Start registers a job for url and runs it in the background under ctx.
func (m *Manager) Start(ctx context.Context, url string, run RunFunc) *Job {
	job := newJob(uuid.NewString(), url, m.now)
	jobCtx, cancel := context.WithCancel(ctx)
	job.cancel = cancel

	m.mu.Lock()
	m.jobs[job.id] = job
	m.mu.Unlock()

	go m.run(jobCtx, cancel, job, run)
	return job
}

func (m *Manager) run(ctx context.Context, cancel context.CancelFunc, job *Job, run RunFunc) {
	defer cancel()
	entry := m.log.WithField("job", job.id)

	if m.sem != nil {
		select {
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
		case <-ctx.Done():
			job.finish("", 0, ctx.Err())
			return
		}
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		err = run(ctx, job)
	}()

	select {
	case <-job.done:
	default:
		if err != nil {
			entry.WithError(err).Warn("job failed")
		}
		job.finish("", 0, err)
	}
	if err == nil {
		entry.Debug("job finished")
	}
}

// Get returns the job with id.
func (m *Manager) Get(id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

// Active counts jobs that have not finished.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, j := range m.jobs {
		select {
		case <-j.done:
		default:
			n++
		}
	}
	return n
}

// Cleanup removes finished jobs older than the TTL and returns how many went.
func (m *Manager) Cleanup(now time.Time) int {
	var expired []*Job
	m.mu.Lock()
	for id, j := range m.jobs {
		if j.expired(now, m.ttl) {
			delete(m.jobs, id)
			expired = append(expired, j)
		}
	}
	m.mu.Unlock()

	if m.onExpired != nil {
		for _, j := range expired {
			m.onExpired(j.Snapshot())
		}
	}
	return len(expired)
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Cleanup(m.now()); n > 0 {
					m.log.WithField("removed", n).Debug("expired jobs cleaned up")
				}
			}
		}
	}()
}

// Shutdown cancels every running job.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, j := range m.jobs {
		j.Cancel()
	}
}
