// Package jobs runs downloads in the background and tracks their progress.
package jobs

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"vidgrab/internal/progress"
)

// Snapshot is a point-in-time copy of a job's progress.
type Snapshot struct {
	ID         string         `json:"id"`
	URL        string         `json:"url"`
	Stage      progress.Stage `json:"stage"`
	Percent    float64        `json:"percent"`
	Message    string         `json:"message,omitempty"`
	Speed      string         `json:"speed,omitempty"`
	ETASeconds *int64         `json:"eta_seconds,omitempty"`
	Bytes      *int64         `json:"bytes,omitempty"`
	TotalBytes *int64         `json:"total_bytes,omitempty"`
	LastLine   string         `json:"last_line,omitempty"`
	OutputPath string         `json:"-"`
	FileName   string         `json:"filename,omitempty"`
	Error      string         `json:"error,omitempty"`
	Done       bool           `json:"done"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Job is the handle of one background download. It implements
// progress.Reporter; all methods are safe for concurrent use.
type Job struct {
	id  string
	now func() time.Time

	mu     sync.Mutex
	snap   Snapshot
	err    error
	subs   map[chan Snapshot]struct{}
	cancel context.CancelFunc

	done     chan struct{}
	doneOnce sync.Once
}

func newJob(id, url string, now func() time.Time) *Job {
	t := now()
	return &Job{
		id:  id,
		now: now,
		snap: Snapshot{
			ID:        id,
			URL:       url,
			Stage:     progress.StageQueued,
			Percent:   0,
			Message:   "Queued",
			CreatedAt: t,
			UpdatedAt: t,
		},
		subs: make(map[chan Snapshot]struct{}),
		done: make(chan struct{}),
	}
}

// ID returns the job identifier.
func (j *Job) ID() string { return j.id }

// Snapshot returns the current progress.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snap
}

// Err returns the failure of a finished job, or nil.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Done is closed once the job has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-j.done:
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.snap, j.err
	case <-ctx.Done():
		return j.Snapshot(), ctx.Err()
	}
}

// Cancel stops a running job.
func (j *Job) Cancel() {
	j.mu.Lock()
	cancel := j.cancel
	j.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Subscribe returns a channel that receives the latest snapshot after each
// change. Slow readers only miss intermediate states. The channel is closed
// after the final snapshot, or when stop is called.
func (j *Job) Subscribe() (updates <-chan Snapshot, stop func()) {
	ch := make(chan Snapshot, 1)
	j.mu.Lock()
	ch <- j.snap
	if j.snap.Done {
		j.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	j.subs[ch] = struct{}{}
	j.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			j.mu.Lock()
			defer j.mu.Unlock()
			if _, ok := j.subs[ch]; ok {
				delete(j.subs, ch)
				close(ch)
			}
		})
	}
}

// Update implements progress.Reporter.
func (j *Job) Update(u progress.Update) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.snap.Done {
		return
	}
	if u.Stage != "" {
		j.snap.Stage = u.Stage
	}
	if u.Percent >= 0 {
		j.snap.Percent = u.Percent
	}
	if u.Message != "" {
		j.snap.Message = u.Message
	}
	if u.Speed != nil {
		j.snap.Speed = *u.Speed
	}
	if u.ETA != nil {
		secs := int64(u.ETA.Seconds())
		j.snap.ETASeconds = &secs
	}
	if u.Bytes != nil {
		b := *u.Bytes
		j.snap.Bytes = &b
	}
	if u.TotalBytes != nil {
		b := *u.TotalBytes
		j.snap.TotalBytes = &b
	}
	if u.Stage == progress.StagePostprocessing {
		j.snap.Speed = ""
		j.snap.ETASeconds = nil
	}
	j.touchLocked()
}

// Log implements progress.Reporter; only the latest line is kept.
func (j *Job) Log(l progress.Log) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.snap.Done || l.Line == "" {
		return
	}
	j.snap.LastLine = l.Line
	j.snap.UpdatedAt = j.now()
}

// Result implements progress.Reporter and finishes the job.
func (j *Job) Result(r progress.Result) {
	j.finish(r.OutputPath, r.Bytes, r.Err)
}

func (j *Job) finish(path string, size int64, err error) {
	j.mu.Lock()
	if j.snap.Done {
		j.mu.Unlock()
		return
	}
	j.err = err
	j.snap.Done = true
	j.snap.Speed = ""
	j.snap.ETASeconds = nil
	if err != nil {
		j.snap.Stage = progress.StageError
		j.snap.Error = err.Error()
		j.snap.Message = err.Error()
	} else {
		j.snap.Stage = progress.StageCompleted
		j.snap.Percent = 100
		j.snap.OutputPath = path
		if path != "" {
			j.snap.FileName = filepath.Base(path)
		}
		if size > 0 {
			j.snap.Bytes = &size
		}
	}
	j.touchLocked()
	for ch := range j.subs {
		close(ch)
	}
	j.subs = map[chan Snapshot]struct{}{}
	j.mu.Unlock()

	j.doneOnce.Do(func() { close(j.done) })
}

// touchLocked stamps the snapshot and publishes it. j.mu must be held.
func (j *Job) touchLocked() {
	j.snap.UpdatedAt = j.now()
	for ch := range j.subs {
		select {
		case <-ch:
		default:
		}
		ch <- j.snap
	}
}

func (j *Job) expired(now time.Time, ttl time.Duration) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snap.Done && now.Sub(j.snap.UpdatedAt) >= ttl
}
