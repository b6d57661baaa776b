package progress

import "time"

// Stage identifies a high-level step of a download job.
type Stage string

const (
	StageQueued         Stage = "queued"
	StageMetadata       Stage = "metadata"
	StageDownloading    Stage = "downloading"
	StagePostprocessing Stage = "postprocessing"
	StageCompleted      Stage = "completed"
	StageError          Stage = "error"
)

// Terminal reports whether no further updates follow this stage.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageError
}

// LogStream indicates which stream produced a log line.
type LogStream int

const (
	StreamStdout LogStream = iota
	StreamStderr
)

// Update conveys progress or stage changes for a job.
// Percent is 0..100 when known; set to a negative value (e.g., -1) to mean unknown.
type Update struct {
	JobID   string
	Stage   Stage
	Percent float64 // 0..100, or <0 if unknown

	ETA        *time.Duration // optional
	Bytes      *int64         // optional cumulative bytes
	TotalBytes *int64         // optional expected total
	Speed      *string        // optional, e.g., "2.5MiB/s"
	Message    string         // short human-friendly status line
}

// Log is a subprocess output line associated with a job.
type Log struct {
	JobID  string
	Stream LogStream
	Line   string
}

// Result is emitted once per job when it completes or fails.
type Result struct {
	JobID      string
	OutputPath string
	Bytes      int64
	Err        error // nil on success
}

// Reporter is implemented by UI or any observer interested in progress events.
type Reporter interface {
	Update(u Update)
	Log(l Log)
	Result(r Result)
}

// Discard is a Reporter that drops everything.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Update(Update) {}
func (discard) Log(Log)       {}
func (discard) Result(Result) {}
