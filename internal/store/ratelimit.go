package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Limits configures the per-client download rate limit.
type Limits struct {
	Max      int           // downloads allowed per window
	Window   time.Duration // sliding window length
	Cooldown time.Duration // minimum gap between two downloads
}

// DefaultLimits allows 3 downloads per 10 minutes, 30 seconds apart.
var DefaultLimits = Limits{Max: 3, Window: 10 * time.Minute, Cooldown: 30 * time.Second}

func (l Limits) withDefaults() Limits {
	if l.Max <= 0 {
		l.Max = DefaultLimits.Max
	}
	if l.Window <= 0 {
		l.Window = DefaultLimits.Window
	}
	if l.Cooldown < 0 {
		l.Cooldown = 0
	}
	return l
}

// retention is how long rows outlive the window before being purged.
const retention = time.Hour

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	Reason     string
	RetryAfter time.Duration
}

// Check decides whether ip may start a download at now, recording the
// attempt when allowed. Old rows are purged on every call.
func (s *Store) Check(ctx context.Context, ip string, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nowSec := now.Unix()
	windowStart := nowSec - int64(s.limits.Window/time.Second)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM request_log WHERE ts < ?`, windowStart-int64(retention/time.Second)); err != nil {
		return Decision{}, fmt.Errorf("purging request log: %w", err)
	}

	var (
		count  int
		latest sql.NullInt64
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(ts) FROM request_log WHERE ip = ? AND ts >= ?`, ip, windowStart)
	if err := row.Scan(&count, &latest); err != nil {
		return Decision{}, fmt.Errorf("reading request log: %w", err)
	}

	cooldown := int64(s.limits.Cooldown / time.Second)
	if latest.Valid && nowSec-latest.Int64 < cooldown {
		wait := cooldown - (nowSec - latest.Int64)
		return Decision{
			Reason:     fmt.Sprintf("Too many requests. Please wait %ds before starting another download.", wait),
			RetryAfter: time.Duration(wait) * time.Second,
		}, nil
	}
	if count >= s.limits.Max {
		return Decision{Reason: "Rate limit exceeded. Try again later.", RetryAfter: s.retryAfter(ctx, ip, windowStart, nowSec)}, nil
	}

	if _, err := s.db.ExecContext(ctx, `INSERT INTO request_log (ip, ts) VALUES (?, ?)`, ip, nowSec); err != nil {
		return Decision{}, fmt.Errorf("recording request: %w", err)
	}
	return Decision{Allowed: true}, nil
}

// retryAfter estimates when the oldest row in the window leaves it.
func (s *Store) retryAfter(ctx context.Context, ip string, windowStart, nowSec int64) time.Duration {
	var oldest int64
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(ts) FROM request_log WHERE ip = ? AND ts >= ?`, ip, windowStart).Scan(&oldest)
	if err != nil {
		return 0
	}
	wait := oldest + int64(s.limits.Window/time.Second) - nowSec
	if wait < 0 {
		return 0
	}
	return time.Duration(wait) * time.Second
}
