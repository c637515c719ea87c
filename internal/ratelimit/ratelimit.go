// Package ratelimit implements sliding-window request limiting keyed by an
// opaque subject (an API key id, a client ip). Two backends share the same
// semantics: a request is accepted when fewer than Limit requests were
// accepted in the trailing Window, and only accepted requests are recorded.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one CheckAndRecord call
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the oldest request in the window ages out
	ResetAt time.Time
}

// Limiter checks a subject against its window and records accepted requests
type Limiter interface {
	CheckAndRecord(ctx context.Context, subject string) (Decision, error)
}

// Config describes one window
type Config struct {
	Limit  int
	Window time.Duration
	// Now defaults to time.Now
	Now func() time.Time
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

func decide(cfg Config, count int64, oldest time.Time) Decision {
	d := Decision{
		Limit:   cfg.Limit,
		ResetAt: oldest.Add(cfg.Window),
	}
	if count >= int64(cfg.Limit) {
		return d
	}
	d.Allowed = true
	d.Remaining = cfg.Limit - int(count) - 1
	return d
}
