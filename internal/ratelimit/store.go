package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// RecordStore persists one row per accepted request
type RecordStore interface {
	CountSince(ctx context.Context, subject string, since time.Time) (int64, error)
	OldestSince(ctx context.Context, subject string, since time.Time) (*time.Time, error)
	Insert(ctx context.Context, subject string, at time.Time) error
	PruneBefore(ctx context.Context, subject string, cutoff time.Time) (int64, error)
}

// StoreLimiter keeps its window in the primary database. Count and insert
// are separate statements, so concurrent requests for one subject may
// overshoot the limit slightly.
type StoreLimiter struct {
	store RecordStore
	cfg   Config
}

// NewStoreLimiter creates a database backed limiter
func NewStoreLimiter(store RecordStore, cfg Config) *StoreLimiter {
	return &StoreLimiter{store: store, cfg: cfg}
}

// CheckAndRecord implements Limiter
func (l *StoreLimiter) CheckAndRecord(ctx context.Context, subject string) (Decision, error) {
	now := l.cfg.now().Truncate(time.Millisecond)
	cutoff := now.Add(-l.cfg.Window)

	count, err := l.store.CountSince(ctx, subject, cutoff)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to count window: %w", err)
	}

	oldest := now
	if count > 0 {
		first, err := l.store.OldestSince(ctx, subject, cutoff)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to read window: %w", err)
		}
		if first != nil {
			oldest = *first
		}
	}

	d := decide(l.cfg, count, oldest)
	if !d.Allowed {
		return d, nil
	}

	if err := l.store.Insert(ctx, subject, now); err != nil {
		return Decision{}, fmt.Errorf("failed to record request: %w", err)
	}
	if _, err := l.store.PruneBefore(ctx, subject, cutoff); err != nil {
		return Decision{}, fmt.Errorf("failed to prune window: %w", err)
	}
	return d, nil
}
