package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/snupai/shortlink/internal/model"
)

const (
	minQuotaLimit = 1
	maxQuotaLimit = 10000
)

// QuotaStatus is the caller-facing view of the creation quota
type QuotaStatus struct {
	Used      int64      `json:"used"`
	Limit     int        `json:"limit"`
	Remaining int64      `json:"remaining"`
	ResetsAt  *time.Time `json:"resetsAt"`
	WindowMs  int64      `json:"windowMs"`
}

// QuotaStore counts an owner's recent creations; *repository.LinkRepository
// satisfies it
type QuotaStore interface {
	CountCreatedSince(ctx context.Context, ownerID int64, since time.Time) (int64, error)
	OldestCreatedSince(ctx context.Context, ownerID int64, since time.Time) (*model.Link, error)
}

// QuotaService caps link creation per account over a rolling window. The
// count and the insert it gates are not atomic, so concurrent creations may
// overshoot by the number in flight.
type QuotaService struct {
	links        QuotaStore
	defaultLimit int
	window       time.Duration
	log          zerolog.Logger
	clock        Clock
}

// NewQuotaService creates a new quota service instance
func NewQuotaService(links QuotaStore, defaultLimit int, window time.Duration, log zerolog.Logger) *QuotaService {
	return &QuotaService{links: links, defaultLimit: defaultLimit, window: window, log: log}
}

// SetClock replaces the time source
func (s *QuotaService) SetClock(c Clock) { s.clock = c }

// EffectiveLimit is the account override when present, the default otherwise
func (s *QuotaService) EffectiveLimit(account *model.Account) int {
	if account.APIQuotaLimit != nil {
		return *account.APIQuotaLimit
	}
	return s.defaultLimit
}

// Check fails with a *LimitError wrapping ErrQuotaExceeded when account
// has used its quota
func (s *QuotaService) Check(ctx context.Context, account *model.Account) error {
	now := s.clock.now()
	since := now.Add(-s.window)
	limit := s.EffectiveLimit(account)

	used, err := s.links.CountCreatedSince(ctx, account.ID, since)
	if err != nil {
		return err
	}
	if used < int64(limit) {
		return nil
	}

	// the rejection stands even when the reset time cannot be read
	resetAt := now.Add(s.window)
	oldest, err := s.links.OldestCreatedSince(ctx, account.ID, since)
	switch {
	case err != nil:
		s.log.Warn().Err(err).Int64("account_id", account.ID).Msg("failed to read quota reset time")
	case oldest != nil:
		resetAt = oldest.CreatedAt.Add(s.window)
	}
	return &LimitError{
		Kind:    ErrQuotaExceeded,
		Limit:   limit,
		Window:  s.window,
		ResetAt: resetAt,
	}
}

// Status reports usage; ResetsAt is when the oldest in-window link ages out
func (s *QuotaService) Status(ctx context.Context, account *model.Account) (*QuotaStatus, error) {
	now := s.clock.now()
	since := now.Add(-s.window)
	limit := s.EffectiveLimit(account)

	used, err := s.links.CountCreatedSince(ctx, account.ID, since)
	if err != nil {
		return nil, err
	}

	status := &QuotaStatus{
		Used:     used,
		Limit:    limit,
		WindowMs: s.window.Milliseconds(),
	}
	if remaining := int64(limit) - used; remaining > 0 {
		status.Remaining = remaining
	}

	oldest, err := s.links.OldestCreatedSince(ctx, account.ID, since)
	if err != nil {
		return nil, err
	}
	if oldest != nil {
		resetsAt := oldest.CreatedAt.UTC().Add(s.window)
		status.ResetsAt = &resetsAt
	}
	return status, nil
}

func validQuotaLimit(limit int) bool {
	return limit >= minQuotaLimit && limit <= maxQuotaLimit
}
