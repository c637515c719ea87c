package service

import (
	"context"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/snupai/shortlink/internal/model"
	"github.com/snupai/shortlink/internal/repository"
)

const (
	// DirectReferrer stands in for absent or unparsable referrers
	DirectReferrer = "direct/unknown"

	maxRecentClicks = 100
	maxTopReferrers = 20
	maxUserAgentLen = 512
	reconcileBatch  = 200
)

// ReconcileResult summarizes one reconciliation run
type ReconcileResult struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
}

// ClickService keeps the click event log and the per-link counter in step
type ClickService struct {
	links  *repository.LinkRepository
	clicks *repository.ClickRepository
	log    zerolog.Logger
	clock  Clock
}

// NewClickService creates a new click service instance
func NewClickService(links *repository.LinkRepository, clicks *repository.ClickRepository, log zerolog.Logger) *ClickService {
	return &ClickService{links: links, clicks: clicks, log: log}
}

// SetClock replaces the time source
func (s *ClickService) SetClock(c Clock) { s.clock = c }

// Record appends a click event and bumps the link counter. A failed event
// insert is logged and the counter still advances.
func (s *ClickService) Record(ctx context.Context, linkID int64, referrer, userAgent string) error {
	now := s.clock.now()

	event := &model.ClickEvent{
		LinkID:    linkID,
		CreatedAt: now,
		Referrer:  NormalizeReferrer(referrer),
		UserAgent: truncate(userAgent, maxUserAgentLen),
	}
	if err := s.clicks.Create(ctx, event); err != nil {
		s.log.Warn().Err(err).Int64("link_id", linkID).Msg("failed to record click event")
	}

	return s.links.IncrementClickCount(ctx, linkID, now)
}

// ListRecent returns up to limit events of a link, newest first
func (s *ClickService) ListRecent(ctx context.Context, linkID int64, limit int) ([]model.ClickEvent, error) {
	if limit <= 0 || limit > maxRecentClicks {
		limit = maxRecentClicks
	}
	return s.clicks.ListRecent(ctx, linkID, limit)
}

// TopReferrers returns the most frequent referrer domains of a link
func (s *ClickService) TopReferrers(ctx context.Context, linkID int64, limit int) ([]repository.ReferrerCount, error) {
	if limit <= 0 || limit > maxTopReferrers {
		limit = maxTopReferrers
	}
	return s.clicks.TopReferrers(ctx, linkID, limit)
}

// Reconcile recomputes clickCount and lastClickedAt from the event log for
// every link whose stored values drifted
func (s *ClickService) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	result := &ReconcileResult{}
	err := s.links.FindInBatches(ctx, reconcileBatch, func(links []model.Link) error {
		for _, link := range links {
			result.Scanned++

			count, err := s.clicks.CountByLink(ctx, link.ID)
			if err != nil {
				return err
			}
			latest, err := s.clicks.Latest(ctx, link.ID)
			if err != nil {
				return err
			}
			var last *time.Time
			if latest != nil {
				last = &latest.CreatedAt
			}

			if count == link.ClickCount && sameInstant(link.LastClickedAt, last) {
				continue
			}
			if err := s.links.SetCounters(ctx, link.ID, count, last); err != nil {
				return err
			}
			result.Updated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("scanned", result.Scanned).Int("updated", result.Updated).Msg("click counters reconciled")
	return result, nil
}

// NormalizeReferrer reduces a referrer URL to its lower-cased host without
// a leading "www."
func NormalizeReferrer(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DirectReferrer
	}
	u, err := url.Parse(raw)
	if err != nil {
		return DirectReferrer
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "" {
		return DirectReferrer
	}
	return host
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
