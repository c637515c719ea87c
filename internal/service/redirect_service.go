package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/snupai/shortlink/internal/model"
	"github.com/snupai/shortlink/internal/ogmeta"
	"github.com/snupai/shortlink/internal/repository"
)

// Outcome is the terminal state of one redirect request
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeSuspended Outcome = "suspended"
	OutcomeExpired   Outcome = "expired"
	OutcomeMaxClicks Outcome = "max_clicks"
)

// Resolution is what the redirect handler needs to answer a visit
type Resolution struct {
	Outcome Outcome
	Link    *model.Link
	// Crawler is set on OK when the visitor is a link preview fetcher
	Crawler bool
}

// RedirectService runs the checks of the public redirect path in a fixed
// order: existence, suspension, expiry, click limit
type RedirectService struct {
	links    *LinkService
	accounts *repository.AccountRepository
	clicks   *ClickService
	log      zerolog.Logger
	clock    Clock
}

// NewRedirectService creates a new redirect service instance
func NewRedirectService(links *LinkService, accounts *repository.AccountRepository, clicks *ClickService, log zerolog.Logger) *RedirectService {
	return &RedirectService{links: links, accounts: accounts, clicks: clicks, log: log}
}

// SetClock replaces the time source
func (s *RedirectService) SetClock(c Clock) { s.clock = c }

// Resolve decides the outcome for slug and, on OK, records the click.
// Only store failures are returned as errors.
func (s *RedirectService) Resolve(ctx context.Context, slug, referrer, userAgent string) (*Resolution, error) {
	link, err := s.links.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return &Resolution{Outcome: OutcomeNotFound}, nil
	}

	owner, err := s.accounts.GetByID(ctx, link.OwnerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		// orphaned by a partial account deletion
		return &Resolution{Outcome: OutcomeNotFound}, nil
	}

	res := &Resolution{Link: link}
	switch {
	case owner.Banned:
		res.Outcome = OutcomeSuspended
	case link.IsExpired(s.clock.now()):
		res.Outcome = OutcomeExpired
	case link.IsExhausted():
		res.Outcome = OutcomeMaxClicks
	default:
		res.Outcome = OutcomeOK
	}
	if res.Outcome != OutcomeOK {
		return res, nil
	}

	if err := s.clicks.Record(ctx, link.ID, referrer, userAgent); err != nil {
		s.log.Warn().Err(err).Str("slug", slug).Msg("failed to count click")
	}
	res.Crawler = ogmeta.IsCrawler(userAgent)
	return res, nil
}
