package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/snupai/shortlink/internal/model"
	"github.com/snupai/shortlink/internal/repository"
)

const maxAdminLinks = 500

// AccountSummary is an account row of the admin listing
type AccountSummary struct {
	model.Account
	LinkCount int64 `json:"link_count"`
}

// AdminLink is a link row of the admin listing
type AdminLink struct {
	model.Link
	OwnerEmail string `json:"owner_email"`
}

// AdminService implements the operations reserved for admin accounts
type AdminService struct {
	accounts *repository.AccountRepository
	linkRepo *repository.LinkRepository
	links    *LinkService
	keys     *APIKeyService
	clicks   *ClickService
	log      zerolog.Logger
	clock    Clock
}

// NewAdminService creates a new admin service instance
func NewAdminService(accounts *repository.AccountRepository, linkRepo *repository.LinkRepository,
	links *LinkService, keys *APIKeyService, clicks *ClickService, log zerolog.Logger) *AdminService {
	return &AdminService{
		accounts: accounts,
		linkRepo: linkRepo,
		links:    links,
		keys:     keys,
		clicks:   clicks,
		log:      log,
	}
}

// SetClock replaces the time source
func (s *AdminService) SetClock(c Clock) { s.clock = c }

// ListAccounts returns every account with its link count
func (s *AdminService) ListAccounts(ctx context.Context) ([]AccountSummary, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.linkRepo.CountByOwner(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountSummary{Account: a, LinkCount: counts[a.ID]})
	}
	return out, nil
}

// ListAllLinks returns the newest links across all owners; limit is
// clamped to [1, 500]
func (s *AdminService) ListAllLinks(ctx context.Context, limit int) ([]AdminLink, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > maxAdminLinks {
		limit = maxAdminLinks
	}

	links, err := s.linkRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	emails := map[int64]string{}
	out := make([]AdminLink, 0, len(links))
	for _, l := range links {
		email, ok := emails[l.OwnerID]
		if !ok {
			owner, err := s.accounts.GetByID(ctx, l.OwnerID)
			if err != nil {
				return nil, err
			}
			if owner != nil {
				email = owner.Email
			}
			emails[l.OwnerID] = email
		}
		out = append(out, AdminLink{Link: l, OwnerEmail: email})
	}
	return out, nil
}

// Ban suspends an account; all its links stop redirecting
func (s *AdminService) Ban(ctx context.Context, actor *model.Account, targetID int64) error {
	if _, err := s.protectedTarget(ctx, actor, targetID); err != nil {
		return err
	}
	if err := s.accounts.SetBanned(ctx, targetID, true, s.clock.now()); err != nil {
		return err
	}
	s.log.Info().Int64("admin_id", actor.ID).Int64("account_id", targetID).Msg("account banned")
	return nil
}

// Unban lifts a suspension
func (s *AdminService) Unban(ctx context.Context, actor *model.Account, targetID int64) error {
	target, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNotFound
	}
	if err := s.accounts.SetBanned(ctx, targetID, false, s.clock.now()); err != nil {
		return err
	}
	s.log.Info().Int64("admin_id", actor.ID).Int64("account_id", targetID).Msg("account unbanned")
	return nil
}

// DeleteAccount removes an account with its links, click events, keys and
// rate-limit records. A failure part way leaves a state the same call can
// finish.
func (s *AdminService) DeleteAccount(ctx context.Context, actor *model.Account, targetID int64) error {
	if _, err := s.protectedTarget(ctx, actor, targetID); err != nil {
		return err
	}

	removed, err := s.links.DeleteAllForOwner(ctx, targetID)
	if err != nil {
		return err
	}
	if err := s.keys.DeleteAllForOwner(ctx, targetID); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, targetID); err != nil {
		return err
	}

	s.log.Info().Int64("admin_id", actor.ID).Int64("account_id", targetID).Int("links", removed).Msg("account deleted")
	return nil
}

// DeleteLink removes any link
func (s *AdminService) DeleteLink(ctx context.Context, linkID int64) error {
	return s.links.DeleteAsAdmin(ctx, linkID)
}

// SetQuotaLimit sets the per-account quota override; nil clears it
func (s *AdminService) SetQuotaLimit(ctx context.Context, targetID int64, limit *int) error {
	if limit != nil && !validQuotaLimit(*limit) {
		return ErrInvalidQuotaLimit
	}
	target, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNotFound
	}
	return s.accounts.SetQuotaLimit(ctx, targetID, limit)
}

// Reconcile rebuilds click counters from the event log
func (s *AdminService) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	return s.clicks.Reconcile(ctx)
}

// protectedTarget loads targetID and refuses the actor itself or another admin
func (s *AdminService) protectedTarget(ctx context.Context, actor *model.Account, targetID int64) (*model.Account, error) {
	if actor.ID == targetID {
		return nil, ErrForbidden
	}
	target, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrNotFound
	}
	if target.IsAdmin() {
		return nil, ErrForbidden
	}
	return target, nil
}
