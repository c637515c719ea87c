package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/snupai/shortlink/internal/model"
	"github.com/snupai/shortlink/internal/repository"
)

// AccountService maps identities from the session provider onto accounts
type AccountService struct {
	accounts    *repository.AccountRepository
	adminEmails map[string]struct{}
	log         zerolog.Logger
	clock       Clock
}

// NewAccountService creates a new account service. Accounts whose email is
// listed in adminEmails carry the admin role.
func NewAccountService(accounts *repository.AccountRepository, adminEmails []string, log zerolog.Logger) *AccountService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &AccountService{accounts: accounts, adminEmails: admins, log: log}
}

// SetClock replaces the time source
func (s *AccountService) SetClock(c Clock) { s.clock = c }

// Ensure returns the account for subject, creating it on first sight
func (s *AccountService) Ensure(ctx context.Context, subject, email string) (*model.Account, error) {
	email = strings.TrimSpace(email)

	account, err := s.accounts.GetBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = &model.Account{
			Subject:   subject,
			Email:     email,
			Role:      s.roleFor(email),
			CreatedAt: s.clock.now(),
		}
		err := s.accounts.Create(ctx, account)
		if err == nil {
			s.log.Info().Int64("account_id", account.ID).Str("role", account.Role).Msg("account created")
			return account, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		// a concurrent first request created it
		account, err = s.accounts.GetBySubject(ctx, subject)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, ErrNotFound
		}
	}

	if email != "" && email != account.Email {
		if err := s.accounts.UpdateEmail(ctx, account.ID, email); err != nil {
			return nil, err
		}
		account.Email = email
	}
	if !account.IsAdmin() && s.roleFor(account.Email) == model.RoleAdmin {
		if err := s.accounts.SetRole(ctx, account.ID, model.RoleAdmin); err != nil {
			return nil, err
		}
		account.Role = model.RoleAdmin
	}
	return account, nil
}

func (s *AccountService) roleFor(email string) string {
	if _, ok := s.adminEmails[normalizeEmail(email)]; ok {
		return model.RoleAdmin
	}
	return model.RoleUser
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
