package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/snupai/shortlink/internal/model"
	"gorm.io/gorm"
)

// AccountRepository handles database operations for accounts
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository instance
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts an account. A subject collision yields ErrDuplicate.
func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if translateError(err) == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID retrieves an account; nil when absent
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// GetBySubject retrieves an account by identity subject; nil when absent
func (r *AccountRepository) GetBySubject(ctx context.Context, subject string) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where("subject = ?", subject).First(&account).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// List returns all accounts, oldest first
func (r *AccountRepository) List(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// SetBanned updates the ban flag; bannedAt is kept as history on unban
func (r *AccountRepository) SetBanned(ctx context.Context, id int64, banned bool, at time.Time) error {
	updates := map[string]interface{}{"banned": banned}
	if banned {
		updates["banned_at"] = at
	}
	if err := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update ban state: %w", err)
	}
	return nil
}

// SetQuotaLimit sets or clears (nil) the per-account quota override
func (r *AccountRepository) SetQuotaLimit(ctx context.Context, id int64, limit *int) error {
	if err := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"api_quota_limit": limit}).Error; err != nil {
		return fmt.Errorf("failed to update quota limit: %w", err)
	}
	return nil
}

// UpdateEmail refreshes the stored email from the identity provider
func (r *AccountRepository) UpdateEmail(ctx context.Context, id int64, email string) error {
	if err := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ?", id).
		Update("email", email).Error; err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}
	return nil
}

// SetRole changes the account role
func (r *AccountRepository) SetRole(ctx context.Context, id int64, role string) error {
	if err := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ?", id).
		Update("role", role).Error; err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return nil
}

// Delete removes the account row only; callers cascade first
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Account{}).Error; err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}
