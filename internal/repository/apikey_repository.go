package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/snupai/shortlink/internal/model"
	"gorm.io/gorm"
)

// APIKeyRepository handles database operations for API keys
type APIKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository creates a new API key repository instance
func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create inserts a key. A digest collision yields ErrDuplicate.
func (r *APIKeyRepository) Create(ctx context.Context, key *model.APIKey) error {
	if err := r.db.WithContext(ctx).Create(key).Error; err != nil {
		if translateError(err) == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// GetByHash looks a key up by digest; nil when absent
func (r *APIKeyRepository) GetByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	var key model.APIKey
	if err := r.db.WithContext(ctx).Where("key_hash = ?", hash).First(&key).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return &key, nil
}

// GetByID retrieves a key; nil when absent
func (r *APIKeyRepository) GetByID(ctx context.Context, id int64) (*model.APIKey, error) {
	var key model.APIKey
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&key).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return &key, nil
}

// ListByOwner returns an owner's keys, newest first
func (r *APIKeyRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.APIKey, error) {
	var keys []model.APIKey
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").Order("id DESC").
		Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}

// ListIDsByOwner returns the ids of an owner's keys
func (r *APIKeyRepository) ListIDsByOwner(ctx context.Context, ownerID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&model.APIKey{}).
		Where("owner_id = ?", ownerID).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list api key ids: %w", err)
	}
	return ids, nil
}

// SetActive toggles a key
func (r *APIKeyRepository) SetActive(ctx context.Context, id int64, active bool) error {
	if err := r.db.WithContext(ctx).Model(&model.APIKey{}).
		Where("id = ?", id).
		Update("is_active", active).Error; err != nil {
		return fmt.Errorf("failed to update api key: %w", err)
	}
	return nil
}

// TouchLastUsed stamps lastUsedAt
func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, id int64, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.APIKey{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", at).Error; err != nil {
		return fmt.Errorf("failed to touch api key: %w", err)
	}
	return nil
}

// Delete removes a key by id
func (r *APIKeyRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.APIKey{}).Error; err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	return nil
}
