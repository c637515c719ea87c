package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/snupai/shortlink/internal/model"
	"gorm.io/gorm"
)

// LinkRepository handles database operations for links
type LinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates a new link repository instance
func NewLinkRepository(db *gorm.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// Create inserts a link. A slug collision yields ErrDuplicate.
func (r *LinkRepository) Create(ctx context.Context, link *model.Link) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if translateError(err) == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

// GetBySlug retrieves a link by slug; nil when absent
func (r *LinkRepository) GetBySlug(ctx context.Context, slug string) (*model.Link, error) {
	var link model.Link
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&link).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return &link, nil
}

// GetByID retrieves a link by id; nil when absent
func (r *LinkRepository) GetByID(ctx context.Context, id int64) (*model.Link, error) {
	var link model.Link
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&link).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return &link, nil
}

// SlugExists reports whether a link already uses slug
func (r *LinkRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Link{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return count > 0, nil
}

// ListByOwner returns every link of an owner, newest first
func (r *LinkRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.Link, error) {
	var links []model.Link
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").Order("id DESC").
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// ListRecent returns the newest links across all owners
func (r *LinkRepository) ListRecent(ctx context.Context, limit int) ([]model.Link, error) {
	var links []model.Link
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// GetAllSlugs retrieves all slugs from the database
func (r *LinkRepository) GetAllSlugs(ctx context.Context) ([]string, error) {
	var slugs []string
	if err := r.db.WithContext(ctx).Model(&model.Link{}).
		Pluck("slug", &slugs).Error; err != nil {
		return nil, fmt.Errorf("failed to get all slugs: %w", err)
	}
	return slugs, nil
}

// CountByOwner returns link counts keyed by owner id
func (r *LinkRepository) CountByOwner(ctx context.Context) (map[int64]int64, error) {
	var rows []struct {
		OwnerID int64
		Total   int64
	}
	if err := r.db.WithContext(ctx).Model(&model.Link{}).
		Select("owner_id, COUNT(*) AS total").
		Group("owner_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count links: %w", err)
	}
	counts := make(map[int64]int64, len(rows))
	for _, row := range rows {
		counts[row.OwnerID] = row.Total
	}
	return counts, nil
}

// CountCreatedSince counts an owner's links created strictly after since
func (r *LinkRepository) CountCreatedSince(ctx context.Context, ownerID int64, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Link{}).
		Where("owner_id = ? AND created_at > ?", ownerID, since).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return count, nil
}

// OldestCreatedSince returns the oldest link created strictly after since; nil when none
func (r *LinkRepository) OldestCreatedSince(ctx context.Context, ownerID int64, since time.Time) (*model.Link, error) {
	var link model.Link
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND created_at > ?", ownerID, since).
		Order("created_at ASC").
		First(&link).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get oldest link: %w", err)
	}
	return &link, nil
}

// IncrementClickCount atomically bumps the counter and stamps lastClickedAt
func (r *LinkRepository) IncrementClickCount(ctx context.Context, id int64, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Link{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"click_count":     gorm.Expr("click_count + ?", 1),
			"last_clicked_at": at,
		}).Error; err != nil {
		return fmt.Errorf("failed to increment click count: %w", err)
	}
	return nil
}

// SetCounters overwrites the denormalized click fields
func (r *LinkRepository) SetCounters(ctx context.Context, id int64, count int64, lastClickedAt *time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Link{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"click_count":     count,
			"last_clicked_at": lastClickedAt,
		}).Error; err != nil {
		return fmt.Errorf("failed to set click counters: %w", err)
	}
	return nil
}

// FindInBatches walks every link in primary key order
func (r *LinkRepository) FindInBatches(ctx context.Context, size int, fn func([]model.Link) error) error {
	var batch []model.Link
	result := r.db.WithContext(ctx).
		FindInBatches(&batch, size, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	if result.Error != nil {
		return fmt.Errorf("failed to scan links: %w", result.Error)
	}
	return nil
}

// Delete removes a link by id and reports whether a row was removed
func (r *LinkRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Link{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete link: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
