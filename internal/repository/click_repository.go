package repository

import (
	"context"
	"fmt"

	"github.com/snupai/shortlink/internal/model"
	"gorm.io/gorm"
)

// ReferrerCount is one row of the referrer aggregation
type ReferrerCount struct {
	Domain string `json:"domain"`
	Clicks int64  `json:"clicks"`
}

// ClickRepository handles the append-only click event log
type ClickRepository struct {
	db *gorm.DB
}

// NewClickRepository creates a new click repository instance
func NewClickRepository(db *gorm.DB) *ClickRepository {
	return &ClickRepository{db: db}
}

// Create appends a click event
func (r *ClickRepository) Create(ctx context.Context, event *model.ClickEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create click event: %w", err)
	}
	return nil
}

// ListRecent returns the newest events of a link
func (r *ClickRepository) ListRecent(ctx context.Context, linkID int64, limit int) ([]model.ClickEvent, error) {
	var events []model.ClickEvent
	if err := r.db.WithContext(ctx).
		Where("link_id = ?", linkID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list click events: %w", err)
	}
	return events, nil
}

// TopReferrers aggregates referrer domains by count, ties by domain
func (r *ClickRepository) TopReferrers(ctx context.Context, linkID int64, limit int) ([]ReferrerCount, error) {
	var rows []ReferrerCount
	if err := r.db.WithContext(ctx).Model(&model.ClickEvent{}).
		Select("referrer AS domain, COUNT(*) AS clicks").
		Where("link_id = ?", linkID).
		Group("referrer").
		Order("clicks DESC").Order("domain ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate referrers: %w", err)
	}
	return rows, nil
}

// CountByLink counts the events of a link
func (r *ClickRepository) CountByLink(ctx context.Context, linkID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.ClickEvent{}).
		Where("link_id = ?", linkID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count click events: %w", err)
	}
	return count, nil
}

// Latest returns the newest event of a link; nil when there is none
func (r *ClickRepository) Latest(ctx context.Context, linkID int64) (*model.ClickEvent, error) {
	var event model.ClickEvent
	if err := r.db.WithContext(ctx).
		Where("link_id = ?", linkID).
		Order("created_at DESC").
		First(&event).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest click event: %w", err)
	}
	return &event, nil
}

// DeleteByLink removes every event of a link. Safe to repeat.
func (r *ClickRepository) DeleteByLink(ctx context.Context, linkID int64) (int64, error) {
	result := r.db.WithContext(ctx).Where("link_id = ?", linkID).Delete(&model.ClickEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete click events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
