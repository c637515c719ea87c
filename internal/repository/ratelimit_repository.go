package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/snupai/shortlink/internal/model"
	"gorm.io/gorm"
)

// RateLimitRepository stores one row per accepted request
type RateLimitRepository struct {
	db *gorm.DB
}

// NewRateLimitRepository creates a new rate limit repository instance
func NewRateLimitRepository(db *gorm.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// CountSince counts records of subject with timestamp strictly after since
func (r *RateLimitRepository) CountSince(ctx context.Context, subject string, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.RateLimitRecord{}).
		Where("subject = ? AND timestamp > ?", subject, since).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count rate limit records: %w", err)
	}
	return count, nil
}

// OldestSince returns the oldest timestamp after since; nil when none
func (r *RateLimitRepository) OldestSince(ctx context.Context, subject string, since time.Time) (*time.Time, error) {
	var record model.RateLimitRecord
	if err := r.db.WithContext(ctx).
		Where("subject = ? AND timestamp > ?", subject, since).
		Order("timestamp ASC").
		First(&record).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get oldest rate limit record: %w", err)
	}
	return &record.Timestamp, nil
}

// Insert records one accepted request
func (r *RateLimitRepository) Insert(ctx context.Context, subject string, at time.Time) error {
	record := &model.RateLimitRecord{Subject: subject, Timestamp: at}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to insert rate limit record: %w", err)
	}
	return nil
}

// PruneBefore deletes records of subject at or before cutoff
func (r *RateLimitRepository) PruneBefore(ctx context.Context, subject string, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("subject = ? AND timestamp <= ?", subject, cutoff).
		Delete(&model.RateLimitRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune rate limit records: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteSubjects removes every record of the given subjects
func (r *RateLimitRepository) DeleteSubjects(ctx context.Context, subjects []string) error {
	if len(subjects) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Where("subject IN ?", subjects).
		Delete(&model.RateLimitRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete rate limit records: %w", err)
	}
	return nil
}
