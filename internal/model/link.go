package model

import (
	"time"
)

// Link represents a short link owned by an account
type Link struct {
	ID            int64      `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Slug          string     `gorm:"uniqueIndex;type:varchar(64);not null" json:"slug"`
	URL           string     `gorm:"type:varchar(2048);not null" json:"url"`
	OwnerID       int64      `gorm:"index:idx_links_owner_created,priority:1;not null" json:"owner_id,string"`
	CreatedAt     time.Time  `gorm:"index:idx_links_owner_created,priority:2" json:"created_at"`
	ClickCount    int64      `gorm:"not null;default:0" json:"click_count"`
	LastClickedAt *time.Time `json:"last_clicked_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	MaxClicks     *int64     `json:"max_clicks,omitempty"`
}

// TableName specifies the table name for Link
func (Link) TableName() string {
	return "links"
}

// IsExpired reports whether the link expiry has passed at now
func (l *Link) IsExpired(now time.Time) bool {
	if l.ExpiresAt == nil {
		return false
	}
	return now.After(*l.ExpiresAt)
}

// IsExhausted reports whether the click cap has been reached
func (l *Link) IsExhausted() bool {
	if l.MaxClicks == nil {
		return false
	}
	return l.ClickCount >= *l.MaxClicks
}

// ClickEvent is one recorded visit to a link's redirect endpoint
type ClickEvent struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	LinkID    int64     `gorm:"index:idx_click_events_link_created,priority:1;not null" json:"link_id,string"`
	CreatedAt time.Time `gorm:"index:idx_click_events_link_created,priority:2" json:"created_at"`
	Referrer  string    `gorm:"type:varchar(255);not null" json:"referrer"`
	UserAgent string    `gorm:"type:varchar(512)" json:"user_agent,omitempty"`
}

// TableName specifies the table name for ClickEvent
func (ClickEvent) TableName() string {
	return "click_events"
}
