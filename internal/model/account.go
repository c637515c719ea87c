package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account is the owner of links and API keys
type Account struct {
	ID            int64      `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Subject       string     `gorm:"uniqueIndex;type:varchar(191);not null" json:"-"`
	Email         string     `gorm:"type:varchar(255);index" json:"email"`
	Role          string     `gorm:"type:varchar(16);not null" json:"role"`
	Banned        bool       `gorm:"not null" json:"banned"`
	BannedAt      *time.Time `json:"banned_at,omitempty"`
	APIQuotaLimit *int       `json:"api_quota_limit,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}

// IsAdmin reports whether the account carries the admin role
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// APIKey authenticates programmatic link creation. Only the digest of the
// secret is persisted.
type APIKey struct {
	ID         int64      `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	OwnerID    int64      `gorm:"index;not null" json:"-"`
	KeyHash    string     `gorm:"uniqueIndex;type:varchar(64);not null" json:"-"`
	Name       string     `gorm:"type:varchar(64);not null" json:"name"`
	IsActive   bool       `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// TableName specifies the table name for APIKey
func (APIKey) TableName() string {
	return "api_keys"
}

// Identifier returns a non-reversible display handle for the key
func (k *APIKey) Identifier() string {
	if len(k.KeyHash) < 12 {
		return k.KeyHash + "..."
	}
	return k.KeyHash[:12] + "..."
}

// RateLimitRecord is one accepted request inside a burst window.
// Records older than the window carry no meaning and may be pruned.
type RateLimitRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false"`
	Subject   string    `gorm:"type:varchar(64);index:idx_rate_limit_subject_time,priority:1;not null"`
	Timestamp time.Time `gorm:"index:idx_rate_limit_subject_time,priority:2;not null"`
}

// TableName specifies the table name for RateLimitRecord
func (RateLimitRecord) TableName() string {
	return "rate_limit_records"
}
