package model

import (
	"github.com/snupai/shortlink/internal/utils"
	"gorm.io/gorm"
)

func assignID(id *int64) error {
	if *id != 0 {
		return nil
	}
	next, err := utils.GenerateID()
	if err != nil {
		return err
	}
	*id = next
	return nil
}

func (a *Account) BeforeCreate(tx *gorm.DB) error         { return assignID(&a.ID) }
func (l *Link) BeforeCreate(tx *gorm.DB) error            { return assignID(&l.ID) }
func (c *ClickEvent) BeforeCreate(tx *gorm.DB) error      { return assignID(&c.ID) }
func (k *APIKey) BeforeCreate(tx *gorm.DB) error          { return assignID(&k.ID) }
func (r *RateLimitRecord) BeforeCreate(tx *gorm.DB) error { return assignID(&r.ID) }

// All lists every document for auto-migration
func All() []interface{} {
	return []interface{}{
		&Account{},
		&Link{},
		&ClickEvent{},
		&APIKey{},
		&RateLimitRecord{},
	}
}
