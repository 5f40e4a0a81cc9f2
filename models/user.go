package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultCrownBalance is the starting balance for a freshly mirrored user.
const DefaultCrownBalance int64 = 1000

// HuntUser is a local snapshot of user data needed by the hunt engine.
// Identity fields are populated by the profile sync worker; CrownBalance is
// owned by this service and mutated only through the ledger service.
type HuntUser struct {
	ID             string  `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string  `gorm:"uniqueIndex;not null" json:"external_user_id"` // profile service UUID, matches X-User-ID
	Pseudo         string  `gorm:"index;not null" json:"pseudo"`
	Email          string  `json:"email,omitempty"`
	Role           string  `gorm:"type:varchar(16);default:'user'" json:"role"`
	CrownBalance   int64   `gorm:"not null;default:1000" json:"crown_balance"`
	LastName       *string `json:"last_name,omitempty"`
	SurName        *string `json:"sur_name,omitempty"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// RemoteProfile mirrors the JSON shape served by the profile sync service.
// Balance is deliberately absent: crowns never leave this service.
type RemoteProfile struct {
	ID         string     `json:"id"`
	ExternalID string     `json:"external_id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	LastName   *string    `json:"last_name,omitempty"`
	SurName    *string    `json:"sur_name,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}
