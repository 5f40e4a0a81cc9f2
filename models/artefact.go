package models

import (
	"time"
)

// Artefact is an immutable catalog template. Owned copies are UserArtefact
// rows; the template itself never changes hands.
type Artefact struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Rarity      string    `gorm:"type:varchar(16);not null" json:"rarity"` // common, rare, epic, legendary
	ImageURL    *string   `gorm:"type:text" json:"image_url,omitempty"`
	Effect      string    `json:"effect,omitempty"`
	BaseValue   int64     `gorm:"default:100" json:"base_value"`
	IsTradeable bool      `gorm:"default:true" json:"is_tradeable"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// UserArtefact is one owned copy of a catalog artefact. IsListed is the
// at-most-one-active-listing guard; ObtainedFrom records provenance (hunt id
// or marketplace purchase reference).
type UserArtefact struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string    `gorm:"index;not null" json:"user_id"`
	ArtefactID   string    `gorm:"index;not null" json:"artefact_id"`
	ObtainedAt   time.Time `json:"obtained_at" gorm:"autoCreateTime"`
	ObtainedFrom string    `json:"obtained_from"`
	IsListed     bool      `gorm:"default:false" json:"is_listed"`

	Artefact Artefact `gorm:"foreignKey:ArtefactID" json:"artefact,omitempty"`
}

// ListingStatus is the lifecycle of a marketplace listing
type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "active"
	ListingStatusSold      ListingStatus = "sold"
	ListingStatusCancelled ListingStatus = "cancelled"
)

// MarketplaceItem is a sale offer for one artefact instance.
type MarketplaceItem struct {
	ID             string        `gorm:"primaryKey;type:uuid" json:"id"`
	SellerID       string        `gorm:"index;not null" json:"seller_id"`
	UserArtefactID string        `gorm:"index;not null" json:"user_artefact_id"`
	Price          int64         `gorm:"not null" json:"price"`
	Status         ListingStatus `gorm:"type:varchar(16);default:'active';index" json:"status"`
	ListedAt       time.Time     `json:"listed_at" gorm:"autoCreateTime"`
	SoldAt         *time.Time    `json:"sold_at,omitempty"`
	BuyerID        *string       `json:"buyer_id,omitempty"`

	UserArtefact UserArtefact `gorm:"foreignKey:UserArtefactID" json:"user_artefact,omitempty"`
}
