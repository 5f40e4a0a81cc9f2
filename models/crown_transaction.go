package models

import (
	"time"
)

// CrownTransactionType is the direction of a ledger entry
type CrownTransactionType string

const (
	TransactionTypeEarn  CrownTransactionType = "earn"
	TransactionTypeSpend CrownTransactionType = "spend"
)

// Reference types recorded on ledger entries
const (
	ReferenceHuntEntry           = "hunt_entry"
	ReferenceHuntCompletion      = "hunt_completion"
	ReferenceMarketplaceSale     = "marketplace_sale"
	ReferenceMarketplacePurchase = "marketplace_purchase"
)

// CrownTransaction is an append-only ledger entry. Rows are never updated or
// deleted; replaying them from the initial balance must reproduce the user's
// current crown balance.
type CrownTransaction struct {
	ID              string               `gorm:"primaryKey;type:uuid" json:"id"`
	UserID          string               `gorm:"index;not null" json:"user_id"`
	TransactionType CrownTransactionType `gorm:"type:varchar(8);not null;index" json:"transaction_type"`
	Amount          int64                `gorm:"not null" json:"amount"`
	Description     string               `gorm:"type:text" json:"description"`
	ReferenceType   string               `gorm:"type:varchar(32)" json:"reference_type"`
	ReferenceID     string               `json:"reference_id"`
	BalanceBefore   int64                `gorm:"not null" json:"balance_before"`
	BalanceAfter    int64                `gorm:"not null" json:"balance_after"`
	CreatedAt       time.Time            `json:"created_at" gorm:"autoCreateTime"`
}
