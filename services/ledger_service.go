package services

import (
	"errors"

	"treasure-hunt-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerService is the single choke point for crown balance mutation. Every
// change updates the balance and appends a CrownTransaction in the same
// database transaction; balances are never assigned directly anywhere else.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// Credit adds crowns to a user inside tx and records an earn transaction.
func (s *LedgerService) Credit(tx *gorm.DB, userID string, amount int64, description, referenceType, referenceID string) (*models.CrownTransaction, error) {
	return s.apply(tx, userID, amount, models.TransactionTypeEarn, description, referenceType, referenceID)
}

// Debit removes crowns from a user inside tx and records a spend transaction.
// Fails with ErrInsufficientCrowns when the balance would go negative; the
// guard is in the UPDATE itself so two concurrent spends cannot both pass.
func (s *LedgerService) Debit(tx *gorm.DB, userID string, amount int64, description, referenceType, referenceID string) (*models.CrownTransaction, error) {
	return s.apply(tx, userID, -amount, models.TransactionTypeSpend, description, referenceType, referenceID)
}

func (s *LedgerService) apply(tx *gorm.DB, userID string, delta int64, txType models.CrownTransactionType, description, referenceType, referenceID string) (*models.CrownTransaction, error) {
	q := tx.Model(&models.HuntUser{}).Where("external_user_id = ?", userID)
	if delta < 0 {
		q = q.Where("crown_balance >= ?", -delta)
	}
	res := q.UpdateColumn("crown_balance", gorm.Expr("crown_balance + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.HuntUser{}).Where("external_user_id = ?", userID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrUserNotFound
		}
		return nil, ErrInsufficientCrowns
	}

	var user models.HuntUser
	if err := tx.Where("external_user_id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}

	amount := delta
	if amount < 0 {
		amount = -amount
	}
	record := &models.CrownTransaction{
		ID:              uuid.NewString(),
		UserID:          userID,
		TransactionType: txType,
		Amount:          amount,
		Description:     description,
		ReferenceType:   referenceType,
		ReferenceID:     referenceID,
		BalanceBefore:   user.CrownBalance - delta,
		BalanceAfter:    user.CrownBalance,
	}
	if err := tx.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// Balance returns the current crown balance for a user.
func (s *LedgerService) Balance(userID string) (int64, error) {
	var user models.HuntUser
	err := s.DB.Where("external_user_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}
	return user.CrownBalance, nil
}

// History returns the user's ledger entries, newest first, plus the total row
// count for pagination.
func (s *LedgerService) History(userID string, page, limit int) ([]models.CrownTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := s.DB.Model(&models.CrownTransaction{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txs []models.CrownTransaction
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&txs).Error
	return txs, total, err
}
