package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"treasure-hunt-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MarketplaceService struct {
	DB     *gorm.DB
	Ledger *LedgerService
}

func NewMarketplaceService(db *gorm.DB, ledger *LedgerService) *MarketplaceService {
	return &MarketplaceService{DB: db, Ledger: ledger}
}

// ListArtefact puts an owned artefact instance up for sale. The instance's
// IsListed flag enforces at most one active listing per instance.
func (s *MarketplaceService) ListArtefact(userID, userArtefactID string, price int64) (*models.MarketplaceItem, error) {
	if price < 1 {
		return nil, ErrInvalidPrice
	}

	var item *models.MarketplaceItem
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var instance models.UserArtefact
		if err := tx.Preload("Artefact").
			Where("id = ? AND user_id = ?", userArtefactID, userID).
			First(&instance).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrArtefactNotFound
			}
			return err
		}
		if instance.IsListed {
			return ErrAlreadyListed
		}
		if !instance.Artefact.IsTradeable {
			return ErrNotTradeable
		}

		item = &models.MarketplaceItem{
			ID:             uuid.NewString(),
			SellerID:       userID,
			UserArtefactID: instance.ID,
			Price:          price,
			Status:         models.ListingStatusActive,
		}
		if err := tx.Create(item).Error; err != nil {
			return err
		}

		// Guarded flip: a racing second List on the same instance sees
		// zero rows affected and fails instead of double-listing.
		res := tx.Model(&models.UserArtefact{}).
			Where("id = ? AND is_listed = ?", instance.ID, false).
			UpdateColumn("is_listed", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyListed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// PurchaseListing buys an active listing in a single transaction: flips it
// to sold, transfers the artefact instance, debits the buyer and credits the
// seller. Returns the buyer's new balance. A concurrent purchase of the same listing
// loses the guarded status update and gets ErrListingNotAvailable.
func (s *MarketplaceService) PurchaseListing(buyerID, itemID string) (int64, error) {
	var newBalance int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var item models.MarketplaceItem
		if err := tx.Where("id = ?", itemID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrListingNotAvailable
			}
			return err
		}
		if item.Status != models.ListingStatusActive {
			return ErrListingNotAvailable
		}
		if item.SellerID == buyerID {
			return ErrSelfPurchase
		}

		soldAt := time.Now()
		res := tx.Model(&models.MarketplaceItem{}).
			Where("id = ? AND status = ?", itemID, models.ListingStatusActive).
			Updates(map[string]interface{}{
				"status":   models.ListingStatusSold,
				"buyer_id": buyerID,
				"sold_at":  soldAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrListingNotAvailable
		}

		res = tx.Model(&models.UserArtefact{}).
			Where("id = ? AND user_id = ? AND is_listed = ?", item.UserArtefactID, item.SellerID, true).
			Updates(map[string]interface{}{
				"user_id":       buyerID,
				"is_listed":     false,
				"obtained_at":   soldAt,
				"obtained_from": fmt.Sprintf("marketplace_purchase_%s", itemID),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrListingNotAvailable
		}

		buyerTx, err := s.Ledger.Debit(tx, buyerID, item.Price,
			fmt.Sprintf("Purchased artefact instance %s", item.UserArtefactID),
			models.ReferenceMarketplacePurchase, itemID)
		if err != nil {
			return err
		}
		newBalance = buyerTx.BalanceAfter

		// Seller credit re-reads the seller's own balance inside the
		// ledger; it is never derived from the buyer's snapshot.
		if _, err := s.Ledger.Credit(tx, item.SellerID, item.Price,
			fmt.Sprintf("Sold artefact instance %s", item.UserArtefactID),
			models.ReferenceMarketplaceSale, itemID); err != nil {
			return err
		}

		log.Printf("💰 Listing %s sold to %s for %d crowns", itemID, buyerID, item.Price)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// CancelListing withdraws an active listing. Seller only; no crown movement.
func (s *MarketplaceService) CancelListing(userID, itemID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var item models.MarketplaceItem
		if err := tx.Where("id = ?", itemID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrListingNotAvailable
			}
			return err
		}
		if item.SellerID != userID {
			return ErrNotSeller
		}
		if item.Status != models.ListingStatusActive {
			return ErrListingNotAvailable
		}

		res := tx.Model(&models.MarketplaceItem{}).
			Where("id = ? AND status = ?", itemID, models.ListingStatusActive).
			UpdateColumn("status", models.ListingStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrListingNotAvailable
		}

		return tx.Model(&models.UserArtefact{}).
			Where("id = ? AND is_listed = ?", item.UserArtefactID, true).
			UpdateColumn("is_listed", false).Error
	})
}

// BrowseFilters narrows the active-listing query.
type BrowseFilters struct {
	Rarity   string
	MinPrice int64
	MaxPrice int64
}

// BrowseListings returns active listings (with artefact details preloaded),
// newest first.
func (s *MarketplaceService) BrowseListings(filters BrowseFilters, page, limit int) ([]models.MarketplaceItem, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	build := func() *gorm.DB {
		query := s.DB.Model(&models.MarketplaceItem{}).
			Where("marketplace_items.status = ?", models.ListingStatusActive)
		if filters.MinPrice > 0 {
			query = query.Where("marketplace_items.price >= ?", filters.MinPrice)
		}
		if filters.MaxPrice > 0 {
			query = query.Where("marketplace_items.price <= ?", filters.MaxPrice)
		}
		if filters.Rarity != "" && filters.Rarity != "all" {
			query = query.Joins("JOIN user_artefacts ON user_artefacts.id = marketplace_items.user_artefact_id").
				Joins("JOIN artefacts ON artefacts.id = user_artefacts.artefact_id").
				Where("artefacts.rarity = ?", filters.Rarity)
		}
		return query
	}

	var total int64
	if err := build().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.MarketplaceItem
	err := build().Preload("UserArtefact").Preload("UserArtefact.Artefact").
		Order("marketplace_items.listed_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&items).Error
	return items, total, err
}

// MyListings returns all of the caller's listings regardless of status.
func (s *MarketplaceService) MyListings(userID string) ([]models.MarketplaceItem, error) {
	var items []models.MarketplaceItem
	err := s.DB.Preload("UserArtefact").Preload("UserArtefact.Artefact").
		Where("seller_id = ?", userID).
		Order("listed_at DESC").
		Find(&items).Error
	return items, err
}
