// services/artefact_service.go
package services

import (
	"errors"
	"log"

	"treasure-hunt-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ArtefactService owns the artefact catalog, per-hunt reward definitions and
// user inventories. Thin CRUD, so handlers live on the service directly.
type ArtefactService struct {
	DB *gorm.DB
}

func NewArtefactService(db *gorm.DB) *ArtefactService {
	return &ArtefactService{DB: db}
}

func hasRole(c *fiber.Ctx, role string) bool {
	roles, _ := c.Locals("user_roles").([]string)
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// CreateArtefact creates a catalog artefact (admin only).
func (s *ArtefactService) CreateArtefact(c *fiber.Ctx) error {
	if !hasRole(c, "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
	}

	var req struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Rarity      string  `json:"rarity"`
		ImageURL    *string `json:"image_url"`
		Effect      string  `json:"effect"`
		BaseValue   *int64  `json:"base_value"`
		IsTradeable *bool   `json:"is_tradeable"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" || req.Rarity == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name and rarity are required"})
	}

	artefact := &models.Artefact{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Rarity:      req.Rarity,
		ImageURL:    req.ImageURL,
		Effect:      req.Effect,
		BaseValue:   100,
		IsTradeable: true,
	}
	if req.BaseValue != nil {
		artefact.BaseValue = *req.BaseValue
	}
	if req.IsTradeable != nil {
		artefact.IsTradeable = *req.IsTradeable
	}

	if err := s.DB.Create(artefact).Error; err != nil {
		log.Printf("DB Error creating artefact: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create artefact"})
	}
	return c.Status(fiber.StatusCreated).JSON(artefact)
}

// UpdateArtefact updates catalog fields (admin only).
func (s *ArtefactService) UpdateArtefact(c *fiber.Ctx) error {
	if !hasRole(c, "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
	}
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid artefact ID"})
	}

	var artefact models.Artefact
	if err := s.DB.First(&artefact, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Artefact not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Rarity      *string `json:"rarity"`
		ImageURL    *string `json:"image_url"`
		Effect      *string `json:"effect"`
		BaseValue   *int64  `json:"base_value"`
		IsTradeable *bool   `json:"is_tradeable"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name != nil {
		artefact.Name = *req.Name
	}
	if req.Description != nil {
		artefact.Description = *req.Description
	}
	if req.Rarity != nil {
		artefact.Rarity = *req.Rarity
	}
	if req.ImageURL != nil {
		artefact.ImageURL = req.ImageURL
	}
	if req.Effect != nil {
		artefact.Effect = *req.Effect
	}
	if req.BaseValue != nil {
		artefact.BaseValue = *req.BaseValue
	}
	if req.IsTradeable != nil {
		artefact.IsTradeable = *req.IsTradeable
	}

	if err := s.DB.Save(&artefact).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update artefact"})
	}
	return c.JSON(artefact)
}

// DeleteArtefact removes a catalog artefact (admin only).
func (s *ArtefactService) DeleteArtefact(c *fiber.Ctx) error {
	if !hasRole(c, "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
	}
	id := c.Params("id")

	res := s.DB.Delete(&models.Artefact{}, "id = ?", id)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete artefact"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Artefact not found"})
	}
	return c.JSON(fiber.Map{"message": "Artefact deleted successfully"})
}

// ListArtefacts returns the full catalog, newest first.
func (s *ArtefactService) ListArtefacts(c *fiber.Ctx) error {
	var artefacts []models.Artefact
	if err := s.DB.Order("created_at DESC").Find(&artefacts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get artefacts"})
	}
	return c.JSON(fiber.Map{"artefacts": artefacts})
}

// GetArtefact returns one catalog artefact.
func (s *ArtefactService) GetArtefact(c *fiber.Ctx) error {
	var artefact models.Artefact
	if err := s.DB.First(&artefact, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Artefact not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(fiber.Map{"artefact": artefact})
}

// CreateHuntReward attaches a reward definition to a hunt (planner only).
// Artefact-type rewards must reference an existing catalog artefact.
func (s *ArtefactService) CreateHuntReward(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var req struct {
		TreasureHuntID string                `json:"treasure_hunt_id"`
		Type           models.HuntRewardType `json:"type"`
		Name           string                `json:"name"`
		Description    string                `json:"description"`
		Value          int64                 `json:"value"`
		Rarity         string                `json:"rarity"`
		ArtefactID     *string               `json:"artefact_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var hunt models.TreasureHunt
	if err := s.DB.First(&hunt, "id = ?", req.TreasureHuntID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Treasure hunt not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if hunt.Planner != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the planner can add rewards"})
	}

	if req.Type == models.HuntRewardTypeArtefact {
		if req.ArtefactID == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "artefact_id is required for artefact rewards"})
		}
		var count int64
		if err := s.DB.Model(&models.Artefact{}).Where("id = ?", *req.ArtefactID).Count(&count).Error; err != nil || count == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Artefact not found"})
		}
	}

	reward := &models.HuntReward{
		ID:             uuid.NewString(),
		TreasureHuntID: req.TreasureHuntID,
		Type:           req.Type,
		Name:           req.Name,
		Description:    req.Description,
		Value:          req.Value,
		Rarity:         req.Rarity,
		ArtefactID:     req.ArtefactID,
	}
	if err := s.DB.Create(reward).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create reward"})
	}
	return c.Status(fiber.StatusCreated).JSON(reward)
}

// ListHuntRewards returns the reward definitions for a hunt.
func (s *ArtefactService) ListHuntRewards(c *fiber.Ctx) error {
	var rewards []models.HuntReward
	if err := s.DB.Where("treasure_hunt_id = ?", c.Params("huntId")).
		Order("created_at DESC").Find(&rewards).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get rewards"})
	}
	return c.JSON(fiber.Map{"rewards": rewards})
}

// UserInventory returns the caller's owned artefact instances with their
// catalog details and listing state.
func (s *ArtefactService) UserInventory(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var instances []models.UserArtefact
	if err := s.DB.Preload("Artefact").
		Where("user_id = ?", userID).
		Order("obtained_at DESC").
		Find(&instances).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get inventory"})
	}
	return c.JSON(fiber.Map{"artefacts": instances})
}
