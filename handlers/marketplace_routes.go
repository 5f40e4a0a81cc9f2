// handlers/marketplace_routes.go
package handlers

import (
	"strconv"

	"treasure-hunt-system/middleware"
	"treasure-hunt-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMarketplaceRoutes(app *fiber.App, marketService *services.MarketplaceService, ledger *services.LedgerService) {
	app.Get("/marketplace", func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		minPrice, _ := strconv.ParseInt(c.Query("minPrice", "0"), 10, 64)
		maxPrice, _ := strconv.ParseInt(c.Query("maxPrice", "0"), 10, 64)

		items, total, err := marketService.BrowseListings(services.BrowseFilters{
			Rarity:   c.Query("rarity"),
			MinPrice: minPrice,
			MaxPrice: maxPrice,
		}, page, limit)
		if err != nil {
			return huntError(c, err)
		}
		return c.JSON(fiber.Map{
			"items": items,
			"pagination": fiber.Map{
				"page":  page,
				"limit": limit,
				"total": total,
			},
		})
	})

	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/marketplace/my-listings", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		listings, err := marketService.MyListings(userID)
		if err != nil {
			return huntError(c, err)
		}
		return c.JSON(fiber.Map{"listings": listings})
	})

	secured.Get("/marketplace/transactions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		limit, _ := strconv.Atoi(c.Query("limit", "20"))

		txs, total, err := ledger.History(userID, page, limit)
		if err != nil {
			return huntError(c, err)
		}
		return c.JSON(fiber.Map{
			"transactions": txs,
			"pagination": fiber.Map{
				"page":  page,
				"limit": limit,
				"total": total,
			},
		})
	})

	secured.Get("/marketplace/balance", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		balance, err := ledger.Balance(userID)
		if err != nil {
			return huntError(c, err)
		}
		return c.JSON(fiber.Map{"crown_balance": balance})
	})

	secured.Post("/marketplace/list", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req struct {
			UserArtefactID string `json:"user_artefact_id"`
			Price          int64  `json:"price"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		listing, err := marketService.ListArtefact(userID, req.UserArtefactID, req.Price)
		if err != nil {
			return huntError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Artefact listed successfully",
			"listing": listing,
		})
	})

	secured.Post("/marketplace/purchase/:itemId", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		newBalance, err := marketService.PurchaseListing(userID, c.Params("itemId"))
		if err != nil {
			return huntError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":           "Purchase successful!",
			"new_crown_balance": newBalance,
		})
	})

	secured.Delete("/marketplace/cancel/:itemId", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := marketService.CancelListing(userID, c.Params("itemId")); err != nil {
			return huntError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Listing cancelled successfully"})
	})
}
