// handlers/hunt_routes.go
package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"treasure-hunt-system/middleware"
	"treasure-hunt-system/services"
	"treasure-hunt-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// huntError maps core service errors to HTTP responses.
func huntError(c *fiber.Ctx, err error) error {
	var prior *services.PriorStepsIncompleteError
	if errors.As(err, &prior) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":        "Previous steps must be completed first",
			"requiredStep": prior.RequiredStepID,
		})
	}
	var required *services.ProofRequiredError
	if errors.As(err, &required) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": required.Error()})
	}
	var failed *services.ValidationFailedError
	if errors.As(err, &failed) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"message": failed.Reason,
		})
	}

	switch {
	case errors.Is(err, services.ErrHuntNotFound),
		errors.Is(err, services.ErrStepNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrArtefactNotFound),
		errors.Is(err, services.ErrListingNotAvailable):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotPlanner),
		errors.Is(err, services.ErrNotSeller):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyJoined),
		errors.Is(err, services.ErrNotJoined),
		errors.Is(err, services.ErrHuntNotPublished),
		errors.Is(err, services.ErrInsufficientCrowns),
		errors.Is(err, services.ErrStepAlreadyCompleted),
		errors.Is(err, services.ErrHuntAlreadyCompleted),
		errors.Is(err, services.ErrDuplicateStepOrder),
		errors.Is(err, services.ErrAlreadyListed),
		errors.Is(err, services.ErrNotTradeable),
		errors.Is(err, services.ErrSelfPurchase),
		errors.Is(err, services.ErrInvalidPrice):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}

func SetupHuntRoutes(app *fiber.App, huntService *services.HuntService) {
	app.Get("/hunts", func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		limit, _ := strconv.Atoi(c.Query("limit", "10"))
		hunts, total, err := huntService.ListHunts(page, limit)
		if err != nil {
			return huntError(c, err)
		}
		return c.JSON(fiber.Map{
			"treasureHunts": hunts,
			"pagination": fiber.Map{
				"page":  page,
				"limit": limit,
				"total": total,
			},
		})
	})

	app.Get("/hunts/:id", func(c *fiber.Ctx) error {
		hunt, err := huntService.GetHunt(c.Params("id"))
		if err != nil {
			return huntError(c, err)
		}
		return c.JSON(fiber.Map{"treasureHunt": hunt})
	})

	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/hunts", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		pseudo, _ := c.Locals("user_pseudo").(string)

		var input services.CreateHuntInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if input.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
		}

		hunt, err := huntService.CreateHunt(userID, pseudo, input)
		if err != nil {
			return huntError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":      "Treasure hunt created successfully",
			"treasureHunt": hunt,
		})
	})

	secured.Delete("/hunts/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := huntService.DeleteHunt(userID, c.Params("id")); err != nil {
			return huntError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Treasure hunt deleted successfully"})
	})

	secured.Post("/hunts/:id/image", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		huntID := c.Params("id")

		hunt, err := huntService.GetHunt(huntID)
		if err != nil {
			return huntError(c, err)
		}
		if hunt.Planner != userID {
			return huntError(c, services.ErrNotPlanner)
		}

		fileHeader, err := c.FormFile("image")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image file is required"})
		}

		var imageURL string
		key := fmt.Sprintf("hunts/%s/%s", huntID, uuid.NewString())
		if utils.R2Enabled() {
			imageURL, err = utils.UploadImageToR2(fileHeader, key)
		} else {
			path := utils.GetUploadPath(key)
			err = utils.SaveFile(fileHeader, path)
			imageURL = "/" + path
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store image"})
		}

		hunt.ImageURL = &imageURL
		if err := huntService.DB.Save(hunt).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update hunt"})
		}
		return c.JSON(fiber.Map{"image_url": imageURL})
	})

	secured.Post("/hunts/:id/join", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		participation, err := huntService.JoinHunt(userID, c.Params("id"))
		if err != nil {
			return huntError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":       "Successfully joined treasure hunt",
			"participation": participation,
		})
	})

	secured.Get("/hunts/:id/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		progress, err := huntService.GetProgress(userID, c.Params("id"))
		if err != nil {
			return huntError(c, err)
		}
		return c.JSON(fiber.Map{"progress": progress})
	})

	secured.Get("/hunts/user/completed", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		completed, err := huntService.CompletedHunts(userID)
		if err != nil {
			return huntError(c, err)
		}
		return c.JSON(fiber.Map{"completedHunts": completed})
	})

	secured.Get("/hunts/:id/steps", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		steps, err := huntService.ListSteps(userID, c.Params("id"))
		if err != nil {
			return huntError(c, err)
		}
		return c.JSON(fiber.Map{"steps": steps})
	})

	secured.Post("/steps", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req struct {
			TreasureHuntID string `json:"treasure_hunt_id"`
			services.StepInput
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		step, err := huntService.AddStep(userID, req.TreasureHuntID, req.StepInput)
		if err != nil {
			return huntError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Step created successfully",
			"step":    step,
		})
	})

	secured.Put("/steps/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var update services.StepUpdate
		if err := c.BodyParser(&update); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		step, err := huntService.UpdateStep(userID, c.Params("id"), update)
		if err != nil {
			return huntError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Step updated successfully", "step": step})
	})

	secured.Delete("/steps/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := huntService.DeleteStep(userID, c.Params("id")); err != nil {
			return huntError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Step deleted successfully"})
	})

	secured.Post("/steps/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req struct {
			StepID         string                 `json:"step_id"`
			TreasureHuntID string                 `json:"treasure_hunt_id"`
			ValidationData services.ProofPayload  `json:"validation_data"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		result, err := huntService.SubmitStepCompletion(userID, req.TreasureHuntID, req.StepID, req.ValidationData)
		if err != nil {
			return huntError(c, err)
		}
		return c.JSON(fiber.Map{
			"success":                  true,
			"message":                  result.Message,
			"step_completed":           true,
			"treasure_hunt_completed":  result.HuntCompleted,
			"position":                 result.Position,
			"crown_reward":             result.RewardTotal,
			"stepCompletion":           result.Completion,
			"progress":                 result.Progress,
		})
	})
}
