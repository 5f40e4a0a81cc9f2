// handlers/artefact_routes.go
package handlers

import (
	"treasure-hunt-system/middleware"
	"treasure-hunt-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupArtefactRoutes(app *fiber.App, artefactService *services.ArtefactService) {
	app.Get("/artefacts", artefactService.ListArtefacts)
	app.Get("/artefacts/:id", artefactService.GetArtefact)
	app.Get("/rewards/treasure-hunt/:huntId", artefactService.ListHuntRewards)

	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Post("/artefacts", artefactService.CreateArtefact)
	secured.Put("/artefacts/:id", artefactService.UpdateArtefact)
	secured.Delete("/artefacts/:id", artefactService.DeleteArtefact)
	secured.Post("/rewards", artefactService.CreateHuntReward)
	secured.Get("/user/artefacts", artefactService.UserInventory)
}
