package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"treasure-hunt-system/handlers"
	"treasure-hunt-system/middleware"
	"treasure-hunt-system/models"
	"treasure-hunt-system/services"
	"treasure-hunt-system/utils"
	"treasure-hunt-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024, // 50MB, covers image uploads
	})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-User-Pseudo, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	// TranslateError surfaces unique-constraint races as gorm.ErrDuplicatedKey,
	// which the services map to AlreadyJoined/AlreadyCompleted errors.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.HuntUser{},
		&models.TreasureHunt{},
		&models.Step{},
		&models.HuntParticipation{},
		&models.StepCompletion{},
		&models.Winner{},
		&models.CrownTransaction{},
		&models.Artefact{},
		&models.UserArtefact{},
		&models.MarketplaceItem{},
		&models.HuntReward{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	ledgerService := services.NewLedgerService(db)
	huntService := services.NewHuntService(db, ledgerService)
	marketplaceService := services.NewMarketplaceService(db, ledgerService)
	artefactService := services.NewArtefactService(db)

	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}
	huntServiceToken := os.Getenv("HUNT_SERVICE_TOKEN")
	if huntServiceToken == "" {
		log.Fatal("HUNT_SERVICE_TOKEN environment variable not set")
	}

	syncWorker := workers.NewHuntUserSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", huntServiceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Println("Starting Hunt User Sync Worker...")
		syncWorker.Start(ctx)
	}()

	huntService.StartPublishScheduler()

	handlers.SetupHuntRoutes(app, huntService)
	handlers.SetupMarketplaceRoutes(app, marketplaceService, ledgerService)
	handlers.SetupArtefactRoutes(app, artefactService)

	app.Static("/uploads", "./uploads")

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Hunt User Sync Worker running")
	log.Println("✅ Publish scheduler running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
