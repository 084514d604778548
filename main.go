package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"clicker-game-backend/handlers"
	"clicker-game-backend/models"
	"clicker-game-backend/services"
	"clicker-game-backend/utils"
	"clicker-game-backend/workers"

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
		BodyLimit: 20 * 1024 * 1024, // item images only
	})

	// CORS — browser clients connect directly
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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Player{},
		&models.Item{},
		&models.PlayerItem{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}
	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	// --- External auth service (identity lives there, not here) ---
	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	authServiceToken := os.Getenv("AUTH_SERVICE_TOKEN")
	if authServiceToken == "" {
		log.Fatal("AUTH_SERVICE_TOKEN environment variable not set")
	}
	authClient := services.NewAuthServiceClient(authServiceURL, authServiceToken)

	gameService := services.NewGameService(db)
	itemService := services.NewItemService(db)
	sessionManager := services.NewSessionManager(gameService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Periodic leaderboard broadcast for the lifetime of the process
	sched, err := services.StartLeaderboardScheduler(sessionManager)
	if err != nil {
		log.Fatal("failed to start leaderboard scheduler:", err)
	}
	defer func() { _ = sched.Shutdown() }()

	go workers.ReapDeadSessions(ctx, sessionManager, 30*time.Second)

	// Websocket first: the route authenticates via its token path param and
	// must be registered before the bearer-auth group middleware on /game.
	handlers.SetupWebsocketRoutes(app, &handlers.WSHandler{
		Auth:     authClient,
		Game:     gameService,
		Sessions: sessionManager,
	})
	handlers.SetupGameRoutes(app, gameService, authClient)
	handlers.SetupItemRoutes(app, itemService, gameService, authClient)

	app.Static("/uploads", "./uploads")

	go func() {
		if err := app.Listen(":3001"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:3001")
	log.Println("✅ Leaderboard broadcaster running (every 5s)")
	log.Println("✅ Session reaper running (every 30s)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
