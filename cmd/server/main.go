package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/fitversal/onboardchat/internal/auth"
	"github.com/fitversal/onboardchat/internal/config"
	"github.com/fitversal/onboardchat/internal/database"
	"github.com/fitversal/onboardchat/internal/routes"
	"github.com/fitversal/onboardchat/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Telemetry
	shutdownTelemetry, err := telemetry.Init(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to init telemetry: %v", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Printf("Telemetry shutdown: %v", err)
		}
	}()

	// 3. Connect to Database
	if cfg.ProfileStore == config.ProfileStorePostgres {
		if err := database.ConnectDB(ctx, cfg.DBUrl); err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.CloseDB()
	} else {
		log.Printf("Storing profiles as JSON files in %s", cfg.DataDir)
	}

	// 4. Token verification
	verifier, err := auth.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to init auth: %v", err)
	}
	if cfg.Auth.DevBypass {
		log.Println("AUTH_DEV_BYPASS is on; dev:<uid> tokens are accepted")
	}

	// 5. Setup Fiber
	app := fiber.New()

	// Middleware
	corsConfig := cors.Config{}
	if cfg.CORSAllowedOrigins != "" {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
		corsConfig.AllowCredentials = !strings.Contains(cfg.CORSAllowedOrigins, "*")
	}
	app.Use(cors.New(corsConfig))
	app.Use(logger.New())
	app.Use(recover.New())

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	chatService, err := routes.RegisterRoutes(app, cfg, database.DB, verifier)
	if err != nil {
		log.Fatalf("Failed to register routes: %v", err)
	}

	// 6. Start Server
	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		serveErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Printf("Server failed: %v", err)
		}
	case <-ctx.Done():
		log.Println("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	if err := chatService.Shutdown(shutdownCtx); err != nil {
		log.Printf("Pending program requests abandoned: %v", err)
	}
}
