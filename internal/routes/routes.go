package routes

import (
	"fmt"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fitversal/onboardchat/internal/auth"
	"github.com/fitversal/onboardchat/internal/config"
	"github.com/fitversal/onboardchat/internal/handlers"
	"github.com/fitversal/onboardchat/internal/middleware"
	"github.com/fitversal/onboardchat/internal/onboarding"
	"github.com/fitversal/onboardchat/internal/repository"
	"github.com/fitversal/onboardchat/internal/services"
	"github.com/fitversal/onboardchat/internal/storage"
	chatws "github.com/fitversal/onboardchat/internal/websocket"
)

// RegisterRoutes builds the service graph and mounts every route. The
// returned chat service owns background program requests and must be
// shut down by the caller.
func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, verifier auth.TokenVerifier) (*services.ChatService, error) {
	persister, err := newProfilePersister(cfg, db)
	if err != nil {
		return nil, err
	}

	proxyService := services.NewProxyService(cfg.ProgramServiceURL, nil)
	profileService := services.NewProfileService(persister)
	chatHub := chatws.NewHub()
	go chatHub.Run()
	chatService := services.NewChatService(profileService, services.NewProxyTransport(proxyService), chatHub)

	proxyHandler := handlers.NewProxyHandler(proxyService)
	onboardingHandler := handlers.NewOnboardingHandler(profileService)
	chatHandler := handlers.NewChatHandler(chatService, chatHub)

	requireAuth := middleware.AuthRequired(verifier, cfg.Auth.CookieName)

	api := app.Group("/api")
	api.Post("/chat_with_agent", proxyHandler.ChatWithAgent)
	api.Post("/test/generate_program_from_chat_history_chuncks", proxyHandler.GenerateProgram)

	authProtected := api.Group("/v1", requireAuth)

	wizard := authProtected.Group("/onboarding")
	wizard.Get("/profile", onboardingHandler.GetProfile)
	wizard.Patch("/profile", onboardingHandler.UpdateProfile)
	wizard.Get("/coaches", onboardingHandler.ListCoaches)
	wizard.Post("/steps/auth", onboardingHandler.SubmitAuth)
	wizard.Post("/steps/coach-selection", onboardingHandler.SubmitCoachSelection)
	wizard.Post("/steps/personal-info", onboardingHandler.SubmitPersonalInfo)
	wizard.Post("/steps/preferences", onboardingHandler.SubmitPreferences)

	chatRoutes := authProtected.Group("/chat")
	chatRoutes.Get("", chatHandler.GetSession)
	chatRoutes.Get("/snapshot", chatHandler.GetSnapshot)
	chatRoutes.Post("/messages", chatHandler.SendMessage)
	chatRoutes.Post("/messages/:index/retry", chatHandler.RetryMessage)
	chatRoutes.Post("/skip", chatHandler.Skip)
	chatRoutes.Get("/ws", chatHandler.WebSocketUpgrade, websocket.New(chatHandler.HandleWebSocket))

	pages := app.Group("/onboarding", middleware.PageGuard(verifier, cfg.Auth.CookieName))
	pages.Get("/:step", onboardingHandler.StepPage)

	if err := registerDocsRoutes(app, cfg); err != nil {
		return nil, err
	}
	return chatService, nil
}

func newProfilePersister(cfg *config.Config, db *pgxpool.Pool) (onboarding.Persister, error) {
	switch cfg.ProfileStore {
	case config.ProfileStorePostgres:
		if db == nil {
			return nil, fmt.Errorf("profile store %q requires a database connection", cfg.ProfileStore)
		}
		return repository.NewProfileRepository(db), nil
	case config.ProfileStoreFile:
		return storage.NewJSONStore(cfg.DataDir)
	default:
		return nil, fmt.Errorf("invalid profile store %q", cfg.ProfileStore)
	}
}
