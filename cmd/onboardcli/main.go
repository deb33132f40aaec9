package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fitversal/onboardchat/internal/chat"
	"github.com/fitversal/onboardchat/internal/services"
	"github.com/fitversal/onboardchat/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	dataDir := flag.String("data", envOr("DATA_DIR", "data/profiles"), "directory holding profile JSON files")
	server := flag.String("server", envOr("ONBOARD_SERVER_URL", "http://localhost:8080"), "base URL of the onboarding server")
	userID := flag.String("user", envOr("ONBOARD_USER", "local"), "profile key to resume or create")
	email := flag.String("email", "", "email recorded on the profile")
	restart := flag.Bool("restart", false, "ask every step again even when already answered")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewJSONStore(*dataDir)
	if err != nil {
		log.Fatalf("Failed to open profile store: %v", err)
	}
	profiles := services.NewProfileService(store)
	chats := services.NewChatService(profiles, chat.NewHTTPTransport(*server, nil), nil)

	w := &wizard{
		in:       bufio.NewScanner(os.Stdin),
		out:      os.Stdout,
		userID:   *userID,
		email:    *email,
		restart:  *restart,
		profiles: profiles,
		chats:    chats,
	}
	runErr := w.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := chats.Shutdown(shutdownCtx); err != nil {
		log.Printf("Program request still running: %v", err)
	}
	if runErr != nil {
		log.Fatal(runErr)
	}
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
