package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/copilotchat/copilot/backend/internal/config"
	"github.com/copilotchat/copilot/backend/internal/handler"
	chatservice "github.com/copilotchat/copilot/backend/internal/service/chat"
	"github.com/copilotchat/copilot/backend/internal/service/completion"
	"github.com/copilotchat/copilot/backend/internal/service/events"
	sessionservice "github.com/copilotchat/copilot/backend/internal/service/session"
	"github.com/copilotchat/copilot/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	sessionStore := store.NewFileStore(cfg.Store.Path)
	hub := events.NewHub()
	sessions := sessionservice.NewService(sessionStore, hub)

	creds := completion.NewCredentials()
	if cfg.AI.APIKey != "" {
		creds.Set(cfg.AI.APIKey)
		log.Println("completion credential preset from environment")
	} else {
		log.Println("no completion credential configured, waiting for user to supply one")
	}

	client := completion.NewClient(creds, completion.Config{
		Model:       cfg.AI.Model,
		BaseURL:     cfg.AI.BaseURL,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
	})

	controller := chatservice.NewController(creds, client, sessions)

	router := handler.NewRouter(sessions, controller, hub, cfg.Auth)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("CoPilot backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
