package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/copilotchat/copilot/backend/internal/config"
	chatHandler "github.com/copilotchat/copilot/backend/internal/handler/chat"
	eventsHandler "github.com/copilotchat/copilot/backend/internal/handler/events"
	sessionHandler "github.com/copilotchat/copilot/backend/internal/handler/session"
	middlewarePkg "github.com/copilotchat/copilot/backend/internal/middleware"
	chatService "github.com/copilotchat/copilot/backend/internal/service/chat"
	eventsService "github.com/copilotchat/copilot/backend/internal/service/events"
	sessionService "github.com/copilotchat/copilot/backend/internal/service/session"
	"github.com/copilotchat/copilot/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(sessions *sessionService.Service, controller *chatService.Controller, hub *eventsService.Hub, authCfg config.AuthConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		if authCfg.Token != "" {
			api.Use(middlewarePkg.RequireAuth(middlewarePkg.NewStaticVerifier(authCfg.Token)))
		} else {
			log.Println("auth token not configured, API is open")
		}

		sessionHandler.New(sessions).RegisterRoutes(api)
		chatHandler.New(controller).RegisterRoutes(api)
		eventsHandler.New(hub).RegisterRoutes(api)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "not found")
	})

	return r
}
