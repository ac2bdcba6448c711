package session

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/copilotchat/copilot/backend/internal/model/chat"
	sessionService "github.com/copilotchat/copilot/backend/internal/service/session"
	"github.com/copilotchat/copilot/backend/pkg/utils"
)

// Handler exposes session bookkeeping over HTTP.
type Handler struct {
	sessions *sessionService.Service
}

// New creates the session handler.
func New(sessions *sessionService.Service) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes mounts the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{sessionID}", h.handleGet)
		r.Delete("/{sessionID}", h.handleDelete)
		r.Post("/{sessionID}/restart", h.handleRestart)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.sessions.GetAll())
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	welcome := chat.NewWelcomeMessage()
	session, err := h.sessions.Create(&welcome)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	session, err := h.sessions.GetByID(id)
	if err != nil {
		if errors.Is(err, sessionService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.sessions.Delete(id); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRestart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	restarted, err := h.sessions.Restart(id)
	if err != nil {
		if errors.Is(err, sessionService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to restart session")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, restarted)
}
