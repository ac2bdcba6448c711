package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	modelchat "github.com/copilotchat/copilot/backend/internal/model/chat"
	chatService "github.com/copilotchat/copilot/backend/internal/service/chat"
	"github.com/copilotchat/copilot/backend/internal/service/completion"
	sessionService "github.com/copilotchat/copilot/backend/internal/service/session"
)

// Handler exposes the conversation controller over HTTP.
type Handler struct {
	controller *chatService.Controller
}

// New creates the chat handler.
func New(controller *chatService.Controller) *Handler {
	return &Handler{controller: controller}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Get("/", h.handleGetState)
		r.Post("/credential", h.handleSubmitCredential)
		r.Post("/message", h.handleSendMessage)
		r.Post("/select", h.handleSelectSession)
	})
}

// stateView is the controller snapshot returned to clients. Completion
// failure detail stays out of it, only a generic notice is surfaced.
type stateView struct {
	State     chatService.State   `json:"state"`
	SessionID string              `json:"sessionId,omitempty"`
	Messages  []modelchat.Message `json:"messages"`
}

func (h *Handler) snapshot() stateView {
	return stateView{
		State:     h.controller.State(),
		SessionID: h.controller.SessionID(),
		Messages:  h.controller.Messages(),
	}
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.snapshot())
}

func (h *Handler) handleSubmitCredential(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.controller.SubmitCredential(payload.Key); err != nil {
		respondError(w, http.StatusBadRequest, "credential must not be empty")
		return
	}
	respondJSON(w, http.StatusOK, h.snapshot())
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.controller.SendMessage(r.Context(), payload.Content)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, h.snapshot())
	case errors.Is(err, chatService.ErrEmptyMessage):
		respondError(w, http.StatusBadRequest, "message content must not be empty")
	case errors.Is(err, chatService.ErrCredentialRequired), errors.Is(err, completion.ErrCredentialMissing):
		respondError(w, http.StatusConflict, "please set your API key first")
	case errors.Is(err, chatService.ErrBusy):
		respondError(w, http.StatusTooManyRequests, "a response is still being generated")
	default:
		// Remote failure: the user message is retained, detail is logged
		// by the controller.
		respondError(w, http.StatusBadGateway, "failed to get a response, please try again")
	}
}

func (h *Handler) handleSelectSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.controller.SelectSession(payload.SessionID); err != nil {
		if errors.Is(err, sessionService.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to select session")
		return
	}
	respondJSON(w, http.StatusOK, h.snapshot())
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
