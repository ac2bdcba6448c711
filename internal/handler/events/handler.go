package events

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	eventsService "github.com/copilotchat/copilot/backend/internal/service/events"
)

// Handler pushes session change events to WebSocket clients so session
// list views stay current without polling.
type Handler struct {
	hub      *eventsService.Hub
	upgrader websocket.Upgrader
}

// New creates the events handler.
func New(hub *eventsService.Hub) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the event feed route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch, cancel := h.hub.Subscribe()
	defer cancel()

	// The client never sends application data; the read loop only notices
	// the connection closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Printf("[ws] event feed opened for %s", r.RemoteAddr)
	for {
		select {
		case <-closed:
			log.Printf("[ws] event feed closed for %s", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("[ws] failed to write event: %v", err)
				return
			}
		}
	}
}
