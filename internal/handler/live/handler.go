package live

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/nsxzhou/haggle/backend/internal/store"
	"github.com/nsxzhou/haggle/backend/pkg/utils"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Handler WebSocket实时推送处理器
type Handler struct {
	hub          *Hub
	negotiations store.NegotiationStore
	upgrader     websocket.Upgrader
}

// NewHandler 创建WebSocket处理器
func NewHandler(hub *Hub, negotiations store.NegotiationStore) *Handler {
	return &Handler{
		hub:          hub,
		negotiations: negotiations,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/negotiations/{negotiationID}/live", h.handleLive)
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "negotiationID")

	if _, err := h.negotiations.Load(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNegotiationNotFound) {
			utils.RespondError(w, http.StatusNotFound, "negotiation not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[live] upgrade failed negotiation=%s: %v", id, err)
		return
	}

	c := h.hub.subscribe(id)
	defer h.hub.unsubscribe(id, c)
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// The feed is one-way; the read loop only notices the peer leaving.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("[live] write failed negotiation=%s: %v", id, err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
