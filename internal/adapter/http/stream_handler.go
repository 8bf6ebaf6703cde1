package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/mejaqr/mejaqr/internal/adapter/bus"
	"github.com/mejaqr/mejaqr/internal/adapter/logger"
)

// StreamHandler pushes the principal's tenant events over a websocket.
// The subscription is made with the principal's own tenant on both sides,
// so a client can never attach to another tenant's channel.
type StreamHandler struct {
	bus    *bus.Bus
	logger logger.Logger

	upgrader websocket.Upgrader
}

func NewStreamHandler(b *bus.Bus, logger logger.Logger) *StreamHandler {
	return &StreamHandler{
		bus:    b,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sub, err := h.bus.Subscribe(p.TenantID, p.TenantID)
	if err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("ws_upgrade_failed", "Websocket upgrade failed", "", nil)
		return
	}
	defer conn.Close()

	// Drain client frames so closes are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case event, ok := <-sub.C:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}
