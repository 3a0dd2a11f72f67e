package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/floroz/lelang/services/bid-service/internal/adapters/events"
)

const (
	writeWait      = 10 * time.Second
	maxInboundSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WatchHandler streams newBid frames to WebSocket clients.
type WatchHandler struct {
	hub          *events.Hub
	pingInterval time.Duration
}

func NewWatchHandler(hub *events.Hub, pingInterval time.Duration) *WatchHandler {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &WatchHandler{hub: hub, pingInterval: pingInterval}
}

// Watch handles GET /ws. The watcher only receives bids accepted after the
// upgrade completes.
func (h *WatchHandler) Watch(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)
	log.Info().Int("watchers", h.hub.Count()).Msg("watcher connected")

	pongWait := 2 * h.pingInterval
	conn.SetReadLimit(maxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Inbound frames are ignored; reading is only how a disconnect is noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case bid := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(events.NewBidEnvelope(bid)); err != nil {
				log.Debug().Err(err).Msg("watcher write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-sub.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		case <-closed:
			log.Info().Msg("watcher disconnected")
			return
		}
	}
}
