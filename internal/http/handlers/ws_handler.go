package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/fathia/miniapp/internal/events"
	"github.com/fathia/miniapp/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WSHub pushes wallet notifications and transaction status changes to every
// connected client.
type WSHub struct {
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.Mutex
	connections map[string][]*websocket.Conn
}

func NewWSHub(subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		subscriber:  subscriber,
		log:         log,
		connections: make(map[string][]*websocket.Conn),
	}
}

func (h *WSHub) Start(ctx context.Context) {
	for _, stream := range []string{events.StreamWallet, events.StreamTx} {
		if err := h.subscriber.Subscribe(ctx, stream, h.broadcast); err != nil {
			h.log.Error("ws hub subscribe failed", zap.String("stream", stream), zap.Error(err))
		}
	}
}

// broadcast holds the lock for the whole fan-out so writes to one
// connection never interleave.
func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, conns := range h.connections {
		for _, conn := range conns {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Debug("ws write failed", zap.Error(err))
			}
		}
	}
}

func (h *WSHub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, conns := range h.connections {
		n += len(conns)
	}
	return n
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// HandleWS expects AuthMiddleware to have run on the upgrade request.
func (h *WSHub) HandleWS(conn *websocket.Conn) {
	userID, _ := conn.Locals(middleware.CtxUserID).(string)
	if userID == "" {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
		conn.Close()
		return
	}

	h.mu.Lock()
	h.connections[userID] = append(h.connections[userID], conn)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		conns := h.connections[userID]
		for i, c := range conns {
			if c == conn {
				h.connections[userID] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		if len(h.connections[userID]) == 0 {
			delete(h.connections, userID)
		}
		h.mu.Unlock()
		conn.Close()
	}()

	// read until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
