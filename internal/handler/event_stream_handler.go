package handler

import (
	"context"
	"os"

	"callcenter-assistant-be/internal/pkg/logger"
	internalWS "callcenter-assistant-be/internal/websocket"
	"callcenter-assistant-be/pkg/events"
	pkgNats "callcenter-assistant-be/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
)

// EventStreamHandler bridges NATS assistant events onto connected websocket
// clients and serves the upgrade endpoint.
type EventStreamHandler struct {
	subscriber *pkgNats.Subscriber
	hub        *internalWS.Hub
	logger     logger.ILogger
}

func NewEventStreamHandler(subscriber *pkgNats.Subscriber, hub *internalWS.Hub, log logger.ILogger) *EventStreamHandler {
	return &EventStreamHandler{
		subscriber: subscriber,
		hub:        hub,
		logger:     log,
	}
}

// Start subscribes to the assistant event stream. Every event is broadcast so
// dashboards see turns, uploads, and ticket activity as they happen.
func (h *EventStreamHandler) Start() error {
	if h.subscriber == nil {
		h.logger.Warn("event_stream", "no NATS subscriber, live events disabled", nil)
		return nil
	}
	return h.subscriber.Subscribe("events.>", "event-stream", func(ctx context.Context, event events.Event) error {
		h.hub.Broadcast(internalWS.Envelope{
			Event: event.EventType(),
			Data:  event.Payload(),
		})
		return nil
	})
}

func (h *EventStreamHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws", h.ServeWs)
}

// ServeWs authenticates the handshake from a query token or bearer header and
// hands the connection to the hub.
func (h *EventStreamHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token"})
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token missing user_id"})
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		internalWS.ServeWs(h.hub, conn, userID)
	})(c)
}
