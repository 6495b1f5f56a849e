package websocket

import (
	"context"
	"encoding/json"

	"callcenter-assistant-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// redisChannel fans events out to hubs on other instances.
const redisChannel = "assistant_events"

// Envelope is the frame pushed to connected clients.
type Envelope struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// delivery is one frame headed for a user's connections ("*" means everyone).
type delivery struct {
	target string
	data   []byte
}

// Hub tracks connected clients per user and relays assistant events to them.
// With redis configured, every event goes through the shared channel so all
// instances deliver it exactly once to their local clients. The clients map
// is owned by the Run goroutine; registration, delivery, and channel close
// all happen there.
type Hub struct {
	clients    map[string][]*Client // user id -> open connections
	register   chan *Client
	unregister chan *Client
	deliveries chan delivery
	rdb        *redis.Client
	logger     logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliveries: make(chan delivery, 64),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.logger.Info("websocket", "client connected", map[string]any{"user_id": client.UserID})

		case client := <-h.unregister:
			h.drop(client)

		case d := <-h.deliveries:
			h.send(d)
		}
	}
}

// drop removes a client and closes its send channel. A client already removed
// (e.g. dropped for a full buffer) is ignored, so the channel closes once.
func (h *Hub) drop(client *Client) {
	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
	}
}

func (h *Hub) send(d delivery) {
	var targets []*Client
	if d.target == "*" {
		for _, clients := range h.clients {
			targets = append(targets, clients...)
		}
	} else {
		targets = append(targets, h.clients[d.target]...)
	}

	for _, client := range targets {
		select {
		case client.Send <- d.data:
		default:
			h.logger.Warn("websocket", "send buffer full, dropping client", map[string]any{"user_id": client.UserID})
			h.drop(client)
		}
	}
}

// Broadcast pushes an event to every connected client.
func (h *Hub) Broadcast(envelope Envelope) {
	h.dispatch("*", envelope)
}

// Send pushes an event to one user's connections.
func (h *Hub) Send(userID string, envelope Envelope) {
	h.dispatch(userID, envelope)
}

func (h *Hub) dispatch(target string, envelope Envelope) {
	data, err := json.Marshal(envelope)
	if err != nil {
		return
	}

	if h.rdb != nil {
		payload, _ := json.Marshal(map[string]any{"target": target, "message": json.RawMessage(data)})
		h.rdb.Publish(context.Background(), redisChannel, payload)
		return
	}

	h.deliveries <- delivery{target: target, data: data}
}

func (h *Hub) subscribeToRedis() {
	sub := h.rdb.Subscribe(context.Background(), redisChannel)
	for msg := range sub.Channel() {
		var payload struct {
			Target  string          `json:"target"`
			Message json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			continue
		}
		h.deliveries <- delivery{target: payload.Target, data: []byte(payload.Message)}
	}
}
