package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"shoppinglens-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel carries payloads between instances so a client connected to
// any instance receives its session's stream.
const ClusterChannel = "cluster_events"

type clusterMessage struct {
	TargetSessionID string          `json:"target_session_id"`
	Origin          string          `json:"origin"`
	Message         json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients: SessionID -> connections (one per tab/device)
	clients map[string]map[*Client]struct{}

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance fan-out, optional
	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string]map[*Client]struct{}),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run owns client registration until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.SessionID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.SessionID] = set
			}
			set[client] = struct{}{}
			count := len(set)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{
				"session_id":  client.SessionID,
				"connections": count,
			})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// join hands the client to the run loop. It reports false once the hub has
// stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave hands the client back to the run loop; after shutdown closeAll has
// already released it.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.SessionID)
		h.logger.Info("Hub", "Session has no more connections", map[string]interface{}{"session_id": client.SessionID})
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sessionID, set := range h.clients {
		for client := range set {
			close(client.Send)
		}
		delete(h.clients, sessionID)
	}
}

// Publish delivers a serialized payload to every connection of the session on
// this instance and, when Redis is configured, on the other instances. It
// returns the number of local connections reached.
func (h *Hub) Publish(ctx context.Context, sessionID string, data []byte) int {
	delivered := h.deliverLocal(sessionID, data)

	if h.rdb != nil {
		jsonPayload, _ := json.Marshal(clusterMessage{
			TargetSessionID: sessionID,
			Origin:          h.instanceID,
			Message:         data,
		})
		if err := h.rdb.Publish(ctx, ClusterChannel, jsonPayload).Err(); err != nil {
			h.logger.Warn("Hub", "Cluster publish failed", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}
	return delivered
}

func (h *Hub) deliverLocal(sessionID string, data []byte) int {
	var slow []*Client
	delivered := 0

	h.mu.RLock()
	for client := range h.clients[sessionID] {
		select {
		case client.Send <- data:
			delivered++
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"session_id": sessionID})
		h.remove(client)
	}
	return delivered
}

// ConnectionCount reports live local connections for a session.
func (h *Hub) ConnectionCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("Hub", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceID || payload.TargetSessionID == "" {
				continue
			}
			h.deliverLocal(payload.TargetSessionID, payload.Message)
		}
	}
}
