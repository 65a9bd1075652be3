// Package websocket pushes dashboard events to connected browsers.
//
// The hub broadcasts dataset and filter lifecycle events so every open
// dashboard refreshes without polling.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"expodash/internal/infrastructure"
)

// Event types pushed to dashboard clients.
const (
	TypeConnection     = "connection"
	TypeDatasetLoaded  = "dataset:loaded"
	TypeFiltersApplied = "filters:applied"
	TypeExportComplete = "export:complete"
	TypeError          = "error"
)

// Hub maintains the set of active clients and broadcasts messages to
// the clients.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	totalConnections  int64
	activeConnections int64
	messagesSent      int64

	quit    chan struct{}
	running bool
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
		quit:       make(chan struct{}),
	}
}

// Start starts the hub's main loop
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run processes register, unregister and broadcast requests until the
// hub is stopped.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.totalConnections++
			h.activeConnections = int64(count)
			h.mu.Unlock()

			ctx := context.Background()
			if client.traceID != "" {
				ctx = infrastructure.WithTraceID(ctx, client.traceID)
			}
			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			connMsg := map[string]interface{}{
				"type": TypeConnection,
				"data": map[string]interface{}{
					"status":    "connected",
					"client_id": client.id,
				},
				"timestamp": time.Now().Format(time.RFC3339),
			}
			if jsonData, err := json.Marshal(connMsg); err == nil {
				select {
				case client.send <- jsonData:
				default:
					h.logger.WarnContext(ctx, "Failed to send connection message - client buffer full",
						slog.String("client_id", client.id))
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.activeConnections = int64(count)
				h.mu.Unlock()

				h.logger.Info("Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			failCount := 0
			sent := int64(0)
			for _, client := range clients {
				select {
				case client.send <- message:
					sent++
				default:
					failCount++
					// Client's send channel is full, drop it.
					h.mu.Lock()
					close(client.send)
					delete(h.clients, client)
					h.mu.Unlock()

					h.logger.Warn("Client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}

			if sent > 0 {
				h.mu.Lock()
				h.messagesSent += sent
				h.mu.Unlock()
			}

			if failCount > 0 {
				h.logger.Warn("Some clients failed to receive broadcast",
					slog.Int("fail_count", failCount),
					slog.Int("client_count", len(clients)))
			}
		}
	}
}

// BroadcastDatasetLoaded announces a freshly uploaded dataset.
func (h *Hub) BroadcastDatasetLoaded(datasetID, name string, rows int) {
	h.BroadcastJSON(map[string]interface{}{
		"type": TypeDatasetLoaded,
		"data": map[string]interface{}{
			"dataset_id": datasetID,
			"name":       name,
			"rows":       rows,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastFiltersApplied announces a recomputed dashboard.
func (h *Hub) BroadcastFiltersApplied(datasetID string, matched int) {
	h.BroadcastJSON(map[string]interface{}{
		"type": TypeFiltersApplied,
		"data": map[string]interface{}{
			"dataset_id":   datasetID,
			"matched_rows": matched,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastExportComplete announces a finished CSV export.
func (h *Hub) BroadcastExportComplete(datasetID string, rows int) {
	h.BroadcastJSON(map[string]interface{}{
		"type": TypeExportComplete,
		"data": map[string]interface{}{
			"dataset_id": datasetID,
			"rows":       rows,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastJSON marshals and broadcasts an arbitrary message.
func (h *Hub) BroadcastJSON(message map[string]interface{}) {
	jsonData, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message",
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- jsonData:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register queues a client for registration.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Stop shuts down the hub loop.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.quit)
}

// Metrics returns hub counters for the health endpoint.
func (h *Hub) Metrics() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]interface{}{
		"active_connections": h.activeConnections,
		"total_connections":  h.totalConnections,
		"messages_sent":      h.messagesSent,
	}
}
