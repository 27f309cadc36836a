// Package dashboard: Handler bridges watch notifications to broadcasts.
package dashboard

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Handler turns watch engine notifications into dashboard messages.
// It implements watch.Notifier and can be installed directly as a
// watcher's sink.
type Handler struct {
	server *Server
	logger *log.Logger
	path   string

	mu     sync.Mutex
	lines  int
	resets int
}

// NewHandler creates a handler broadcasting through server. path
// identifies the watched store in stats messages.
func NewHandler(server *Server, path string, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		server: server,
		logger: logger,
		path:   path,
	}
}

// Reset implements watch.Notifier.
func (h *Handler) Reset() {
	h.mu.Lock()
	h.lines = 0
	h.resets++
	h.mu.Unlock()

	h.logger.Printf("Store reset: %s", h.path)
	h.server.Broadcast(Message{
		Type:      MessageTypeReset,
		Timestamp: time.Now(),
	})
	h.broadcastStats()
}

// LinesAvailable implements watch.Notifier.
func (h *Handler) LinesAvailable(total int) {
	h.mu.Lock()
	h.lines = total
	h.mu.Unlock()

	data, err := json.Marshal(LinesData{Total: total})
	if err != nil {
		h.logger.Printf("Failed to marshal lines data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeLines,
		Timestamp: time.Now(),
		Data:      data,
	})
	h.broadcastStats()
}

// broadcastStats publishes the cumulative counters.
func (h *Handler) broadcastStats() {
	h.mu.Lock()
	stats := StatsData{
		Path:       h.path,
		Lines:      h.lines,
		Resets:     h.resets,
		LastChange: time.Now().UTC().Format(time.RFC3339),
	}
	h.mu.Unlock()

	data, err := json.Marshal(stats)
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeStats,
		Timestamp: time.Now(),
		Data:      data,
	})
}
