package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"reading-reports-backend/internal/models"
)

// Hub maintains active WebSocket connections and broadcasts anomaly
// lifecycle events to supervisor and engineer dashboards.
type Hub struct {
	// Registered clients (staffID -> Client)
	clients map[string]*Client

	// Inbound events to broadcast
	broadcast chan *Event

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe client map access
	mu sync.RWMutex
}

// Event is an anomaly lifecycle notification pushed to triage dashboards.
type Event struct {
	Type    string      `json:"type"` // anomaly_created, anomaly_updated, anomaly_escalated
	Anomaly interface{} `json:"anomaly"`
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.StaffID] = client
			h.mu.Unlock()
			log.Printf("✅ [WEBSOCKET] Client connected: %s (%s), total: %d",
				client.StaffID, client.Role, h.GetClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.StaffID]; ok {
				delete(h.clients, client.StaffID)
				close(client.send)
				log.Printf("🔴 [WEBSOCKET] Client disconnected: %s (%s), remaining: %d",
					client.StaffID, client.Role, len(h.clients))
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// deliver fans an event out to all connected supervisor/engineer clients.
func (h *Hub) deliver(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("❌ Failed to marshal event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.Role != models.RoleSupervisor && client.Role != models.RoleEngineer {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client buffer full, skip
			log.Printf("⚠️ Client buffer full, skipping: %s", client.StaffID)
		}
	}
}

// BroadcastAnomalyEvent queues an anomaly event for delivery to all
// connected supervisors and engineers. Safe on a nil hub.
func (h *Hub) BroadcastAnomalyEvent(eventType string, anomaly interface{}) {
	if h == nil {
		return
	}
	select {
	case h.broadcast <- &Event{Type: eventType, Anomaly: anomaly}:
	default:
		log.Println("⚠️ Event buffer full, dropping anomaly event")
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsStaffConnected checks if a staff member is currently connected
func (h *Hub) IsStaffConnected(staffID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[staffID]
	return ok
}
