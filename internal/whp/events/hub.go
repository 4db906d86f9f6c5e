// Package events fans import state changes out to the browser tabs of the
// session that owns the import.
package events

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventImportState is sent after every change of a session's import.
const EventImportState = "import_state"

const bufferSize = 16

// Event is one server-sent event.
type Event struct {
	Type string
	Data string
}

// ImportState is the payload of EventImportState.
type ImportState struct {
	State    string `json:"state"`
	Busy     bool   `json:"busy"`
	FileName string `json:"file_name,omitempty"`
}

// Client is one connected event stream.
type Client struct {
	ID        string
	SessionID string
	Events    chan Event
}

// Hub tracks the connected streams per session.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*Client
	logger   *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		sessions: make(map[string]map[string]*Client),
		logger:   logger,
	}
}

// Subscribe registers a new stream for sessionID. Callers must Unsubscribe.
func (h *Hub) Subscribe(sessionID string) *Client {
	client := &Client{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Events:    make(chan Event, bufferSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.sessions[sessionID]
	if !ok {
		clients = make(map[string]*Client)
		h.sessions[sessionID] = clients
	}
	clients[client.ID] = client
	h.logger.Debug("event stream opened", zap.String("client", client.ID), zap.Int("streams", len(clients)))
	return client
}

// Unsubscribe removes the client and closes its channel.
func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.sessions[client.SessionID]
	if _, ok := clients[client.ID]; !ok {
		return
	}
	close(client.Events)
	delete(clients, client.ID)
	if len(clients) == 0 {
		delete(h.sessions, client.SessionID)
	}
	h.logger.Debug("event stream closed", zap.String("client", client.ID))
}

// Send delivers event to every stream of sessionID. Streams with a full
// buffer miss the event.
func (h *Hub) Send(sessionID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.sessions[sessionID] {
		select {
		case client.Events <- event:
		default:
			h.logger.Warn("event stream buffer full, skipping event",
				zap.String("client", client.ID), zap.String("event", event.Type))
		}
	}
}

// PublishImportState sends the current import state of sessionID.
func (h *Hub) PublishImportState(sessionID string, st ImportState) {
	data, err := json.Marshal(st)
	if err != nil {
		return
	}
	h.Send(sessionID, Event{Type: EventImportState, Data: string(data)})
}

// Streams returns the number of open streams of sessionID.
func (h *Hub) Streams(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
