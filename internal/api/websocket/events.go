package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	broadcastBuffer = 256
	clientBuffer    = 16
	pingInterval    = 30 * time.Second
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	maxMessageSize  = 512
)

// EventConnected is sent to a client once it is registered.
const EventConnected = "connection.established"

// Event is one message pushed to subscribers.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	CampaignID uuid.UUID `json:"campaign_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Data       any       `json:"data,omitempty"`
}

// EventHub fans pacing and compliance events out to websocket clients.
type EventHub struct {
	logger      *zap.Logger
	clients     map[uuid.UUID]*Client
	clientsLock sync.RWMutex
	broadcast   chan *Event
	register    chan *Client
	unregister  chan *Client
	done        chan struct{}
	stopOnce    sync.Once
}

// NewEventHub creates a hub. Call Run before publishing.
func NewEventHub(logger *zap.Logger) *EventHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHub{
		logger:     logger,
		clients:    make(map[uuid.UUID]*Client),
		broadcast:  make(chan *Event, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled or Stop is called.
func (h *EventHub) Run(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.Stop()
			h.shutdown()
			return
		case <-h.done:
			h.shutdown()
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case event := <-h.broadcast:
			h.broadcastEvent(event)
		case <-ticker.C:
			h.pingClients()
		}
	}
}

// Stop shuts the hub down and disconnects every client.
func (h *EventHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Publish queues an event for delivery. It never blocks; when the queue is
// full the event is dropped.
func (h *EventHub) Publish(_ context.Context, eventType string, campaignID uuid.UUID, payload any) {
	event := &Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		CampaignID: campaignID,
		Timestamp:  time.Now().UTC(),
		Data:       payload,
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("event hub queue full, dropping event",
			zap.String("type", eventType),
			zap.String("campaign_id", campaignID.String()))
	}
}

// ClientCount returns the number of registered clients.
func (h *EventHub) ClientCount() int {
	h.clientsLock.RLock()
	defer h.clientsLock.RUnlock()
	return len(h.clients)
}

func (h *EventHub) registerClient(client *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	h.clients[client.ID] = client
	h.logger.Info("websocket client registered",
		zap.String("client_id", client.ID.String()),
		zap.Int("campaign_filters", len(client.campaigns)))

	welcome := &Event{
		ID:        uuid.New().String(),
		Type:      EventConnected,
		Timestamp: time.Now().UTC(),
		Data:      map[string]string{"client_id": client.ID.String()},
	}
	select {
	case client.send <- welcome:
	default:
	}
}

func (h *EventHub) unregisterClient(client *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.send)
		h.logger.Info("websocket client unregistered", zap.String("client_id", client.ID.String()))
	}
}

func (h *EventHub) broadcastEvent(event *Event) {
	h.clientsLock.RLock()
	defer h.clientsLock.RUnlock()

	for _, client := range h.clients {
		if !client.wants(event) {
			continue
		}
		select {
		case client.send <- event:
		default:
			h.logger.Warn("client send buffer full, closing connection",
				zap.String("client_id", client.ID.String()))
			go h.drop(client)
		}
	}
}

func (h *EventHub) pingClients() {
	h.clientsLock.RLock()
	defer h.clientsLock.RUnlock()

	for _, client := range h.clients {
		if err := client.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			h.logger.Debug("ping failed", zap.String("client_id", client.ID.String()), zap.Error(err))
			go h.drop(client)
		}
	}
}

// drop unregisters a client unless the hub has already stopped.
func (h *EventHub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *EventHub) shutdown() {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	for _, client := range h.clients {
		close(client.send)
		_ = client.conn.Close()
	}
	h.clients = make(map[uuid.UUID]*Client)
}
