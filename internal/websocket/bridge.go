package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/makerhub/makerhub/internal/pubsub"
)

// TopicEngineRequests is the bus topic every inbound client message is
// published on. The engine router is its single subscriber, which serializes
// request handling.
const TopicEngineRequests = "engine.requests"

// ErrConnectionGone is returned by Send when no client is registered under
// the given connection id.
var ErrConnectionGone = errors.New("connection is no longer registered")

// Bridge manages all WebSocket connections and routes messages between
// connected clients and the Pub/Sub request bus. Outbound delivery goes
// through Send, keyed by connection id, so the dispatcher never touches a
// socket directly.
type Bridge struct {
	publisher pubsub.Publisher

	// clients maps connection ids to their active client. One socket per id.
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

// NewBridge initializes a new Bridge, ready to handle connections.
func NewBridge(pub pubsub.Publisher) *Bridge {
	return &Bridge{
		publisher:  pub,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the main bridge goroutine for managing client lifecycle.
func (b *Bridge) Run(ctx context.Context) {
	slog.Info("WebSocket bridge runner started")
	for {
		select {
		case <-ctx.Done():
			b.closeAll()
			return

		case client := <-b.register:
			b.mu.Lock()
			b.clients[client.ID] = client
			b.mu.Unlock()
			slog.Info("Client registered", "connection_id", client.ID)

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client.ID]; ok {
				delete(b.clients, client.ID)
				close(client.send)
				slog.Info("Client unregistered", "connection_id", client.ID)
			}
			b.mu.Unlock()
		}
	}
}

// Send delivers a payload to the client registered under connectionID. A
// full send buffer drops the message rather than blocking the caller.
//
// The read lock is held across the channel send: unregistration closes the
// send channel under the write lock, so a client found in the map cannot
// have its channel closed until this returns. The send itself never blocks,
// so the lock is held only briefly.
func (b *Bridge) Send(_ context.Context, connectionID string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	client, ok := b.clients[connectionID]
	if !ok {
		return ErrConnectionGone
	}

	select {
	case client.send <- payload:
		return nil
	default:
		slog.Warn("Client send channel full, dropping message", "connection_id", connectionID)
		return nil
	}
}

// Handler returns an echo.HandlerFunc that handles WebSocket upgrade
// requests. Each accepted socket gets a fresh connection id.
func (b *Bridge) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			InsecureSkipVerify: true, // In production, check origin.
		})
		if err != nil {
			slog.Error("Failed to upgrade connection to WebSocket", "error", err)
			return c.String(http.StatusBadRequest, "WebSocket upgrade failed")
		}

		client := &Client{
			ID:     uuid.NewString(),
			conn:   conn,
			send:   make(chan []byte, 256),
			bridge: b,
		}
		b.register <- client

		go client.writePump()
		go client.readPump()

		return nil
	}
}

// publishRequest puts an inbound client payload on the request bus, tagged
// with the originating connection id.
func (b *Bridge) publishRequest(connectionID string, payload []byte) {
	msg := pubsub.Message{
		Topic:        TopicEngineRequests,
		ConnectionID: connectionID,
		Payload:      payload,
		Metadata: map[string]string{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := b.publisher.Publish(context.Background(), msg); err != nil {
		slog.Error("Failed to publish inbound request", "connection_id", connectionID, "error", err)
	}
}

// closeAll tears down every registered client on shutdown.
func (b *Bridge) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, client := range b.clients {
		close(client.send)
		delete(b.clients, id)
	}
}
