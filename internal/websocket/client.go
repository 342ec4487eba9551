package websocket

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/coder/websocket"
)

// Client represents a single connected WebSocket client. Every client gets a
// server-assigned connection id; the engine addresses clients exclusively by
// that id.
type Client struct {
	// ID is the server-assigned connection id, unique per socket.
	ID string
	// conn is the underlying WebSocket connection.
	conn *websocket.Conn
	// send is a buffered channel of outbound messages for this client.
	send chan []byte
	// bridge is a reference back to the bridge that manages this client.
	bridge *Bridge
}

// readPump pumps messages from the WebSocket connection onto the bridge's
// request bus. It owns unregistration: when the read loop ends the client is
// gone.
func (c *Client) readPump() {
	defer func() {
		c.bridge.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "Client disconnected")
	}()

	for {
		_, payload, err := c.conn.Read(context.Background())
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || websocket.CloseStatus(err) == websocket.StatusGoingAway {
				slog.Info("WebSocket closed normally by client", "connection_id", c.ID)
			} else if err != io.EOF {
				slog.Error("WebSocket read error", "connection_id", c.ID, "error", err)
			}
			break
		}
		c.bridge.publishRequest(c.ID, payload)
	}
}

// writePump pumps messages from the client's send channel to the WebSocket
// connection.
func (c *Client) writePump() {
	defer func() {
		c.conn.Close(websocket.StatusNormalClosure, "Server-side cleanup")
	}()

	for {
		payload, ok := <-c.send
		if !ok {
			// The bridge closed the channel.
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			slog.Error("WebSocket write error", "connection_id", c.ID, "error", err)
			return
		}
	}
}
