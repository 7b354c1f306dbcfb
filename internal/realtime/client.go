// Package realtime – websocket client plumbing.
//
// Each connection gets a Client with a buffered send channel and two pumps:
// readPump parses subscribe/unsubscribe commands, writePump flushes
// broadcast frames and pings. The endpoint performs no per-ticket
// authorization; any connection may join any ticket channel. That mirrors
// the production behavior this API replaces and is a known gap.
package realtime

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead. Pings go out at pingPeriod < pongWait.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxCommandSize bounds inbound control messages.
	maxCommandSize = 512

	// sendBuffer is the per-client outbound queue. A full queue drops
	// frames for that client only.
	sendBuffer = 32
)

// command is the inbound wire protocol.
type command struct {
	Action   string `json:"action"` // "subscribe" | "unsubscribe"
	TicketID uint   `json:"ticket_id"`
}

// Client is one websocket connection attached to the hub.
//
// Lifecycle invariant: send is never closed. readPump signals shutdown by
// closing done, and writePump exits on that signal or on a write error. A
// broadcast racing a disconnect therefore writes into a buffered channel
// that dies with the client instead of panicking on a closed one.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Subscriptions are not authorized per ticket, so origin checking is
	// left permissive as well.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS returns the Gin handler for GET /ws. It upgrades the connection,
// registers the client, and starts both pumps.
func ServeWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			log.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}
		client := &Client{
			hub:  hub,
			conn: conn,
			send: make(chan []byte, sendBuffer),
			done: make(chan struct{}),
		}
		go client.writePump()
		go client.readPump()
	}
}

// readPump consumes subscribe/unsubscribe commands until the connection
// drops, then detaches the client from every channel and signals writePump
// to stop. The send channel stays open; the hub may still be holding a
// registry snapshot that includes this client.
func (c *Client) readPump() {
	defer func() {
		c.hub.Detach(c)
		close(c.done)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxCommandSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket read ended")
			}
			return
		}
		switch cmd.Action {
		case "subscribe":
			if cmd.TicketID != 0 {
				c.hub.Subscribe(cmd.TicketID, c)
			}
		case "unsubscribe":
			if cmd.TicketID != 0 {
				c.hub.Unsubscribe(cmd.TicketID, c)
			}
		default:
			// Unknown actions are ignored, not fatal.
		}
	}
}

// writePump flushes queued frames and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
