// Package realtime implements the websocket fan-out for ticket comments.
//
// The Hub keeps a process-local registry of subscribers per ticket channel.
// Services push committed comments onto a buffered event channel via
// Publish; a single Run goroutine drains it and writes a JSON frame to
// every subscriber of the matching channel. Membership is ephemeral: a
// reconnecting client re-subscribes and receives nothing retroactively.
//
// Delivery is fire-and-forget at two levels. Publish drops the event when
// the hub buffer is full, and the broadcast loop drops a frame when a
// client's send buffer is full. Neither case ever fails the HTTP request
// that created the comment.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-helpdesk-backend/internal/domain"
)

// eventCommentCreated is the event name on outbound frames.
const eventCommentCreated = "comment:created"

// defaultEventBuffer is the capacity of the hub's event channel.
const defaultEventBuffer = 256

// Event is one committed comment awaiting fan-out.
type Event struct {
	TicketID uint
	Comment  *domain.Comment
}

// frame is the wire representation of a broadcast event.
type frame struct {
	Event    string          `json:"event"`
	TicketID uint            `json:"ticket_id"`
	Comment  *domain.Comment `json:"comment"`
}

// Hub routes comment events to websocket subscribers grouped by ticket.
// All exported methods are safe for concurrent use.
type Hub struct {
	mu       sync.RWMutex
	channels map[uint]map[*Client]struct{}

	events chan Event
}

// NewHub constructs a Hub with the default event buffer.
func NewHub() *Hub {
	return &Hub{
		channels: make(map[uint]map[*Client]struct{}),
		events:   make(chan Event, defaultEventBuffer),
	}
}

// Run drains the event channel until ctx is cancelled. It is intended to be
// started once, as a goroutine, from main.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.events:
			h.broadcast(ev)
		}
	}
}

// Publish offers a committed comment for fan-out. It never blocks: when the
// event buffer is full the event is dropped and logged, and the caller's
// request still succeeds.
func (h *Hub) Publish(ticketID uint, c *domain.Comment) {
	select {
	case h.events <- Event{TicketID: ticketID, Comment: c}:
	default:
		log.Warn().
			Uint("ticket_id", ticketID).
			Uint("comment_id", c.ID).
			Msg("realtime event buffer full, dropping broadcast")
	}
}

// Subscribe adds a client to a ticket channel. Subscribing twice to the
// same channel is a no-op.
func (h *Hub) Subscribe(ticketID uint, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.channels[ticketID]
	if !ok {
		set = make(map[*Client]struct{})
		h.channels[ticketID] = set
	}
	set[c] = struct{}{}
}

// Unsubscribe removes a client from a ticket channel. Unsubscribing when
// not subscribed is a no-op.
func (h *Hub) Unsubscribe(ticketID uint, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.channels[ticketID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.channels, ticketID)
	}
}

// Detach removes a client from every channel. Called when its connection
// closes.
func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ticketID, set := range h.channels {
		delete(set, c)
		if len(set) == 0 {
			delete(h.channels, ticketID)
		}
	}
}

// Subscribers returns the current subscriber count for a ticket channel.
func (h *Hub) Subscribers(ticketID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[ticketID])
}

// broadcast writes one event to every subscriber of its channel. A slow
// client (full send buffer) misses the frame rather than stalling the hub.
// The snapshot may include clients that detach before the send; their send
// channels are never closed, so writing to one is always safe and the frame
// is discarded together with the connection.
func (h *Hub) broadcast(ev Event) {
	payload, err := json.Marshal(frame{
		Event:    eventCommentCreated,
		TicketID: ev.TicketID,
		Comment:  ev.Comment,
	})
	if err != nil {
		log.Error().Err(err).Uint("ticket_id", ev.TicketID).Msg("marshal realtime frame")
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.channels[ev.TicketID]))
	for c := range h.channels[ev.TicketID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- payload:
		default:
			log.Warn().
				Uint("ticket_id", ev.TicketID).
				Msg("subscriber send buffer full, dropping frame")
		}
	}
}
