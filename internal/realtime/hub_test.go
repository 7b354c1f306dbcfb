package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/tbourn/go-helpdesk-backend/internal/domain"
)

func newTestClient() *Client {
	return &Client{send: make(chan []byte, sendBuffer)}
}

func recvFrame(t *testing.T, c *Client) frame {
	t.Helper()
	select {
	case raw := <-c.send:
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return frame{}
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected frame: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_SubscribeUnsubscribe_Idempotent(t *testing.T) {
	h := NewHub()
	c := newTestClient()

	h.Subscribe(7, c)
	h.Subscribe(7, c) // duplicate is a no-op
	if got := h.Subscribers(7); got != 1 {
		t.Fatalf("Subscribers(7) = %d; want 1", got)
	}

	h.Unsubscribe(7, c)
	h.Unsubscribe(7, c) // repeated is a no-op
	h.Unsubscribe(99, c) // never-subscribed channel is a no-op
	if got := h.Subscribers(7); got != 0 {
		t.Fatalf("Subscribers(7) = %d after unsubscribe; want 0", got)
	}
}

func TestHub_Broadcast_OnlyMatchingChannel(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	sub := newTestClient()
	otherChannel := newTestClient()
	h.Subscribe(7, sub)
	h.Subscribe(8, otherChannel)

	comment := &domain.Comment{ID: 42, Content: "fixed", TicketID: 7, AuthorID: 3}
	h.Publish(7, comment)

	f := recvFrame(t, sub)
	if f.Event != "comment:created" {
		t.Fatalf("event = %q; want comment:created", f.Event)
	}
	if f.TicketID != 7 || f.Comment == nil || f.Comment.ID != 42 || f.Comment.Content != "fixed" {
		t.Fatalf("unexpected frame: %+v", f)
	}

	assertNoFrame(t, otherChannel)
}

func TestHub_Broadcast_ExactlyOncePerSubscriber(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := newTestClient()
	h.Subscribe(7, c)
	h.Subscribe(7, c) // duplicate subscribe must not duplicate delivery

	h.Publish(7, &domain.Comment{ID: 1, TicketID: 7})
	recvFrame(t, c)
	assertNoFrame(t, c)
}

func TestHub_SlowSubscriber_DropsFrameNotHub(t *testing.T) {
	h := NewHub()

	slow := &Client{send: make(chan []byte)} // unbuffered, nobody reading
	ok := newTestClient()
	h.Subscribe(7, slow)
	h.Subscribe(7, ok)

	// Broadcast directly; must not block on the slow client.
	done := make(chan struct{})
	go func() {
		h.broadcast(Event{TicketID: 7, Comment: &domain.Comment{ID: 1, TicketID: 7}})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}

	recvFrame(t, ok)
}

func TestHub_Publish_DropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	// Nobody draining events; fill the buffer and one more.
	for i := 0; i < defaultEventBuffer+10; i++ {
		h.Publish(7, &domain.Comment{ID: uint(i + 1), TicketID: 7})
	}
	// Reaching here without blocking is the assertion.
	if len(h.events) != defaultEventBuffer {
		t.Fatalf("events buffered = %d; want %d", len(h.events), defaultEventBuffer)
	}
}

func TestHub_Broadcast_RacingDisconnect_DoesNotPanic(t *testing.T) {
	h := NewHub()
	ev := Event{TicketID: 7, Comment: &domain.Comment{ID: 1, TicketID: 7}}

	// Hammer broadcasts against the client teardown sequence. Before the
	// done-channel shutdown, a send could land on a closed channel and kill
	// the broadcast goroutine; the test fails by panicking in that case.
	for i := 0; i < 5000; i++ {
		c := &Client{send: make(chan []byte, 1), done: make(chan struct{})}
		h.Subscribe(7, c)

		ready := make(chan struct{})
		gone := make(chan struct{})
		go func() {
			<-ready
			h.Detach(c)
			close(c.done)
			close(gone)
		}()

		close(ready)
		h.broadcast(ev)
		<-gone
	}

	if got := h.Subscribers(7); got != 0 {
		t.Fatalf("Subscribers(7) = %d after teardown; want 0", got)
	}
}

func TestHub_Detach_RemovesFromAllChannels(t *testing.T) {
	h := NewHub()
	c := newTestClient()
	h.Subscribe(1, c)
	h.Subscribe(2, c)
	h.Subscribe(3, c)

	h.Detach(c)
	for _, id := range []uint{1, 2, 3} {
		if got := h.Subscribers(id); got != 0 {
			t.Fatalf("Subscribers(%d) = %d after detach; want 0", id, got)
		}
	}
}
