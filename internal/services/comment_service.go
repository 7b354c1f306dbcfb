// Package services – CommentService
//
// This file implements CommentService, which appends comments to tickets
// and hands committed records to the realtime publisher. The write commits
// first; only then is the event offered to the hub. A full event buffer or
// a dead subscriber never fails the API call.
//
// Privacy rule: a client-authored comment is stored public no matter what
// the request asked for. Staff choose freely.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-helpdesk-backend/internal/domain"
	"github.com/tbourn/go-helpdesk-backend/internal/policy"
	"github.com/tbourn/go-helpdesk-backend/internal/repo"
)

// Publisher receives committed comments for realtime fan-out. Publish must
// not block; the hub drops events when its buffer is full.
type Publisher interface {
	Publish(ticketID uint, c *domain.Comment)
}

// CommentService persists ticket comments and triggers their broadcast.
type CommentService struct {
	DB *gorm.DB

	// Events is the realtime publisher. Nil disables broadcasting, which is
	// what repository-focused tests use.
	Events Publisher
}

// Create appends a comment to a ticket on behalf of the actor. Any
// authenticated role may post; only reads are ownership-gated. The privacy
// flag is coerced off for client authors. The comment is broadcast to the
// ticket's channel after the write commits.
func (s *CommentService) Create(ctx context.Context, actor policy.Actor, ticketID uint, content string, isPrivate bool) (*domain.Comment, error) {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.Int64("actor.id", int64(actor.ID)),
			attribute.Int64("ticket.id", int64(ticketID)),
		),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	if _, err := repo.GetTicket(ctx, s.DB, ticketID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	c := &domain.Comment{
		Content:   content,
		TicketID:  ticketID,
		AuthorID:  actor.ID,
		IsPrivate: policy.CommentVisibility(actor, isPrivate),
	}
	if err := repo.CreateComment(ctx, s.DB, c); err != nil {
		return nil, err
	}

	// Fan-out only after the row is committed.
	if s.Events != nil {
		s.Events.Publish(ticketID, c)
	}
	return c, nil
}

// ListForTicket returns every comment on a ticket, oldest first. Clients
// may only list their own tickets' comments. Private comments are included
// in the result regardless of role.
func (s *CommentService) ListForTicket(ctx context.Context, actor policy.Actor, ticketID uint) ([]domain.Comment, error) {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "ListForTicket",
		trace.WithAttributes(
			attribute.Int64("actor.id", int64(actor.ID)),
			attribute.Int64("ticket.id", int64(ticketID)),
		),
	)
	defer span.End()

	t, err := repo.GetTicket(ctx, s.DB, ticketID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	if !policy.CanReadTicket(actor, t.ClientID) {
		return nil, ErrForbidden
	}
	return repo.ListComments(ctx, s.DB, ticketID)
}

// GetByID returns a single comment. It is used by the idempotency replay
// path to re-serve a previously created comment.
func (s *CommentService) GetByID(ctx context.Context, id uint) (*domain.Comment, error) {
	c, err := repo.GetComment(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return c, nil
}
