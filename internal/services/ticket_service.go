// Package services – TicketService
//
// This file implements TicketService, which owns the ticket lifecycle:
// creation by clients, role-scoped listing, reads with the full comment
// thread, staff updates (status, priority, assignment), and status
// aggregation. Access decisions are delegated to internal/policy; the
// service enforces them and translates refusals into sentinel errors.
//
// Observability: public methods are OpenTelemetry-instrumented; spans
// include actor and ticket identifiers.
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

// TicketService coordinates ticket persistence and access control.
type TicketService struct {
	DB *gorm.DB
}

// TicketDetail is a ticket read result: the row plus its full comment
// thread, oldest first. Private comments are included for every caller; see
// the handler documentation for the visibility caveat.
type TicketDetail struct {
	Ticket   *domain.Ticket
	Comments []domain.Comment
}

// CreateInput carries a ticket creation request. Priority is optional and
// defaults to medium; status is not accepted, new tickets are always open.
type CreateInput struct {
	Title       string
	Description string
	Priority    domain.Priority
}

// Create opens a new ticket for the acting client. Only clients create
// tickets, and the owner is always the actor regardless of any client_id a
// request body might carry.
func (s *TicketService) Create(ctx context.Context, actor policy.Actor, in CreateInput) (*domain.Ticket, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.Int64("actor.id", int64(actor.ID))),
	)
	defer span.End()

	if !policy.CanCreateTicket(actor) {
		return nil, ErrForbidden
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || in.Description == "" {
		return nil, ErrMissingFields
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	t := &domain.Ticket{
		Title:       in.Title,
		Description: in.Description,
		Status:      domain.StatusOpen,
		Priority:    in.Priority,
		ClientID:    actor.ID,
	}
	if err := repo.CreateTicket(ctx, s.DB, t); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns the tickets visible to the actor, newest first, each with
// the owning client's name. Clients always see exactly their own tickets;
// staff narrow the listing with scope.
func (s *TicketService) List(ctx context.Context, actor policy.Actor, scope policy.ListScope) ([]repo.TicketWithClient, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.Int64("actor.id", int64(actor.ID)),
			attribute.String("scope", string(scope)),
		),
	)
	defer span.End()

	if !scope.Valid() {
		return nil, ErrInvalidScope
	}
	return repo.ListTickets(ctx, s.DB, policy.TicketListFilter(actor, scope))
}

// Get returns a ticket with its full comment thread. Clients may only read
// their own tickets; a foreign ticket yields ErrForbidden, not ErrTicketNotFound,
// so the existence of the row is not hidden from its own audit trail.
func (s *TicketService) Get(ctx context.Context, actor policy.Actor, id uint) (*TicketDetail, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(
			attribute.Int64("actor.id", int64(actor.ID)),
			attribute.Int64("ticket.id", int64(id)),
		),
	)
	defer span.End()

	t, err := repo.GetTicket(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	if !policy.CanReadTicket(actor, t.ClientID) {
		return nil, ErrForbidden
	}

	comments, err := repo.ListComments(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	return &TicketDetail{Ticket: t, Comments: comments}, nil
}

// UpdateInput carries a ticket update. Empty status or priority keep the
// current value; AgentID carries the requested assignment (nil clears it
// for admins, agents are self-assigned regardless).
type UpdateInput struct {
	Status   domain.Status
	Priority domain.Priority
	AgentID  *uint
}

// Update applies a staff change to status, priority, and assignment, and
// stamps last_updated_at. Clients may not update tickets at all.
func (s *TicketService) Update(ctx context.Context, actor policy.Actor, id uint, in UpdateInput) (*domain.Ticket, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(
			attribute.Int64("actor.id", int64(actor.ID)),
			attribute.Int64("ticket.id", int64(id)),
		),
	)
	defer span.End()

	if !policy.CanUpdateTicket(actor) {
		return nil, ErrForbidden
	}

	t, err := repo.GetTicket(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	// Resolve the full patch: unspecified fields keep current values.
	status := t.Status
	if in.Status != "" {
		if !in.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		status = in.Status
	}
	priority := t.Priority
	if in.Priority != "" {
		if !in.Priority.Valid() {
			return nil, ErrInvalidPriority
		}
		priority = in.Priority
	}
	agentID := policy.ResolveAssignee(actor, in.AgentID)

	patch := repo.TicketPatch{Status: status, Priority: priority, AgentID: agentID}
	if err := repo.UpdateTicket(ctx, s.DB, id, patch); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return repo.GetTicket(ctx, s.DB, id)
}

// StatusCounts returns the ticket count per status. Every known status is
// present in the map, zero-valued when empty.
func (s *TicketService) StatusCounts(ctx context.Context) (map[domain.Status]int64, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "StatusCounts")
	defer span.End()

	return repo.CountTicketsByStatus(ctx, s.DB)
}
