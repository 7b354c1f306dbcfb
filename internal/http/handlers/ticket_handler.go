// Ticket HTTP handlers.
//
// This file exposes REST endpoints for ticket resources:
//   - POST   /tickets          (create, clients only)
//   - GET    /tickets          (role-scoped list with client names)
//   - GET    /tickets/stats    (ticket counts per status)
//   - GET    /tickets/{id}     (single ticket with full comment thread)
//   - PATCH  /tickets/{id}     (staff update: status, priority, assignment)
//
// Handlers are transport-thin: they validate input, resolve the authenticated
// actor from the request context, call application services, and translate
// results into HTTP responses.
package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-helpdesk-backend/internal/domain"
	"github.com/tbourn/go-helpdesk-backend/internal/http/middleware"
	"github.com/tbourn/go-helpdesk-backend/internal/policy"
	"github.com/tbourn/go-helpdesk-backend/internal/repo"
	"github.com/tbourn/go-helpdesk-backend/internal/services"
	"github.com/tbourn/go-helpdesk-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// AuthService defines authentication operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AuthService interface {
	// Login verifies credentials and returns a signed token plus the user.
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	// Profile returns the account behind an authenticated user ID.
	Profile(ctx context.Context, userID uint) (*domain.User, error)
	// ChangePassword verifies the current password and stores a new hash.
	ChangePassword(ctx context.Context, userID uint, current, next string) error
}

// UserService defines account management operations consumed by HTTP handlers.
type UserService interface {
	// CreateClient provisions a client account with a temporary password.
	CreateClient(ctx context.Context, name, email string) (*services.ProvisionedUser, error)
	// Create provisions an account with any valid role (admin operation).
	Create(ctx context.Context, name, email string, role domain.Role) (*services.ProvisionedUser, error)
	// Get returns a single user by ID.
	Get(ctx context.Context, id uint) (*domain.User, error)
	// List returns every account ordered by ID.
	List(ctx context.Context) ([]domain.User, error)
	// ListAgents returns all staff accounts ordered by name.
	ListAgents(ctx context.Context) ([]domain.User, error)
	// Update changes a user's name, email, and role.
	Update(ctx context.Context, id uint, name, email string, role domain.Role) (*domain.User, error)
	// Delete removes an account, refusing to remove the last admin.
	Delete(ctx context.Context, id uint) error
}

// TicketService defines ticket lifecycle operations consumed by HTTP handlers.
type TicketService interface {
	// Create opens a new ticket owned by the acting client.
	Create(ctx context.Context, actor policy.Actor, in services.CreateInput) (*domain.Ticket, error)
	// List returns the tickets visible to the actor, newest first.
	List(ctx context.Context, actor policy.Actor, scope policy.ListScope) ([]repo.TicketWithClient, error)
	// Get returns a ticket with its full comment thread.
	Get(ctx context.Context, actor policy.Actor, id uint) (*services.TicketDetail, error)
	// Update applies a staff change to status, priority, and assignment.
	Update(ctx context.Context, actor policy.Actor, id uint, in services.UpdateInput) (*domain.Ticket, error)
	// StatusCounts returns the ticket count per status, all keys present.
	StatusCounts(ctx context.Context) (map[domain.Status]int64, error)
}

// CommentService defines comment operations consumed by HTTP handlers.
type CommentService interface {
	// Create appends a comment to a ticket on behalf of the actor.
	Create(ctx context.Context, actor policy.Actor, ticketID uint, content string, isPrivate bool) (*domain.Comment, error)
	// ListForTicket returns every comment on a ticket, oldest first.
	ListForTicket(ctx context.Context, actor policy.Actor, ticketID uint) ([]domain.Comment, error)
	// GetByID returns a single comment (idempotency replay path).
	GetByID(ctx context.Context, id uint) (*domain.Comment, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for auth, users, tickets, and comments.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	authSvc    AuthService
	userSvc    UserService
	ticketSvc  TicketService
	commentSvc CommentService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(authSvc AuthService, userSvc UserService, ticketSvc TicketService, commentSvc CommentService) *Handlers {
	return &Handlers{authSvc: authSvc, userSvc: userSvc, ticketSvc: ticketSvc, commentSvc: commentSvc}
}

// actor extracts the authenticated actor stashed by the auth middleware. When
// absent (a route wired without RequireAuth) it aborts with 401 and returns
// ok=false; callers must return immediately in that case.
func actor(c *gin.Context) (policy.Actor, bool) {
	a, found := middleware.ActorFrom(c)
	if !found {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return policy.Actor{}, false
	}
	return a, true
}

// pathID parses the numeric {id} path parameter. Zero or malformed values
// abort with 400 and return ok=false.
func pathID(c *gin.Context) (uint, bool) {
	id := utils.AtoiDefault(c.Param("id"), 0)
	if id <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

//
// DTOs
//

// CreateTicketRequest is the JSON payload for opening a ticket.
type CreateTicketRequest struct {
	// Title is a short summary of the issue (required).
	Title string `json:"title" binding:"required,min=1" example:"VPN drops every hour"`
	// Description is the full problem report (required).
	Description string `json:"description" binding:"required,min=1" example:"Since Monday the VPN session dies at :00 sharp."`
	// Priority optionally sets the urgency; defaults to medium.
	Priority domain.Priority `json:"priority" example:"high"`
}

// UpdateTicketRequest is the JSON payload for a staff ticket update.
// Omitted status and priority keep their current values.
type UpdateTicketRequest struct {
	Status   domain.Status   `json:"status" example:"in_progress"`
	Priority domain.Priority `json:"priority" example:"high"`
	// AgentID requests an assignment change. Agents are self-assigned no
	// matter what is sent; admins may assign anyone or null to unassign.
	AgentID *uint `json:"agent_id" example:"3"`
}

// ListTicketsResponse wraps the role-scoped ticket listing.
type ListTicketsResponse struct {
	Tickets []repo.TicketWithClient `json:"tickets"`
}

// TicketDetailResponse is a single ticket together with its comment thread.
type TicketDetailResponse struct {
	Ticket   *domain.Ticket   `json:"ticket"`
	Comments []domain.Comment `json:"comments"`
}

// TicketStatsResponse maps each ticket status to its count. Every known
// status is present, zero-valued when no tickets carry it.
type TicketStatsResponse struct {
	Counts map[domain.Status]int64 `json:"counts"`
}

//
// Handlers
//

// CreateTicket godoc
// @ID          createTicket
// @Summary     Open a new ticket
// @Description Creates a ticket owned by the authenticated client. Staff accounts cannot open tickets.
// @Tags        Tickets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.CreateTicketRequest  true  "Ticket payload"
//
// @Success     201  {object}  domain.Ticket
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not a client"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tickets [post]
func (h *Handlers) CreateTicket(c *gin.Context) {
	a, okActor := actor(c)
	if !okActor {
		return
	}

	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title and description required")
		return
	}

	t, err := h.ticketSvc.Create(c.Request.Context(), a, services.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		switch err {
		case services.ErrForbidden:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only clients can open tickets")
		case services.ErrMissingFields:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title and description required")
		case services.ErrInvalidPriority:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "priority must be low, medium, or high")
		default:
			failInternal(c, ErrCodeCreateFailed, err)
		}
		return
	}
	ok(c, http.StatusCreated, t)
}

// ListTickets godoc
// @ID          listTickets
// @Summary     List visible tickets
// @Description Returns the tickets the actor may see, newest first, with the owning client's name.
// @Description Clients always get exactly their own tickets; staff narrow with scope=all|mine|unassigned.
// @Tags        Tickets
// @Produce     json
// @Security    BearerAuth
//
// @Param       scope  query  string  false  "Staff listing scope"  Enums(all, mine, unassigned)
//
// @Success     200  {object}  handlers.ListTicketsResponse
// @Header      200  {string}  ETag  "Weak ETag for the current listing"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown scope"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tickets [get]
func (h *Handlers) ListTickets(c *gin.Context) {
	a, okActor := actor(c)
	if !okActor {
		return
	}

	scope := policy.ListScope(c.Query("scope"))

	// ETag pre-check (best effort). The tag is derived from table-wide stats,
	// so it is conservative: any ticket change invalidates every caller's tag.
	// Actor and scope are part of the tag because visibility differs per caller.
	if svc, okSvc := h.ticketSvc.(*services.TicketService); okSvc && svc.DB != nil {
		count, maxTS, err := repo.TicketsStats(c.Request.Context(), svc.DB)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"tickets:%d:%s:%d:%d"`, a.ID, scope, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.ticketSvc.List(c.Request.Context(), a, scope)
	if err != nil {
		switch err {
		case services.ErrInvalidScope:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "scope must be all, mine, or unassigned")
		default:
			failInternal(c, ErrCodeListFailed, err)
		}
		return
	}
	ok(c, http.StatusOK, ListTicketsResponse{Tickets: items})
}

// GetTicket godoc
// @ID          getTicket
// @Summary     Get a ticket with its comment thread
// @Description Returns the ticket and every comment on it, oldest first. Clients may only
// @Description read their own tickets; foreign tickets yield 403, not 404.
// @Tags        Tickets
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  int  true  "Ticket ID"  minimum(1)
//
// @Success     200  {object}  handlers.TicketDetailResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not your ticket"
// @Failure     404  {object}  handlers.ErrorResponse  "Ticket not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tickets/{id} [get]
func (h *Handlers) GetTicket(c *gin.Context) {
	a, okActor := actor(c)
	if !okActor {
		return
	}
	id, okID := pathID(c)
	if !okID {
		return
	}

	detail, err := h.ticketSvc.Get(c.Request.Context(), a, id)
	if err != nil {
		switch err {
		case services.ErrTicketNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "ticket not found")
		case services.ErrForbidden:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "you may not read this ticket")
		default:
			failInternal(c, ErrCodeInternal, err)
		}
		return
	}
	ok(c, http.StatusOK, TicketDetailResponse{Ticket: detail.Ticket, Comments: detail.Comments})
}

// UpdateTicket godoc
// @ID          updateTicket
// @Summary     Update a ticket (staff only)
// @Description Changes status, priority, and assignment, stamping last_updated_at.
// @Description Agents are always self-assigned; admins assign freely or unassign with null.
// @Tags        Tickets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  int                             true  "Ticket ID"  minimum(1)
// @Param       body  body  handlers.UpdateTicketRequest    true  "Fields to change"
//
// @Success     200  {object}  domain.Ticket
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Clients cannot update tickets"
// @Failure     404  {object}  handlers.ErrorResponse  "Ticket not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tickets/{id} [patch]
func (h *Handlers) UpdateTicket(c *gin.Context) {
	a, okActor := actor(c)
	if !okActor {
		return
	}
	id, okID := pathID(c)
	if !okID {
		return
	}

	var req UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	t, err := h.ticketSvc.Update(c.Request.Context(), a, id, services.UpdateInput{
		Status:   req.Status,
		Priority: req.Priority,
		AgentID:  req.AgentID,
	})
	if err != nil {
		switch err {
		case services.ErrForbidden:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only agents and admins update tickets")
		case services.ErrInvalidStatus:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be open, in_progress, or closed")
		case services.ErrInvalidPriority:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "priority must be low, medium, or high")
		case services.ErrTicketNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "ticket not found")
		default:
			failInternal(c, ErrCodeInternal, err)
		}
		return
	}
	ok(c, http.StatusOK, t)
}

// TicketStats godoc
// @ID          ticketStats
// @Summary     Ticket counts per status
// @Description Returns the number of tickets in each status. All three statuses are
// @Description always present in the map, zero-valued when empty.
// @Tags        Tickets
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.TicketStatsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tickets/stats [get]
func (h *Handlers) TicketStats(c *gin.Context) {
	if _, okActor := actor(c); !okActor {
		return
	}

	counts, err := h.ticketSvc.StatusCounts(c.Request.Context())
	if err != nil {
		failInternal(c, ErrCodeInternal, err)
		return
	}
	ok(c, http.StatusOK, TicketStatsResponse{Counts: counts})
}
