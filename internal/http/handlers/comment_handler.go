// Comment HTTP handlers.
//
// This file exposes REST endpoints for ticket comments:
//   - POST /tickets/{id}/comments   (append a comment, broadcast after commit)
//   - GET  /tickets/{id}/comments   (full thread, oldest first, ETag support)
//
// Handlers are transport-thin:
//   - validate & normalize inputs
//   - delegate to application services (CommentService)
//   - implement conditional responses (ETag) and idempotency semantics
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (user, ticket, key), the handler returns that recorded
// comment, sets `Idempotency-Replayed: true`, and does not broadcast again.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-helpdesk-backend/internal/domain"
	"github.com/tbourn/go-helpdesk-backend/internal/http/middleware"
	"github.com/tbourn/go-helpdesk-backend/internal/repo"
	"github.com/tbourn/go-helpdesk-backend/internal/services"
)

// idempotencyTTL bounds how long a stored comment result can be replayed.
const idempotencyTTL = 24 * time.Hour

//
// DTOs
//

// CreateCommentRequest is the JSON payload for appending a comment.
type CreateCommentRequest struct {
	// Content is the comment body. It must be non-empty.
	Content string `json:"content" binding:"required,min=1" example:"Rebooted the concentrator, session is stable again."`
	// IsPrivate hides the comment from the client. Ignored for client
	// authors, whose comments are always public.
	IsPrivate bool `json:"is_private" example:"true"`
}

// CreateCommentResponse is the JSON envelope for a newly created comment.
type CreateCommentResponse struct {
	Comment *domain.Comment `json:"comment"`
}

// ListCommentsResponse contains the full comment thread of a ticket.
type ListCommentsResponse struct {
	Comments []domain.Comment `json:"comments"`
}

//
// Handlers
//

// CreateComment godoc
// @ID          createComment
// @Summary     Append a comment to a ticket
// @Description Adds a comment on behalf of the authenticated actor and broadcasts it to
// @Description websocket subscribers after the write commits. Client-authored comments are
// @Description always stored public. Supports idempotency via the Idempotency-Key header
// @Description (same key → same stored comment, no rebroadcast).
// @Tags        Comments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries (UUID recommended)"
// @Param       id               path    int     true   "Ticket ID"  minimum(1)
// @Param       body             body    handlers.CreateCommentRequest  true  "Comment payload"
//
// @Success     201  {object}  handlers.CreateCommentResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not your ticket"
// @Failure     404  {object}  handlers.ErrorResponse  "Ticket not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tickets/{id}/comments [post]
func (h *Handlers) CreateComment(c *gin.Context) {
	ctx := c.Request.Context()
	a, okActor := actor(c)
	if !okActor {
		return
	}
	ticketID, okID := pathID(c)
	if !okID {
		return
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	currentUser := fmt.Sprintf("%d", a.ID)
	ticketParam := c.Param("id")

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.commentSvc.(*services.CommentService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, currentUser, ticketParam, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := h.commentSvc.GetByID(ctx, rec.CommentID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusCreated, CreateCommentResponse{Comment: prev})
					return
				}
			}
		}
	}

	cm, err := h.commentSvc.Create(ctx, a, ticketID, req.Content, req.IsPrivate)
	if err != nil {
		switch err {
		case services.ErrEmptyContent:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		case services.ErrTicketNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "ticket not found")
		case services.ErrForbidden:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "you may not comment on this ticket")
		default:
			failInternal(c, ErrCodeCreateFailed, err)
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.commentSvc.(*services.CommentService); okSvc && svc.DB != nil {
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, ticketParam, idemKey, cm.ID, http.StatusCreated, idempotencyTTL)
		}
	}

	ok(c, http.StatusCreated, CreateCommentResponse{Comment: cm})
}

// ListComments godoc
// @ID          listComments
// @Summary     List a ticket's comments
// @Description Returns every comment on the ticket, oldest first. Supports weak ETag via
// @Description If-None-Match and may return 304. Private comments are included for all
// @Description permitted readers.
// @Tags        Comments
// @Produce     json
// @Security    BearerAuth
//
// @Param       id             path    int     true   "Ticket ID"  minimum(1)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
//
// @Success     200  {object}  handlers.ListCommentsResponse
// @Header      200  {string}  ETag  "Weak ETag for current thread"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not your ticket"
// @Failure     404  {object}  handlers.ErrorResponse  "Ticket not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tickets/{id}/comments [get]
func (h *Handlers) ListComments(c *gin.Context) {
	ctx := c.Request.Context()
	a, okActor := actor(c)
	if !okActor {
		return
	}
	ticketID, okID := pathID(c)
	if !okID {
		return
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okSvc := h.commentSvc.(*services.CommentService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.CommentsStats(ctx, db, ticketID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"comments:%d:%d:%d"`, ticketID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.commentSvc.ListForTicket(ctx, a, ticketID)
	if err != nil {
		switch err {
		case services.ErrTicketNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "ticket not found")
		case services.ErrForbidden:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "you may not read this ticket")
		default:
			failInternal(c, ErrCodeListFailed, err)
		}
		return
	}
	ok(c, http.StatusOK, ListCommentsResponse{Comments: items})
}
