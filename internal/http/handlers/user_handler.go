// User management HTTP handlers.
//
// This file exposes account provisioning and administration endpoints:
//   - POST   /agents/clients     (staff registers a caller without an account)
//   - GET    /admin/users        (admin: list all accounts)
//   - POST   /admin/users        (admin: create an account with any role)
//   - GET    /admin/users/{id}   (admin: single account)
//   - PUT    /admin/users/{id}   (admin: update name/email/role)
//   - DELETE /admin/users/{id}   (admin: delete, last-admin rule applies)
//   - GET    /admin/agents       (admin: staff accounts, name ASC)
//
// Provisioned accounts receive a generated temporary password that appears
// exactly once, in the creation response. Only its bcrypt hash is stored and
// the account is flagged to force a password change on first login.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-helpdesk-backend/internal/domain"
	"github.com/tbourn/go-helpdesk-backend/internal/services"
)

//
// DTOs
//

// CreateClientRequest is the JSON payload for registering a new client.
type CreateClientRequest struct {
	Name  string `json:"name" binding:"required,min=1" example:"Dana Cole"`
	Email string `json:"email" binding:"required,email" example:"dana@example.com"`
}

// CreateUserRequest is the JSON payload for creating an account with a role.
type CreateUserRequest struct {
	Name  string      `json:"name" binding:"required,min=1" example:"Sam Reyes"`
	Email string      `json:"email" binding:"required,email" example:"sam@example.com"`
	Role  domain.Role `json:"role" binding:"required" example:"agent_l1"`
}

// UpdateUserRequest is the JSON payload for changing a user's profile.
type UpdateUserRequest struct {
	Name  string      `json:"name" binding:"required,min=1" example:"Sam Reyes"`
	Email string      `json:"email" binding:"required,email" example:"sam@example.com"`
	Role  domain.Role `json:"role" binding:"required" example:"agent_l2"`
}

// CreatedUserResponse is a freshly provisioned account with its temporary
// password. The plaintext password is not retrievable afterwards.
type CreatedUserResponse struct {
	User         *domain.User `json:"user"`
	TempPassword string       `json:"temp_password"`
}

// ListUsersResponse wraps an account listing.
type ListUsersResponse struct {
	Users []domain.User `json:"users"`
}

//
// Handlers
//

// CreateClient godoc
// @ID          createClient
// @Summary     Register a new client (staff)
// @Description Creates a client account with a generated temporary password. The password
// @Description is returned once in this response and never again.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.CreateClientRequest  true  "Client details"
//
// @Success     201  {object}  handlers.CreatedUserResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Clients cannot register accounts"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already in use"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /agents/clients [post]
func (h *Handlers) CreateClient(c *gin.Context) {
	a, okActor := actor(c)
	if !okActor {
		return
	}
	if !a.Role.Staff() {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "only staff can register clients")
		return
	}

	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name and a valid email required")
		return
	}

	created, err := h.userSvc.CreateClient(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		failUserWrite(c, err)
		return
	}
	ok(c, http.StatusCreated, CreatedUserResponse{User: created.User, TempPassword: created.TempPassword})
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List all accounts (admin)
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.ListUsersResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Admin only"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.userSvc.List(c.Request.Context())
	if err != nil {
		failInternal(c, ErrCodeListFailed, err)
		return
	}
	ok(c, http.StatusOK, ListUsersResponse{Users: users})
}

// GetUser godoc
// @ID          getUser
// @Summary     Get an account (admin)
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  int  true  "User ID"  minimum(1)
//
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}

	u, err := h.userSvc.Get(c.Request.Context(), id)
	if err != nil {
		switch err {
		case services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			failInternal(c, ErrCodeInternal, err)
		}
		return
	}
	ok(c, http.StatusOK, u)
}

// CreateUser godoc
// @ID          createUser
// @Summary     Create an account with any role (admin)
// @Description Provisions an account with a generated temporary password, returned once.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.CreateUserRequest  true  "Account details"
//
// @Success     201  {object}  handlers.CreatedUserResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already in use"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/users [post]
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, email, and role required")
		return
	}

	created, err := h.userSvc.Create(c.Request.Context(), req.Name, req.Email, req.Role)
	if err != nil {
		failUserWrite(c, err)
		return
	}
	ok(c, http.StatusCreated, CreatedUserResponse{User: created.User, TempPassword: created.TempPassword})
}

// UpdateUser godoc
// @ID          updateUser
// @Summary     Update an account (admin)
// @Description Changes a user's name, email, and role.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  int                          true  "User ID"  minimum(1)
// @Param       body  body  handlers.UpdateUserRequest   true  "New profile"
//
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already in use"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/users/{id} [put]
func (h *Handlers) UpdateUser(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, email, and role required")
		return
	}

	u, err := h.userSvc.Update(c.Request.Context(), id, req.Name, req.Email, req.Role)
	if err != nil {
		failUserWrite(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// DeleteUser godoc
// @ID          deleteUser
// @Summary     Delete an account (admin)
// @Description Removes the account. Deleting the last remaining admin is refused with 409
// @Description and the policy_violation code.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  int  true  "User ID"  minimum(1)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Last admin"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/users/{id} [delete]
func (h *Handlers) DeleteUser(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}

	if err := h.userSvc.Delete(c.Request.Context(), id); err != nil {
		switch err {
		case services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		case services.ErrLastAdmin:
			fail(c, http.StatusConflict, ErrCodePolicyViolation, "cannot delete the last admin")
		default:
			failInternal(c, ErrCodeInternal, err)
		}
		return
	}
	noContent(c)
}

// ListAgents godoc
// @ID          listAgents
// @Summary     List staff accounts (admin)
// @Description Returns all agents and admins ordered by name.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.ListUsersResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/agents [get]
func (h *Handlers) ListAgents(c *gin.Context) {
	agents, err := h.userSvc.ListAgents(c.Request.Context())
	if err != nil {
		failInternal(c, ErrCodeListFailed, err)
		return
	}
	ok(c, http.StatusOK, ListUsersResponse{Users: agents})
}

// failUserWrite maps the shared user-write error set to HTTP responses.
func failUserWrite(c *gin.Context, err error) {
	switch err {
	case services.ErrMissingFields:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name and email required")
	case services.ErrInvalidRole:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role must be client, agent_l1, agent_l2, or admin")
	case services.ErrDuplicateEmail:
		fail(c, http.StatusConflict, ErrCodeConflict, "email already in use")
	case services.ErrUserNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
	default:
		failInternal(c, ErrCodeCreateFailed, err)
	}
}
