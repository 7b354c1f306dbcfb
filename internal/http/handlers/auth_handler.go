// Authentication HTTP handlers.
//
// This file exposes the session endpoints:
//   - POST /auth/login            (email + password → bearer token)
//   - GET  /auth/me               (profile of the token's user)
//   - POST /auth/change-password  (verify current, store new hash)
//
// Login failures are deliberately generic: unknown email and wrong password
// produce the same 401 so the endpoint does not confirm which accounts exist.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-helpdesk-backend/internal/auth"
	"github.com/tbourn/go-helpdesk-backend/internal/domain"
	"github.com/tbourn/go-helpdesk-backend/internal/services"
)

//
// DTOs
//

// LoginRequest is the JSON payload for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"grace@example.com"`
	Password string `json:"password" binding:"required" example:"hunter2hunter2"`
}

// LoginResponse carries the issued bearer token and the authenticated user.
type LoginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// ChangePasswordRequest is the JSON payload for rotating a password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

//
// Handlers
//

// Login godoc
// @ID          login
// @Summary     Authenticate and obtain a bearer token
// @Description Verifies the email/password pair and returns a signed JWT plus the user profile.
// @Description Unknown email and wrong password both return the same generic 401.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Credentials"
//
// @Success     200  {object}  handlers.LoginResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}

	res, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch err {
		case services.ErrInvalidCredentials:
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid credentials")
		default:
			failInternal(c, ErrCodeInternal, err)
		}
		return
	}
	ok(c, http.StatusOK, LoginResponse{Token: res.Token, User: res.User})
}

// Me godoc
// @ID          me
// @Summary     Current user profile
// @Description Returns the account behind the presented bearer token.
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  domain.User
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Account deleted"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	a, okActor := actor(c)
	if !okActor {
		return
	}

	u, err := h.authSvc.Profile(c.Request.Context(), a.ID)
	if err != nil {
		switch err {
		case services.ErrUserNotFound:
			// Token outlived the account.
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			failInternal(c, ErrCodeInternal, err)
		}
		return
	}
	ok(c, http.StatusOK, u)
}

// ChangePassword godoc
// @ID          changePassword
// @Summary     Change the current user's password
// @Description Verifies the current password, stores a bcrypt hash of the new one, and
// @Description clears the force-password-change flag set on provisioned accounts.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.ChangePasswordRequest  true  "Current and new password"
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Weak or missing password"
// @Failure     401  {object}  handlers.ErrorResponse  "Current password wrong"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/change-password [post]
func (h *Handlers) ChangePassword(c *gin.Context) {
	a, okActor := actor(c)
	if !okActor {
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "current_password and new_password required")
		return
	}

	err := h.authSvc.ChangePassword(c.Request.Context(), a.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch err {
		case services.ErrWeakPassword:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest,
				fmt.Sprintf("new password must be at least %d characters", auth.MinPasswordLength))
		case services.ErrInvalidCredentials:
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "current password is incorrect")
		case services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			failInternal(c, ErrCodeInternal, err)
		}
		return
	}
	noContent(c)
}
