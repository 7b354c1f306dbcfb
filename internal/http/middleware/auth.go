// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication. RequireAuth parses and
// verifies the Authorization header before any business logic runs and
// stashes the verified actor in the Gin context; handlers pass that actor
// explicitly into services. RequireAdmin gates admin-only route groups.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-helpdesk-backend/internal/auth"
	"github.com/tbourn/go-helpdesk-backend/internal/domain"
	"github.com/tbourn/go-helpdesk-backend/internal/policy"
)

// ctxKeyActor is the Gin context key holding the verified policy.Actor.
const ctxKeyActor = "actor"

// TokenVerifier verifies a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// ActorFrom returns the authenticated actor stashed by RequireAuth. The
// second return value is false on routes that did not pass through it.
func ActorFrom(c *gin.Context) (policy.Actor, bool) {
	v, ok := c.Get(ctxKeyActor)
	if !ok {
		return policy.Actor{}, false
	}
	a, ok := v.(policy.Actor)
	return a, ok
}

// RequireAuth returns middleware that rejects requests without a valid
// bearer token.
//
// Behavior:
//   - Missing, malformed, invalid, or expired tokens abort with 401 and a
//     compact JSON body; expiry is not distinguished from invalidity.
//   - On success, the verified actor is stored in the context and the user
//     ID is additionally exposed as a string under "userID" for the logging
//     and rate-limiting middleware.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			unauthorized(c)
			return
		}

		claims, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			unauthorized(c)
			return
		}
		userID, err := claims.UserID()
		if err != nil || !claims.Role.Valid() {
			unauthorized(c)
			return
		}

		c.Set(ctxKeyActor, policy.Actor{ID: userID, Role: claims.Role})
		c.Set("userID", strconv.FormatUint(uint64(userID), 10))
		c.Next()
	}
}

// RequireAdmin returns middleware that aborts with 403 unless the actor
// stashed by RequireAuth is an admin. It must be installed after
// RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			unauthorized(c)
			return
		}
		if actor.Role != domain.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "forbidden",
				"message":    "admin role required",
			})
			return
		}
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    "missing or invalid credentials",
	})
}
