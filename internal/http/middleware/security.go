// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds SecurityHeaders, the hardening middleware for the helpdesk
// API. The service is a JSON backend that normally runs behind a reverse
// proxy, so the header set is tuned for that shape: no CSP (nothing here
// serves HTML), HSTS gated on the request actually being HTTPS, and cache
// suppression for responses that carry ticket or account data.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// defaultHSTSMaxAge is used when SecurityOptions.HSTSMaxAge is unset.
const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions configures SecurityHeaders.
//
// EnableHSTS must only be turned on when traffic is HTTPS end to end,
// including the proxy-to-app hop; the header is never emitted for plain HTTP
// requests regardless. HSTSMaxAge defaults to 180 days when not positive.
// NoStore adds Cache-Control: no-store plus the legacy Pragma/Expires pair.
// EnablePolicy adds the browser feature-policy headers, which non-browser
// clients ignore.
type SecurityOptions struct {
	EnableHSTS   bool
	HSTSMaxAge   time.Duration
	NoStore      bool
	EnablePolicy bool
}

// SecurityHeaders returns a middleware that stamps each response with a
// conservative header set.
//
// Always: X-Content-Type-Options: nosniff, X-Frame-Options: DENY,
// Referrer-Policy: no-referrer. The optional groups follow SecurityOptions.
// When an X-Request-ID is already on the response, it is appended to
// Access-Control-Expose-Headers so browser clients can read the correlation
// ID when reporting a failed request.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hstsValue := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hstsValue)
		}

		if rid := h.Get("X-Request-ID"); rid != "" {
			exposeRequestID(h)
		}

		c.Next()
	}
}

// exposeRequestID appends X-Request-ID to Access-Control-Expose-Headers
// without clobbering or duplicating entries set by the CORS layer.
func exposeRequestID(h http.Header) {
	const hdr = "Access-Control-Expose-Headers"
	cur := h.Get(hdr)
	switch {
	case cur == "":
		h.Set(hdr, "X-Request-ID")
	case !strings.Contains(cur, "X-Request-ID"):
		h.Set(hdr, cur+", X-Request-ID")
	}
}

// isHTTPS reports whether the request arrived over TLS, either directly or
// via a proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
