// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds RedactingLogger, the access logger for the helpdesk API.
// Ticket and user URLs routinely carry client PII: emails in search filters,
// phone numbers pasted into query strings, UUID correlation IDs. The logger
// scrubs those patterns from query strings and header values before anything
// reaches the log stream, and it never logs request or response bodies at
// all. Credential-bearing headers (Authorization, Cookie, Set-Cookie, plus
// whatever the router adds via MaskHeaders) are masked whole rather than
// pattern-scrubbed.
//
// Scrubbing reduces, not eliminates, leak risk; clients should still keep PII
// out of query strings where they can.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Scrub patterns, compiled once. The phone pattern is digits-only so it
// cannot chew through the hex segments of a UUID; scrubPII still applies the
// UUID pattern first as a second line of defense.
var (
	piiUUID  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	piiEmail = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	piiPhone = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// scrubPII replaces identifiers in s with typed placeholders. Order matters:
// UUIDs first, then emails, then the loose phone pattern last.
func scrubPII(s string) string {
	if s == "" {
		return s
	}
	s = piiUUID.ReplaceAllString(s, "[REDACTED:id]")
	s = piiEmail.ReplaceAllString(s, "[REDACTED:email]")
	s = piiPhone.ReplaceAllString(s, "[REDACTED:phone]")
	return s
}

// RedactOptions configures RedactingLogger.
//
// MaskHeaders lists extra header names whose values are replaced wholesale
// with "[REDACTED]". Matching is case-insensitive and merged with the
// built-in credential headers.
type RedactOptions struct {
	MaskHeaders []string
}

// maskSet builds the case-insensitive set of fully masked header names.
func maskSet(opts RedactOptions) map[string]struct{} {
	set := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			set[h] = struct{}{}
		}
	}
	return set
}

// RedactingLogger returns the access-log middleware. Per request it emits one
// structured line (msg "http_request") carrying method, route path, scrubbed
// query, status, response bytes, latency, and scrubbed headers. Level tracks
// the outcome: info for success, warn for 4xx, error for 5xx. The request ID
// prefers the response header written by RequestID and falls back to the
// incoming header.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := maskSet(opts)

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := scrubPII(c.Request.URL.RawQuery)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for name, vals := range c.Request.Header {
			if _, ok := masked[strings.ToLower(name)]; ok {
				safeHeaders[name] = "[REDACTED]"
				continue
			}
			safeHeaders[name] = scrubPII(strings.Join(vals, ", "))
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		reqID := c.Writer.Header().Get("X-Request-ID")
		if reqID == "" {
			reqID = c.GetHeader("X-Request-ID")
		}

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}

		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", latency).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
