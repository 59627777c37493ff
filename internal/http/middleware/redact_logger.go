// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, a structured HTTP logger that scrubs
// credentials and obvious PII from request metadata before emitting logs.
// The API is particularly exposed in two places: accounts are identified by
// email address, and email verification delivers a one-shot credential in
// the `token` query parameter of GET /auth/verify. Both must never reach
// the logs in the clear.
//
// Behavior:
//   - Never logs request or response bodies
//   - Masks the values of sensitive query parameters (`token` built in,
//     more via MaskQueryParams)
//   - Redacts email addresses and UUID-like identifiers wherever they
//     appear in query strings and header values
//   - Fully masks sensitive headers: Authorization, Cookie (which carries
//     the session cookie) and Set-Cookie, plus any in MaskHeaders
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskQueryParams: []string{"token"},
//	}))
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures extra scrub behavior for RedactingLogger.
//
// MaskHeaders lists additional HTTP header names whose values are replaced
// with "[REDACTED]" wholesale. Matching is case-insensitive and merged with
// the built-in set (Authorization, Cookie, Set-Cookie).
//
// MaskQueryParams lists additional query parameter names whose values are
// replaced with "[REDACTED]". The verification `token` parameter is always
// masked.
type RedactOptions struct {
	MaskHeaders     []string
	MaskQueryParams []string
}

// RedactingLogger returns a Gin middleware that logs each request with
// credentials and identifiers scrubbed.
//
// Each log line carries method, route path, scrubbed query, status, response
// size, latency, and scrubbed request headers, as structured JSON via
// zerolog at INFO (2xx/3xx), WARN (4xx) or ERROR (5xx).
//
// NOTE: redact UUIDs before the email pattern runs so word and user IDs in
// query strings come out as [REDACTED:id] rather than partial matches.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	uuidRE := regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE := regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)

	// One pattern per masked query parameter, applied to the raw query.
	paramNames := append([]string{"token"}, opts.MaskQueryParams...)
	paramREs := make([]*regexp.Regexp, 0, len(paramNames))
	for _, p := range paramNames {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		paramREs = append(paramREs,
			regexp.MustCompile(`(?i)(^|[?&])(`+regexp.QuoteMeta(p)+`=)[^&]*`))
	}

	redactQuery := func(s string) string {
		if s == "" {
			return s
		}
		out := s
		for _, re := range paramREs {
			out = re.ReplaceAllString(out, "${1}${2}[REDACTED]")
		}
		out = uuidRE.ReplaceAllString(out, "[REDACTED:id]")
		out = emailRE.ReplaceAllString(out, "[REDACTED:email]")
		return out
	}

	redactValue := func(s string) string {
		if s == "" {
			return s
		}
		out := uuidRE.ReplaceAllString(s, "[REDACTED:id]")
		return emailRE.ReplaceAllString(out, "[REDACTED:email]")
	}

	// Header mask set (case-insensitive). Cookie covers the session cookie.
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := redactQuery(c.Request.URL.RawQuery)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redactValue(strings.Join(vv, ", "))
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		size := c.Writer.Size()

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
			Int("bytes", size).
			Dur("latency", latency).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
