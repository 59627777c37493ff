// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the session authentication middleware: the single
// place where inbound credentials are turned into a verified user identity.
// Handlers downstream read only the "userID" context key and never touch
// tokens themselves.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenVerifier validates a signed session token and returns the embedded
// user ID. Implemented by auth.TokenCodec.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AuthOptions configures the SessionAuth middleware.
type AuthOptions struct {
	// CookieName is the session cookie to read. A Bearer token in the
	// Authorization header is accepted as an alternative carrier.
	CookieName string
	// Verifier checks signatures and expiry.
	Verifier TokenVerifier
	// Required controls the failure mode: when true, anonymous requests are
	// rejected with 401; when false, they pass through without a user ID.
	Required bool
}

// SessionAuth returns a Gin middleware that resolves the requester's
// identity from the session cookie (or Authorization: Bearer header), sets
// "userID" in the Gin context on success, and, when opt.Required is set,
// aborts anonymous or invalid requests with a JSON 401.
//
// Verification is purely cryptographic (signature + expiry); no database
// access happens here.
func SessionAuth(opt AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c, opt.CookieName)
		if token != "" {
			uid, err := opt.Verifier.Verify(token)
			if err == nil {
				c.Set("userID", uid)
				c.Next()
				return
			}
			if opt.Required {
				lg := LoggerFrom(c)
				lg.Warn().Err(err).Msg("session token rejected")
			}
		}
		if opt.Required {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "login required",
			})
			return
		}
		c.Next()
	}
}

// sessionToken extracts the raw token from the cookie or the Authorization
// header, preferring the cookie.
func sessionToken(c *gin.Context, cookieName string) string {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
