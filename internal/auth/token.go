// Signed session tokens.
//
// A token is base64url(payload) + "." + base64url(HMAC-SHA256(payload, key)),
// where payload is "<userID>|<expiryUnix>". There is no server-side session
// state: possession of a validly signed, unexpired token is the session.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Token verification failures. Callers treat all of them as "not logged in";
// the distinction exists for logging.
var (
	ErrTokenMalformed = errors.New("malformed session token")
	ErrTokenSignature = errors.New("session token signature mismatch")
	ErrTokenExpired   = errors.New("session token expired")
)

// TokenCodec signs and verifies session tokens with a fixed HMAC key.
// The zero value is unusable; construct with NewTokenCodec.
type TokenCodec struct {
	key []byte
}

// NewTokenCodec returns a codec keyed with secret. An empty secret is
// accepted (dev mode) but produces tokens anyone can forge; config validation
// refuses it outside debug mode.
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{key: []byte(secret)}
}

// Sign issues a token for userID that expires at now+ttl.
func (c *TokenCodec) Sign(userID string, ttl time.Duration) string {
	payload := fmt.Sprintf("%s|%d", userID, time.Now().Add(ttl).Unix())
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + c.mac(payload)
}

// Verify checks the signature and expiry of token and returns the embedded
// user ID. It never touches the database.
func (c *TokenCodec) Verify(token string) (string, error) {
	enc, sig, ok := strings.Cut(token, ".")
	if !ok {
		return "", ErrTokenMalformed
	}
	raw, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return "", ErrTokenMalformed
	}
	payload := string(raw)
	if !hmac.Equal([]byte(sig), []byte(c.mac(payload))) {
		return "", ErrTokenSignature
	}

	userID, expStr, ok := strings.Cut(payload, "|")
	if !ok || userID == "" {
		return "", ErrTokenMalformed
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return "", ErrTokenMalformed
	}
	if time.Now().Unix() >= exp {
		return "", ErrTokenExpired
	}
	return userID, nil
}

// mac computes the URL-safe base64 HMAC-SHA256 of payload.
func (c *TokenCodec) mac(payload string) string {
	h := hmac.New(sha256.New, c.key)
	h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// NewVerifyToken returns a random URL-safe token for email verification
// links (192 bits of entropy).
func NewVerifyToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate verify token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
