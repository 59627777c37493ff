// Account HTTP handlers.
//
// This file exposes REST endpoints for the account lifecycle:
//   - POST /auth/register   (create an account, triggers verification mail)
//   - GET  /auth/verify     (consume the mailed verification token)
//   - POST /auth/login      (issue the session cookie)
//   - POST /auth/logout     (clear the session cookie)
//   - GET  /auth/me         (current user's profile)
//
// The session is a signed token set as an HttpOnly cookie; handlers never
// inspect the token themselves. The auth middleware verifies it and stores
// the user ID in the Gin context.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tenwords/go-words-backend/internal/domain"
	"github.com/tenwords/go-words-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// AccountService defines the account operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AccountService interface {
	// Register creates an unverified account and mails the confirmation link.
	Register(ctx context.Context, email, displayName, password string) (*domain.User, error)
	// VerifyEmail consumes a verification token.
	VerifyEmail(ctx context.Context, token string) error
	// Login checks credentials and returns the user plus a session token.
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	// GetUser returns the profile for a user ID.
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

//
// Handler wiring
//

// SessionCookie describes how the session token is carried to the browser.
type SessionCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// Handlers groups the HTTP endpoints for accounts and words. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	accountSvc AccountService
	wordSvc    WordService
	cookie     SessionCookie
}

// New constructs and returns a Handlers instance bound to the given services.
func New(accountSvc AccountService, wordSvc WordService, cookie SessionCookie) *Handlers {
	return &Handlers{accountSvc: accountSvc, wordSvc: wordSvc, cookie: cookie}
}

// currentUserID extracts the authenticated user ID placed in the Gin context
// by the auth middleware. The bool is false when the request is anonymous.
func currentUserID(c *gin.Context) (string, bool) {
	if v, okCtx := c.Get("userID"); okCtx {
		if s, okStr := v.(string); okStr && s != "" {
			return s, true
		}
	}
	return "", false
}

//
// DTOs
//

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Email       string `json:"email"        binding:"required" example:"ada@example.com"`
	DisplayName string `json:"display_name" example:"Ada"`
	Password    string `json:"password"     binding:"required,min=8" example:"correct horse battery"`
}

// LoginRequest is the JSON payload for logging in.
type LoginRequest struct {
	Email    string `json:"email"    binding:"required" example:"ada@example.com"`
	Password string `json:"password" binding:"required" example:"correct horse battery"`
}

// UserResponse is the public shape of an account.
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"created_at"`
}

func userResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Verified:    u.Verified,
		CreatedAt:   u.CreatedAt,
	}
}

//
// Handlers
//

// Register godoc
// @ID          register
// @Summary     Create an account
// @Description Registers an email/password account and sends a verification mail.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RegisterRequest  true  "Registration payload"
//
// @Success     201  {object}  handlers.UserResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already registered"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err, "email and password (min 8 chars) required"))
		return
	}

	u, err := h.accountSvc.Register(c.Request.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidEmail):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrWeakPassword):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrEmailTaken):
			fail(c, http.StatusConflict, ErrCodeEmailTaken, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, userResponse(u))
}

// VerifyEmail godoc
// @ID          verifyEmail
// @Summary     Confirm an email address
// @Description Consumes the token from the verification mail and activates the account.
// @Tags        Auth
// @Produce     json
//
// @Param       token  query  string  true  "Verification token"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Unknown or consumed token"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/verify [get]
func (h *Handlers) VerifyEmail(c *gin.Context) {
	if err := h.accountSvc.VerifyEmail(c.Request.Context(), c.Query("token")); err != nil {
		if errors.Is(err, services.ErrInvalidVerifyToken) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Checks credentials and sets the HttpOnly session cookie.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Credentials"
//
// @Success     200  {object}  handlers.UserResponse
// @Header      200  {string}  Set-Cookie  "Session cookie"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     403  {object}  handlers.ErrorResponse  "Email not verified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err, "email and password required"))
		return
	}

	u, token, err := h.accountSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			fail(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, err.Error())
		case errors.Is(err, services.ErrNotVerified):
			fail(c, http.StatusForbidden, ErrCodeNotVerified, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.TTL.Seconds()), "/", "", h.cookie.Secure, true)
	ok(c, http.StatusOK, userResponse(u))
}

// Logout godoc
// @ID          logout
// @Summary     Log out
// @Description Clears the session cookie. The signed token simply stops being presented.
// @Tags        Auth
// @Produce     json
//
// @Success     204  {string} string "No Content"
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	noContent(c)
}

// Me godoc
// @ID          me
// @Summary     Current user
// @Description Returns the profile of the logged-in user.
// @Tags        Auth
// @Produce     json
//
// @Success     200  {object} handlers.UserResponse
// @Failure     401  {object} handlers.ErrorResponse "Not logged in"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	uid, okAuth := currentUserID(c)
	if !okAuth {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "login required")
		return
	}
	u, err := h.accountSvc.GetUser(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "account no longer exists")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, userResponse(u))
}
