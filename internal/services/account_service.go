// Package services – AccountService
//
// This file implements AccountService, which owns registration, email
// verification, and login. Passwords are hashed with argon2id before they
// reach the repository; session tokens are signed HMAC tokens issued at
// login. The service never parses inbound tokens: that is the auth
// middleware's job.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/rs/zerolog/log"

	"github.com/tenwords/go-words-backend/internal/auth"
	"github.com/tenwords/go-words-backend/internal/domain"
	"github.com/tenwords/go-words-backend/internal/mail"
)

// MinPasswordLen is the minimum accepted password length in runes.
const MinPasswordLen = 8

// emailRE is a deliberately loose shape check; deliverability is proven by
// the verification mail, not the regex.
var emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// UserRepo defines the repository contract required by AccountService.
type UserRepo interface {
	// CreateUser inserts a new unverified user row.
	CreateUser(ctx context.Context, db *gorm.DB, email, displayName, passwordHash, verifyToken string) (*domain.User, error)

	// GetUserByEmail fetches a user by lowercased email.
	GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error)

	// GetUserByID fetches a user by primary key.
	GetUserByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error)

	// MarkUserVerified consumes a verification token.
	MarkUserVerified(ctx context.Context, db *gorm.DB, verifyToken string) error
}

// AccountService provides account lifecycle operations: register, verify,
// login, and profile lookup.
type AccountService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the user repository used by this service.
	Repo UserRepo
	// Mailer delivers the verification message.
	Mailer mail.Mailer
	// Tokens signs session tokens issued at login.
	Tokens *auth.TokenCodec
	// SessionTTL is the lifetime of issued session tokens.
	SessionTTL time.Duration
	// VerifyBaseURL is the absolute URL of the verification endpoint; the
	// token is appended as a query parameter.
	VerifyBaseURL string
}

// Register validates input, hashes the password, stores the unverified user,
// and sends the verification mail. The email is lowercased before storage so
// uniqueness is case-insensitive.
//
// Errors: ErrInvalidEmail, ErrWeakPassword, ErrEmailTaken, or the underlying
// DB error. A mail delivery failure is logged but does not fail the
// registration; the row stays pending verification.
func (s *AccountService) Register(ctx context.Context, email, displayName, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRE.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return nil, ErrWeakPassword
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		// Fall back to the mailbox part of the address.
		displayName, _, _ = strings.Cut(email, "@")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	token, err := auth.NewVerifyToken()
	if err != nil {
		return nil, err
	}

	u, err := s.Repo.CreateUser(ctx, s.DB, email, displayName, hash, token)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	verifyURL := fmt.Sprintf("%s?token=%s", s.VerifyBaseURL, token)
	if err := s.Mailer.SendVerification(ctx, u.Email, u.DisplayName, verifyURL); err != nil {
		log.Error().Err(err).Str("user_id", u.ID).Msg("verification mail delivery failed")
	}
	return u, nil
}

// VerifyEmail consumes a verification token, marking the account verified.
// Unknown or already-consumed tokens yield ErrInvalidVerifyToken.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidVerifyToken
	}
	if err := s.Repo.MarkUserVerified(ctx, s.DB, token); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidVerifyToken
		}
		return err
	}
	return nil
}

// Login checks the credentials and, on success, returns the user together
// with a freshly signed session token.
//
// Errors: ErrInvalidCredentials when the email is unknown or the password
// does not match (indistinguishable), ErrNotVerified when the account has
// not confirmed its email, or the underlying DB error.
func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.Repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	okPw, err := auth.VerifyPassword(password, u.PasswordHash)
	if err != nil {
		// Malformed stored hash; treat as a server fault, not bad input.
		return nil, "", err
	}
	if !okPw {
		return nil, "", ErrInvalidCredentials
	}
	if !u.Verified {
		return nil, "", ErrNotVerified
	}

	return u, s.Tokens.Sign(u.ID, s.SessionTTL), nil
}

// GetUser returns the profile for id, or ErrUserNotFound.
func (s *AccountService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Repo.GetUserByID(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
