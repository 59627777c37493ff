// Package services defines the business logic for accounts and word lists.
// This file centralizes common service-level error values and types so that
// they can be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"fmt"
	"strings"
)

// Account-related errors.
var (
	// ErrInvalidEmail is returned when a registration email does not look
	// like an address at all.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrWeakPassword is returned when a registration password is shorter
	// than the minimum length.
	ErrWeakPassword = errors.New("password too short")

	// ErrEmailTaken is returned when the registration email is already in
	// use (case-insensitive).
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on login when the email is unknown
	// or the password does not match. The two cases are deliberately
	// indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNotVerified is returned on login when the account exists but the
	// email address has not been confirmed yet.
	ErrNotVerified = errors.New("email address not verified")

	// ErrInvalidVerifyToken is returned when an email verification token is
	// unknown or already consumed.
	ErrInvalidVerifyToken = errors.New("invalid verification token")

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// BatchSizeError reports a submission whose cleaned batch did not contain
// exactly the required number of words. It carries the observed count so the
// caller can self-correct.
type BatchSizeError struct {
	// Actual is the number of non-empty entries after trimming.
	Actual int
	// Want is the required batch size.
	Want int
}

// Error implements the error interface.
func (e *BatchSizeError) Error() string {
	return fmt.Sprintf("batch must contain exactly %d words after trimming, got %d", e.Want, e.Actual)
}

// ConflictError reports a submission rejected because one or more normalized
// words collide, either with the store or within the batch itself.
type ConflictError struct {
	Report ConflictReport
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Report.Existing) > 0 {
		parts = append(parts, "already taken: "+strings.Join(e.Report.Existing, ", "))
	}
	if len(e.Report.InBatch) > 0 {
		parts = append(parts, "repeated in batch: "+strings.Join(e.Report.InBatch, ", "))
	}
	return "word conflict (" + strings.Join(parts, "; ") + ")"
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
