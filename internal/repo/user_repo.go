// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tenwords/go-words-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateUser inserts a new unverified User row. Email is assumed to be
// lowercased by the caller; the unique index on email will reject duplicates
// with a constraint violation.
//
// On success, it returns the persisted User. On failure, it returns a DB error.
func CreateUser(ctx context.Context, db *gorm.DB, email, displayName, passwordHash, verifyToken string) (*domain.User, error) {
	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		Verified:     false,
		VerifyToken:  verifyToken,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByEmail fetches a user by lowercased email. If the record does not
// exist, it returns ErrNotFound. On other DB errors, the raw error is returned.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("email = ?", email).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID fetches a user by primary key. If the record does not exist,
// it returns ErrNotFound.
func GetUserByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// MarkUserVerified flips the Verified flag for the user holding verifyToken
// and clears the token so it cannot be replayed. If no row matches (unknown
// or already-consumed token), it returns ErrNotFound.
func MarkUserVerified(ctx context.Context, db *gorm.DB, verifyToken string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("verify_token = ? AND verified = ?", verifyToken, false).
		Updates(map[string]any{"verified": true, "verify_token": ""})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
