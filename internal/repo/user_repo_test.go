package repo

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/tenwords/go-words-backend/internal/domain"
)

func newUserDB(t *testing.T) *gorm.DB {
	t.Helper()
	return newRepoDB(t, &domain.User{})
}

func TestCreateUser_PersistsUnverified(t *testing.T) {
	db := newUserDB(t)

	u, err := CreateUser(context.Background(), db, "ada@example.com", "Ada", "$argon2id$hash", "tok1")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || u.Verified {
		t.Fatalf("unexpected user: %+v", u)
	}

	stored, err := GetUserByEmail(context.Background(), db, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if stored.DisplayName != "Ada" || stored.PasswordHash != "$argon2id$hash" || stored.VerifyToken != "tok1" {
		t.Fatalf("stored user mismatch: %+v", stored)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newUserDB(t)

	if _, err := CreateUser(context.Background(), db, "ada@example.com", "Ada", "h", "t1"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := CreateUser(context.Background(), db, "ada@example.com", "Other", "h", "t2"); err == nil {
		t.Fatalf("duplicate email accepted")
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db := newUserDB(t)
	_, err := GetUserByEmail(context.Background(), db, "nobody@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v; want ErrNotFound", err)
	}
}

func TestGetUserByID(t *testing.T) {
	db := newUserDB(t)
	u, err := CreateUser(context.Background(), db, "ada@example.com", "Ada", "h", "t")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := GetUserByID(context.Background(), db, u.ID)
	if err != nil || got.Email != "ada@example.com" {
		t.Fatalf("GetUserByID: %+v, %v", got, err)
	}
	if _, err := GetUserByID(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v; want ErrNotFound", err)
	}
}

func TestMarkUserVerified_ConsumesToken(t *testing.T) {
	db := newUserDB(t)
	u, err := CreateUser(context.Background(), db, "ada@example.com", "Ada", "h", "tok1")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := MarkUserVerified(context.Background(), db, "tok1"); err != nil {
		t.Fatalf("MarkUserVerified: %v", err)
	}
	got, err := GetUserByID(context.Background(), db, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if !got.Verified || got.VerifyToken != "" {
		t.Fatalf("token not consumed: %+v", got)
	}

	// Replay must fail once consumed.
	if err := MarkUserVerified(context.Background(), db, "tok1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("replay: got %v; want ErrNotFound", err)
	}
}

func TestMarkUserVerified_UnknownToken(t *testing.T) {
	db := newUserDB(t)
	if err := MarkUserVerified(context.Background(), db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v; want ErrNotFound", err)
	}
}
