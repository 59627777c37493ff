// Package domain defines the persistence models for users and words.
// These types are mapped with GORM and form the core data layer of the
// ten-words application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered account. Accounts are created with an email
// and password and must confirm the email address before they can log in.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: login identifier, stored lowercased; globally unique.
//   - DisplayName: human-readable label shown next to the user's words.
//   - PasswordHash: argon2id hash in PHC string format (never serialized).
//   - Verified: true once the email address has been confirmed.
//   - VerifyToken: opaque one-time token mailed to the user; cleared on
//     confirmation. Indexed for the verification lookup.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type User struct {
	ID           string         `json:"id"           gorm:"type:char(36);primaryKey"`
	Email        string         `json:"email"        gorm:"type:varchar(320);not null;uniqueIndex:ux_users_email"`
	DisplayName  string         `json:"display_name" gorm:"type:varchar(120);not null"`
	PasswordHash string         `json:"-"            gorm:"type:varchar(255);not null"`
	Verified     bool           `json:"verified"     gorm:"not null;default:false"`
	VerifyToken  string         `json:"-"            gorm:"type:varchar(64);index:idx_users_verify_token"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Word represents a single entry in a user's word list. The lowercased form
// is globally unique: no two rows, regardless of owner, may share it. That
// invariant is enforced by the unique index on NormalizedText and is the
// authoritative backstop for concurrent submissions.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: identifier of the owner; indexed for owner-scoped listing.
//   - Text: the word as the user typed it (trimmed, original casing).
//   - NormalizedText: lowercased form used for uniqueness and search.
//   - Learned: optional flag the user may set later; defaults to false.
//   - Notes: optional free-text annotation.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
//   - User: FK association used to resolve owner display names.
type Word struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	UserID         string         `json:"user_id"         gorm:"type:char(36);not null;index:idx_user_words"`
	Text           string         `json:"text"            gorm:"type:varchar(255);not null"`
	NormalizedText string         `json:"normalized_text" gorm:"type:varchar(255);not null;uniqueIndex:ux_words_normalized"`
	Learned        bool           `json:"learned"         gorm:"not null;default:false"`
	Notes          string         `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt      time.Time      `json:"created_at"      gorm:"index:idx_words_created"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`

	// User is the owning account. Words are cascade-deleted if the
	// account is removed.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Word.
func (Word) TableName() string { return "words" }
