// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Word model.
//
// The words table carries a global unique index on normalized_text: no two
// rows, regardless of owner, may share the lowercased form. Batch insertion
// is strictly ordered and all-or-nothing; the first constraint violation
// rolls back every row inserted so far. Callers (see services.WordService)
// translate the violation into a conflict report.
//
// Functions:
//
//   - FindNormalized(ctx, db, norms) -> []string, error
//     Returns the subset of norms that already exist in the store.
//
//   - InsertWordsOrdered(ctx, db, userID, texts, norms) -> []domain.Word, error
//     Inserts one row per entry, in input order, inside one transaction.
//
//   - ListWords(ctx, db, filter) -> []WordRow, error
//     Filtered, sorted, capped listing with owner labels joined in.
//
//   - WordsStats(ctx, db, userID) -> (count, maxUpdatedAt, error)
//     Aggregate metadata used for conditional responses (ETag).
//
//   - EnsureNormalizedIndex(db) -> error
//     Idempotent creation of the global unique index.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tenwords/go-words-backend/internal/domain"
)

// Word sort keys accepted by ListWords.
const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortAlpha     = "alpha"
	SortAlphaDesc = "alpha_desc"
)

// WordFilter describes an optional listing scope. The zero value matches
// every word in the store.
type WordFilter struct {
	// UserID restricts results to one owner; empty matches all users.
	UserID string
	// From/To bound CreatedAt (inclusive); nil means unbounded.
	From *time.Time
	To   *time.Time
	// Query is a lowercased substring matched against normalized_text.
	Query string
	// Sort is one of the Sort* constants; unknown values fall back to newest.
	Sort string
	// Limit caps the result size; values < 1 are rejected by the service.
	Limit int
}

// WordRow is a Word joined with its owner's display name. OwnerName is empty
// when the owning user row cannot be resolved (e.g. deleted account).
type WordRow struct {
	domain.Word
	OwnerName string `json:"owner_name" gorm:"column:owner_name"`
}

// FindNormalized returns which of the given normalized forms already exist in
// the words table, in no particular order. It returns an empty slice when
// norms is empty or nothing matches. On DB error, it returns the error.
func FindNormalized(ctx context.Context, db *gorm.DB, norms []string) ([]string, error) {
	if len(norms) == 0 {
		return []string{}, nil
	}
	var out []string
	err := db.WithContext(ctx).
		Model(&domain.Word{}).
		Where("normalized_text IN ?", norms).
		Pluck("normalized_text", &out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// InsertWordsOrdered persists one Word per entry of texts, attributed to
// userID, in input order: texts[i] pairs with norms[i]. All rows share one
// UTC timestamp so the batch sorts as a unit. The insert runs inside a single
// transaction; any failure (including a unique-index violation on
// normalized_text) rolls back every row, leaving zero partial state.
//
// The raw DB error is propagated so callers can detect duplicate-key
// violations and recover.
func InsertWordsOrdered(ctx context.Context, db *gorm.DB, userID string, texts, norms []string) ([]domain.Word, error) {
	now := time.Now().UTC()
	rows := make([]domain.Word, len(texts))
	for i, text := range texts {
		rows[i] = domain.Word{
			ID:             uuid.NewString(),
			UserID:         userID,
			Text:           text,
			NormalizedText: norms[i],
			CreatedAt:      now,
		}
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			if err := tx.Create(&rows[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListWords returns words matching the filter, each annotated with the
// owner's display name via a LEFT JOIN on users. Results are sorted per
// f.Sort and capped at f.Limit. On DB error, it returns the error.
func ListWords(ctx context.Context, db *gorm.DB, f WordFilter) ([]WordRow, error) {
	q := db.WithContext(ctx).
		Model(&domain.Word{}).
		Select("words.*, users.display_name AS owner_name").
		Joins("LEFT JOIN users ON users.id = words.user_id AND users.deleted_at IS NULL")

	if f.UserID != "" {
		q = q.Where("words.user_id = ?", f.UserID)
	}
	if f.From != nil {
		q = q.Where("words.created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("words.created_at <= ?", *f.To)
	}
	if f.Query != "" {
		q = q.Where(`words.normalized_text LIKE ? ESCAPE '\'`, "%"+escapeLike(f.Query)+"%")
	}

	switch f.Sort {
	case SortOldest:
		q = q.Order("words.created_at ASC, words.normalized_text ASC")
	case SortAlpha:
		q = q.Order("words.normalized_text ASC")
	case SortAlphaDesc:
		q = q.Order("words.normalized_text DESC")
	default: // SortNewest
		q = q.Order("words.created_at DESC, words.normalized_text ASC")
	}

	var out []WordRow
	err := q.Limit(f.Limit).Scan(&out).Error
	return out, err
}

// WordsStats returns aggregate metadata for words: the total number of rows
// and the maximum UpdatedAt timestamp among those rows. An empty userID
// covers the whole store; a non-empty one scopes to that owner.
//
// The listing handler derives its cache validator from the unscoped form,
// since the global collection in the response changes whenever any user
// writes. When no rows match, the returned count is 0 and maxUpdatedAt is
// nil.
func WordsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Word{})
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// EnsureNormalizedIndex creates the global unique index on normalized_text if
// it is missing. The statement is idempotent, so concurrent or repeated calls
// are harmless. AutoMigrate creates the same index from the model tag; this
// exists for deployments that skip migrations.
func EnsureNormalizedIndex(db *gorm.DB) error {
	return db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_words_normalized ON words(normalized_text)",
	).Error
}

// escapeLike neutralizes LIKE wildcards in user-supplied query text.
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
