// Package services – WordService
//
// This file implements WordService, the application-level component that owns
// word batch submission and querying. A submission is a batch of exactly ten
// words; after trimming, the batch is checked for duplicates within itself and
// against the whole store (lowercased comparison, all users), then persisted
// in one ordered, all-or-nothing insert attributed to the submitting user.
//
// The global uniqueness of the lowercased form is ultimately enforced by the
// unique index on words.normalized_text. The pre-insert conflict check is an
// optimistic courtesy: if another writer slips a conflicting word in between
// the check and the insert, the index violation rolls the batch back and the
// service re-queries once to report the now-current conflicts.
//
// Observability: Submit and List are OpenTelemetry-instrumented; spans carry
// the user identifier and batch/result sizes.
package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/rs/zerolog/log"

	"github.com/tenwords/go-words-backend/internal/domain"
	"github.com/tenwords/go-words-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// WordsPerBatch is the exact number of non-empty words a submission must
// contain after trimming.
const WordsPerBatch = 10

// OwnerUnknown is the display label used when a word's owner cannot be
// resolved (e.g. a deleted account).
const OwnerUnknown = "unknown"

// lowercaser folds word text for uniqueness comparison and search.
// language.Und keeps the folding locale-independent (no Turkish dotless i
// surprises between users with different locales).
var lowercaser = cases.Lower(language.Und)

// ConflictReport describes which normalized words collide, split by source.
// Both sets are deduplicated and sorted. An all-empty report means the batch
// is clean.
type ConflictReport struct {
	// Existing are normalized forms already present in the store (any owner).
	Existing []string `json:"existing"`
	// InBatch are normalized forms occurring more than once within the batch.
	InBatch []string `json:"in_batch"`
}

// Empty reports whether the batch has no conflicts at all.
func (r ConflictReport) Empty() bool {
	return len(r.Existing) == 0 && len(r.InBatch) == 0
}

// ListFilter carries the optional query-side parameters of List.
type ListFilter struct {
	From  *time.Time // inclusive lower bound on submission time
	To    *time.Time // inclusive upper bound on submission time
	Query string     // case-insensitive substring match
	Sort  string     // one of repo.Sort*; empty and unknown mean newest
	Limit int        // per-collection cap; <=0 or above the service max is clamped
}

// WordView is a listing entry: a word annotated with its owner's label.
type WordView struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Learned   bool      `json:"learned"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	OwnerID   string    `json:"owner_id"`
	OwnerName string    `json:"owner_name"`
}

// WordRepo defines the repository contract required by WordService.
type WordRepo interface {
	// FindNormalized returns which of the normalized forms already exist.
	FindNormalized(ctx context.Context, db *gorm.DB, norms []string) ([]string, error)

	// InsertWordsOrdered persists the batch in order, all-or-nothing.
	InsertWordsOrdered(ctx context.Context, db *gorm.DB, userID string, texts, norms []string) ([]domain.Word, error)

	// ListWords returns filtered, sorted, capped rows with owner labels.
	ListWords(ctx context.Context, db *gorm.DB, f repo.WordFilter) ([]repo.WordRow, error)

	// WordsStats returns row count and max update time; empty userID means
	// the whole store.
	WordsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error)

	// EnsureNormalizedIndex idempotently creates the unique index.
	EnsureNormalizedIndex(db *gorm.DB) error
}

// WordService coordinates word batch validation, submission, and listing.
type WordService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the word repository used by this service.
	Repo WordRepo

	// MaxListResults caps each listing collection independently.
	MaxListResults int

	// indexOnce guards the lazy unique-index bootstrap so concurrent first
	// requests don't race; the statement itself is idempotent either way.
	indexOnce sync.Once
}

// NewWordService constructs a WordService with the default listing cap.
func NewWordService(db *gorm.DB, r WordRepo) *WordService {
	return &WordService{
		DB:             db,
		Repo:           r,
		MaxListResults: 500,
	}
}

// CleanBatch trims every entry, discards the ones that become empty, and
// returns the surviving words in input order alongside their lowercased
// forms (cleaned[i] pairs with normalized[i]). Pure function, no I/O.
func CleanBatch(raw []string) (cleaned, normalized []string) {
	cleaned = make([]string, 0, len(raw))
	normalized = make([]string, 0, len(raw))
	for _, v := range raw {
		w := strings.TrimSpace(v)
		if w == "" {
			continue
		}
		cleaned = append(cleaned, w)
		normalized = append(normalized, lowercaser.String(w))
	}
	return cleaned, normalized
}

// Validate cleans the batch, enforces the exact-count rule, and computes the
// conflict report without persisting anything.
//
// Errors:
//   - *BatchSizeError when the cleaned batch is not exactly WordsPerBatch
//     entries; conflicts are not computed in that case.
//   - The underlying DB error when the store read fails.
func (s *WordService) Validate(ctx context.Context, raw []string) (ConflictReport, error) {
	cleaned, norms := CleanBatch(raw)
	if len(cleaned) != WordsPerBatch {
		return ConflictReport{}, &BatchSizeError{Actual: len(cleaned), Want: WordsPerBatch}
	}
	return s.detectConflicts(ctx, norms)
}

// Submit runs the full pipeline for one submission: clean, count-check,
// conflict-check, then persist the batch attributed to userID. It returns the
// number of words added (always WordsPerBatch on success).
//
// Errors:
//   - *BatchSizeError when the cleaned count is wrong; the store is never
//     written in that case.
//   - *ConflictError when any normalized word collides, whether detected by
//     the pre-check or by the unique index during insert (the race case is
//     answered with a single re-query, never retried).
//   - The underlying DB error for infrastructure failures.
func (s *WordService) Submit(ctx context.Context, userID string, raw []string) (int, error) {
	tr := otel.Tracer("services/WordService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	s.ensureIndex()

	cleaned, norms := CleanBatch(raw)
	if len(cleaned) != WordsPerBatch {
		return 0, &BatchSizeError{Actual: len(cleaned), Want: WordsPerBatch}
	}

	report, err := s.detectConflicts(ctx, norms)
	if err != nil {
		return 0, err
	}
	if !report.Empty() {
		return 0, &ConflictError{Report: report}
	}

	if _, err := s.Repo.InsertWordsOrdered(ctx, s.DB, userID, cleaned, norms); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
			// Lost the race against another writer: the transaction rolled
			// back, so re-read the store once and answer with the current
			// conflict set instead of a bare infrastructure error.
			return 0, s.raceConflict(ctx, norms, err)
		}
		return 0, err
	}

	span.SetAttributes(attribute.Int("words.added", len(cleaned)))
	return len(cleaned), nil
}

// List returns two collections filtered and sorted identically: the words
// owned by userID and the words of all users, each capped independently and
// annotated with the owner's display label. The two reads are independent
// and issued concurrently.
func (s *WordService) List(ctx context.Context, userID string, f ListFilter) (mine, all []WordView, err error) {
	tr := otel.Tracer("services/WordService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	limit := f.Limit
	if limit <= 0 || limit > s.MaxListResults {
		limit = s.MaxListResults
	}
	base := repo.WordFilter{
		From:  f.From,
		To:    f.To,
		Query: lowercaser.String(strings.TrimSpace(f.Query)),
		Sort:  f.Sort,
		Limit: limit,
	}

	mineFilter := base
	mineFilter.UserID = userID

	var (
		wg      sync.WaitGroup
		mineErr error
		allErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		rows, e := s.Repo.ListWords(ctx, s.DB, mineFilter)
		mine, mineErr = viewsFromRows(rows), e
	}()
	go func() {
		defer wg.Done()
		rows, e := s.Repo.ListWords(ctx, s.DB, base)
		all, allErr = viewsFromRows(rows), e
	}()
	wg.Wait()

	if mineErr != nil {
		return nil, nil, mineErr
	}
	if allErr != nil {
		return nil, nil, allErr
	}
	span.SetAttributes(
		attribute.Int("words.mine", len(mine)),
		attribute.Int("words.all", len(all)),
	)
	return mine, all, nil
}

// ListVersion returns a cheap change stamp for the whole word store: the
// total row count and the latest update time in Unix seconds (0 when the
// store is empty). Any write by any user moves the stamp, so it is a safe
// cache validator for the combined own-plus-global listing.
func (s *WordService) ListVersion(ctx context.Context) (count, maxUnix int64, err error) {
	count, ts, err := s.Repo.WordsStats(ctx, s.DB, "")
	if err != nil {
		return 0, 0, err
	}
	if ts != nil {
		maxUnix = ts.Unix()
	}
	return count, maxUnix, nil
}

// detectConflicts computes the conflict report for the normalized batch:
// forms repeated within the batch, then forms already present in the store.
// Store reads only, no writes.
func (s *WordService) detectConflicts(ctx context.Context, norms []string) (ConflictReport, error) {
	counts := make(map[string]int, len(norms))
	for _, n := range norms {
		counts[n]++
	}
	inBatch := make([]string, 0)
	for n, c := range counts {
		if c > 1 {
			inBatch = append(inBatch, n)
		}
	}

	existing, err := s.Repo.FindNormalized(ctx, s.DB, norms)
	if err != nil {
		return ConflictReport{}, err
	}

	return ConflictReport{
		Existing: sortedSet(existing),
		InBatch:  sortedSet(inBatch),
	}, nil
}

// raceConflict answers a duplicate-key failure with a fresh conflict report.
// If even the re-query fails, the original insert error is surfaced so the
// caller still sees the root cause.
func (s *WordService) raceConflict(ctx context.Context, norms []string, insertErr error) error {
	existing, err := s.Repo.FindNormalized(ctx, s.DB, norms)
	if err != nil {
		log.Warn().Err(err).Msg("conflict re-query failed after duplicate key")
		return insertErr
	}
	return &ConflictError{Report: ConflictReport{
		Existing: sortedSet(existing),
		InBatch:  []string{},
	}}
}

// ensureIndex lazily creates the unique index once per process. Failure is
// logged and ignored: AutoMigrate already created the index in normal
// deployments, and the insert path treats the constraint as authoritative.
func (s *WordService) ensureIndex() {
	s.indexOnce.Do(func() {
		if s.DB == nil {
			return
		}
		if err := s.Repo.EnsureNormalizedIndex(s.DB); err != nil {
			log.Warn().Err(err).Msg("could not ensure unique word index")
		}
	})
}

// sortedSet deduplicates and sorts a slice of normalized forms. Always
// returns a non-nil slice so JSON renders [] instead of null.
func sortedSet(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// viewsFromRows maps repository rows to listing entries, applying the
// owner-label fallback.
func viewsFromRows(rows []repo.WordRow) []WordView {
	out := make([]WordView, len(rows))
	for i, r := range rows {
		name := r.OwnerName
		if name == "" {
			name = OwnerUnknown
		}
		out[i] = WordView{
			ID:        r.ID,
			Text:      r.Text,
			Learned:   r.Learned,
			Notes:     r.Notes,
			CreatedAt: r.CreatedAt,
			OwnerID:   r.UserID,
			OwnerName: name,
		}
	}
	return out
}
