// Word HTTP handlers.
//
// This file exposes REST endpoints for the word-list feature:
//   - POST /words            (submit a batch of exactly ten words)
//   - POST /words/validate   (dry-run conflict check, no persistence)
//   - GET  /words            (list own + everyone's words, filtered/sorted)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tenwords/go-words-backend/internal/repo"
	"github.com/tenwords/go-words-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// WordService defines the word-list operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type WordService interface {
	// Submit persists a clean batch of exactly ten words for userID.
	Submit(ctx context.Context, userID string, raw []string) (int, error)
	// Validate computes the conflict report without persisting.
	Validate(ctx context.Context, raw []string) (services.ConflictReport, error)
	// List returns the requester's words and everyone's words.
	List(ctx context.Context, userID string, f services.ListFilter) (mine, all []services.WordView, err error)
	// ListVersion returns a change stamp for the whole word store, used to
	// build cache validators for the listing.
	ListVersion(ctx context.Context) (count, maxUnix int64, err error)
}

//
// DTOs
//

// SubmitWordsRequest is the JSON payload for submitting or validating a batch.
type SubmitWordsRequest struct {
	// Words is the raw batch; blanks are discarded server-side and exactly
	// ten entries must remain.
	Words []string `json:"words" binding:"required" example:"Cat,Dog,Sun"`
}

// SubmitWordsResponse reports a successful submission.
type SubmitWordsResponse struct {
	Added int `json:"added" example:"10"`
}

// BatchSizeDetails is the structured payload attached to invalid_batch_size
// errors.
type BatchSizeDetails struct {
	Actual int `json:"actual" example:"9"`
	Want   int `json:"want"   example:"10"`
}

// ListWordsResponse wraps the two listing collections.
type ListWordsResponse struct {
	Mine []services.WordView `json:"mine"`
	All  []services.WordView `json:"all"`
}

//
// Handlers
//

// SubmitWords godoc
// @ID          submitWords
// @Summary     Submit a batch of ten words
// @Description Persists exactly ten globally-unique words for the current user, all-or-nothing.
// @Tags        Words
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.SubmitWordsRequest  true  "Word batch"
//
// @Success     201  {object}  handlers.SubmitWordsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Not logged in"
// @Failure     409  {object}  handlers.ErrorResponse  "Conflicting words"
// @Failure     422  {object}  handlers.ErrorResponse  "Wrong batch size"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /words [post]
func (h *Handlers) SubmitWords(c *gin.Context) {
	uid, okAuth := currentUserID(c)
	if !okAuth {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "login required")
		return
	}

	var req SubmitWordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err, "words field is required"))
		return
	}

	added, err := h.wordSvc.Submit(c.Request.Context(), uid, req.Words)
	if err != nil {
		respondWordError(c, err)
		return
	}
	wordsSubmitted.Add(float64(added))
	ok(c, http.StatusCreated, SubmitWordsResponse{Added: added})
}

// ValidateWords godoc
// @ID          validateWords
// @Summary     Validate a batch without saving
// @Description Returns the conflict report for a batch of ten words; nothing is persisted.
// @Tags        Words
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.SubmitWordsRequest  true  "Word batch"
//
// @Success     200  {object}  services.ConflictReport
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Not logged in"
// @Failure     422  {object}  handlers.ErrorResponse  "Wrong batch size"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /words/validate [post]
func (h *Handlers) ValidateWords(c *gin.Context) {
	if _, okAuth := currentUserID(c); !okAuth {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "login required")
		return
	}

	var req SubmitWordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err, "words field is required"))
		return
	}

	report, err := h.wordSvc.Validate(c.Request.Context(), req.Words)
	if err != nil {
		respondWordError(c, err)
		return
	}
	ok(c, http.StatusOK, report)
}

// ListWords godoc
// @ID          listWords
// @Summary     List words (own and everyone's)
// @Description Returns the requester's words and all users' words, filtered and sorted identically. Supports weak ETag via If-None-Match.
// @Tags        Words
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       from   query  string  false "Submitted on/after (RFC 3339 or YYYY-MM-DD)"
// @Param       to     query  string  false "Submitted on/before (RFC 3339 or YYYY-MM-DD)"
// @Param       q      query  string  false "Case-insensitive substring match"
// @Param       sort   query  string  false "newest | oldest | alpha | alpha_desc"  default(newest)
// @Param       limit  query  int     false "Per-collection cap"
//
// @Success     200  {object} handlers.ListWordsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Not logged in"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /words [get]
func (h *Handlers) ListWords(c *gin.Context) {
	uid, okAuth := currentUserID(c)
	if !okAuth {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "login required")
		return
	}
	ctx := c.Request.Context()

	f, perr := parseListFilter(c)
	if perr != "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, perr)
		return
	}

	// ETag pre-check (best effort). The stamp covers the whole store, since
	// the response carries the global collection; the filter and the
	// requester are hashed in so each query variant revalidates on its own.
	if count, maxUnix, err := h.wordSvc.ListVersion(ctx); err == nil {
		etag := listETag(uid, count, maxUnix, c.Request.URL.RawQuery)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	mine, all, err := h.wordSvc.List(ctx, uid, f)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListWordsResponse{Mine: mine, All: all})
}

//
// Helpers
//

// listETag renders the weak validator for a listing response. The raw query
// string is fingerprinted so filtered variants carry distinct tags.
func listETag(uid string, count, maxUnix int64, rawQuery string) string {
	h := fnv.New32a()
	h.Write([]byte(rawQuery))
	return fmt.Sprintf(`W/"words:%s:%d:%d:%x"`, uid, count, maxUnix, h.Sum32())
}

// respondWordError maps service errors from Submit/Validate to HTTP results.
func respondWordError(c *gin.Context, err error) {
	var sizeErr *services.BatchSizeError
	if errors.As(err, &sizeErr) {
		failWithDetails(c, http.StatusUnprocessableEntity, ErrCodeInvalidBatchSize,
			sizeErr.Error(), BatchSizeDetails{Actual: sizeErr.Actual, Want: sizeErr.Want})
		return
	}
	var confErr *services.ConflictError
	if errors.As(err, &confErr) {
		failWithDetails(c, http.StatusConflict, ErrCodeWordConflict,
			confErr.Error(), confErr.Report)
		return
	}
	fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
}

// parseListFilter reads the optional listing query parameters. The returned
// string is an error message for the client, empty on success.
func parseListFilter(c *gin.Context) (services.ListFilter, string) {
	var f services.ListFilter

	if v := strings.TrimSpace(c.Query("from")); v != "" {
		t, err := parseDate(v, false)
		if err != nil {
			return f, "from must be RFC 3339 or YYYY-MM-DD"
		}
		f.From = &t
	}
	if v := strings.TrimSpace(c.Query("to")); v != "" {
		t, err := parseDate(v, true)
		if err != nil {
			return f, "to must be RFC 3339 or YYYY-MM-DD"
		}
		f.To = &t
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return f, "from must not be after to"
	}

	f.Query = c.Query("q")

	switch sort := c.DefaultQuery("sort", repo.SortNewest); sort {
	case repo.SortNewest, repo.SortOldest, repo.SortAlpha, repo.SortAlphaDesc:
		f.Sort = sort
	default:
		return f, "sort must be one of: newest, oldest, alpha, alpha_desc"
	}

	f.Limit = atoiDefault(c.Query("limit"), 0) // 0 => service default cap
	return f, ""
}

// atoiDefault parses a query integer, falling back to def on empty or
// malformed input. Negative limits are meaningless here and also fall back.
func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// parseDate accepts RFC 3339 timestamps or bare dates. A bare date used as an
// upper bound is widened to the end of that day so the range is inclusive.
func parseDate(v string, upperBound bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, err
	}
	if upperBound {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t.UTC(), nil
}
