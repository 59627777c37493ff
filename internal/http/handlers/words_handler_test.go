package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tenwords/go-words-backend/internal/services"
)

// ----- Stub services -----

type stubWordService struct {
	submitAdded int
	submitErr   error
	submitRaw   []string
	submitUID   string

	report      services.ConflictReport
	validateErr error

	mine, all []services.WordView
	listErr   error
	listUID   string
	listF     services.ListFilter

	versionCount int64
	versionMax   int64
	versionErr   error
}

func (s *stubWordService) Submit(ctx context.Context, userID string, raw []string) (int, error) {
	s.submitUID = userID
	s.submitRaw = raw
	return s.submitAdded, s.submitErr
}

func (s *stubWordService) Validate(ctx context.Context, raw []string) (services.ConflictReport, error) {
	return s.report, s.validateErr
}

func (s *stubWordService) List(ctx context.Context, userID string, f services.ListFilter) ([]services.WordView, []services.WordView, error) {
	s.listUID = userID
	s.listF = f
	return s.mine, s.all, s.listErr
}

func (s *stubWordService) ListVersion(ctx context.Context) (int64, int64, error) {
	return s.versionCount, s.versionMax, s.versionErr
}

func newWordsRouter(ws WordService, loggedInAs string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if loggedInAs != "" {
		r.Use(func(c *gin.Context) { c.Set("userID", loggedInAs) })
	}
	h := New(nil, ws, SessionCookie{Name: "tw_session", TTL: time.Hour})
	r.POST("/words", h.SubmitWords)
	r.POST("/words/validate", h.ValidateWords)
	r.GET("/words", h.ListWords)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ----- SubmitWords -----

func TestSubmitWords_Success(t *testing.T) {
	ws := &stubWordService{submitAdded: 10}
	r := newWordsRouter(ws, "u1")

	w := doJSON(t, r, http.MethodPost, "/words",
		`{"words":["a","b","c","d","e","f","g","h","i","j"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp SubmitWordsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Added != 10 {
		t.Fatalf("body = %s (%v)", w.Body.String(), err)
	}
	if ws.submitUID != "u1" || len(ws.submitRaw) != 10 {
		t.Fatalf("service saw uid=%q raw=%v", ws.submitUID, ws.submitRaw)
	}
}

func TestSubmitWords_RequiresLogin(t *testing.T) {
	r := newWordsRouter(&stubWordService{}, "")
	w := doJSON(t, r, http.MethodPost, "/words", `{"words":["a"]}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Code != ErrCodeUnauthorized {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestSubmitWords_BadJSON(t *testing.T) {
	r := newWordsRouter(&stubWordService{}, "u1")
	w := doJSON(t, r, http.MethodPost, "/words", `{"words": not-json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Message != "malformed JSON body" {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestSubmitWords_BindMessages(t *testing.T) {
	r := newWordsRouter(&stubWordService{}, "u1")

	cases := []struct {
		name, body, want string
	}{
		{"truncated", `{"words": ["a"`, "malformed JSON body"},
		{"empty body", ``, "malformed JSON body"},
		{"wrong type", `{"words": "cat"}`, "malformed JSON body"},
		{"missing field", `{"wordz": ["a"]}`, "words field is required"},
	}
	for _, tc := range cases {
		w := doJSON(t, r, http.MethodPost, "/words", tc.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", tc.name, w.Code)
			continue
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Message != tc.want {
			t.Errorf("%s: body = %s", tc.name, w.Body.String())
		}
	}
}

func TestSubmitWords_BatchSizeError(t *testing.T) {
	ws := &stubWordService{submitErr: &services.BatchSizeError{Actual: 9, Want: 10}}
	r := newWordsRouter(ws, "u1")

	w := doJSON(t, r, http.MethodPost, "/words", `{"words":["a"]}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Code    string           `json:"code"`
		Details BatchSizeDetails `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Code != ErrCodeInvalidBatchSize || resp.Details.Actual != 9 || resp.Details.Want != 10 {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestSubmitWords_Conflict(t *testing.T) {
	ws := &stubWordService{submitErr: &services.ConflictError{
		Report: services.ConflictReport{Existing: []string{"sun"}, InBatch: []string{"cat"}},
	}}
	r := newWordsRouter(ws, "u1")

	w := doJSON(t, r, http.MethodPost, "/words", `{"words":["a"]}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Code    string                  `json:"code"`
		Details services.ConflictReport `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Code != ErrCodeWordConflict {
		t.Fatalf("code = %q", resp.Code)
	}
	if len(resp.Details.Existing) != 1 || resp.Details.Existing[0] != "sun" ||
		len(resp.Details.InBatch) != 1 || resp.Details.InBatch[0] != "cat" {
		t.Fatalf("details = %+v", resp.Details)
	}
}

func TestSubmitWords_InternalError(t *testing.T) {
	ws := &stubWordService{submitErr: errors.New("db down")}
	r := newWordsRouter(ws, "u1")
	w := doJSON(t, r, http.MethodPost, "/words", `{"words":["a"]}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}

// ----- ValidateWords -----

func TestValidateWords_CleanReportRendersEmptyArrays(t *testing.T) {
	ws := &stubWordService{report: services.ConflictReport{Existing: []string{}, InBatch: []string{}}}
	r := newWordsRouter(ws, "u1")

	w := doJSON(t, r, http.MethodPost, "/words/validate", `{"words":["a"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"existing":[]`) || !strings.Contains(body, `"in_batch":[]`) {
		t.Fatalf("sets must render as []: %s", body)
	}
}

func TestValidateWords_BatchSizeError(t *testing.T) {
	ws := &stubWordService{validateErr: &services.BatchSizeError{Actual: 11, Want: 10}}
	r := newWordsRouter(ws, "u1")
	w := doJSON(t, r, http.MethodPost, "/words/validate", `{"words":["a"]}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
}

// ----- ListWords -----

func TestListWords_Success(t *testing.T) {
	ws := &stubWordService{
		mine: []services.WordView{{ID: "w1", Text: "Cat", OwnerID: "u1", OwnerName: "Ada"}},
		all: []services.WordView{
			{ID: "w1", Text: "Cat", OwnerID: "u1", OwnerName: "Ada"},
			{ID: "w2", Text: "Dog", OwnerID: "gone", OwnerName: "unknown"},
		},
	}
	r := newWordsRouter(ws, "u1")

	w := doJSON(t, r, http.MethodGet, "/words", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp ListWordsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Mine) != 1 || len(resp.All) != 2 {
		t.Fatalf("body = %s", w.Body.String())
	}
	if ws.listUID != "u1" {
		t.Fatalf("service saw uid %q", ws.listUID)
	}
}

func TestListWords_ForwardsFilter(t *testing.T) {
	ws := &stubWordService{}
	r := newWordsRouter(ws, "u1")

	w := doJSON(t, r, http.MethodGet,
		"/words?from=2026-03-01&to=2026-03-05&q=ca&sort=alpha&limit=20", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	f := ws.listF
	if f.From == nil || f.From.Day() != 1 {
		t.Fatalf("from not parsed: %+v", f.From)
	}
	// Bare "to" date widens to end of day so the bound is inclusive.
	if f.To == nil || f.To.Hour() != 23 {
		t.Fatalf("to not widened: %+v", f.To)
	}
	if f.Query != "ca" || f.Sort != "alpha" || f.Limit != 20 {
		t.Fatalf("filter = %+v", f)
	}
}

func TestListWords_BadParams(t *testing.T) {
	r := newWordsRouter(&stubWordService{}, "u1")

	cases := []string{
		"/words?from=yesterday",
		"/words?to=03/01/2026",
		"/words?from=2026-03-05&to=2026-03-01",
		"/words?sort=fancy",
	}
	for _, path := range cases {
		if w := doJSON(t, r, http.MethodGet, path, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", path, w.Code)
		}
	}
}

func TestListWords_ETagTracksWholeStore(t *testing.T) {
	ws := &stubWordService{versionCount: 10, versionMax: 1_700_000_000}
	r := newWordsRouter(ws, "u1")

	first := doJSON(t, r, http.MethodGet, "/words", "")
	etag := first.Header().Get("ETag")
	if etag == "" || !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("missing weak ETag, got %q", etag)
	}

	// Unchanged store revalidates.
	req := httptest.NewRequest(http.MethodGet, "/words", nil)
	req.Header.Set("If-None-Match", etag)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", w.Code)
	}

	// Another user grows the collection; the old tag must stop matching
	// even though this requester wrote nothing.
	ws.versionCount = 20
	ws.versionMax = 1_700_000_060
	req = httptest.NewRequest(http.MethodGet, "/words", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want fresh 200 after store grew", w.Code)
	}
	if fresh := w.Header().Get("ETag"); fresh == etag {
		t.Fatalf("ETag did not change with the store: %q", fresh)
	}
}

func TestListWords_ETagVariesWithFilter(t *testing.T) {
	ws := &stubWordService{versionCount: 10, versionMax: 1_700_000_000}
	r := newWordsRouter(ws, "u1")

	plain := doJSON(t, r, http.MethodGet, "/words", "").Header().Get("ETag")
	filtered := doJSON(t, r, http.MethodGet, "/words?q=ca&sort=alpha", "").Header().Get("ETag")
	if plain == "" || filtered == "" || plain == filtered {
		t.Fatalf("filter variants must carry distinct tags: %q vs %q", plain, filtered)
	}
}

func TestListWords_VersionErrorStillServes(t *testing.T) {
	ws := &stubWordService{versionErr: errors.New("stats down")}
	r := newWordsRouter(ws, "u1")

	w := doJSON(t, r, http.MethodGet, "/words", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, listing must survive a stamp failure", w.Code)
	}
	if etag := w.Header().Get("ETag"); etag != "" {
		t.Fatalf("unexpected ETag %q when the stamp is unavailable", etag)
	}
}

func TestListWords_RequiresLogin(t *testing.T) {
	r := newWordsRouter(&stubWordService{}, "")
	if w := doJSON(t, r, http.MethodGet, "/words", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"42", 0, 42},
		{"0", 7, 0},
		{"", 10, 10},
		{"x", 5, 5},
		{"-3", 5, 5}, // negative caps are meaningless
	}
	for _, tc := range cases {
		if got := atoiDefault(tc.in, tc.def); got != tc.want {
			t.Errorf("atoiDefault(%q, %d) = %d; want %d", tc.in, tc.def, got, tc.want)
		}
	}
}

func TestListWords_ServiceError(t *testing.T) {
	ws := &stubWordService{listErr: errors.New("read failed")}
	r := newWordsRouter(ws, "u1")
	w := doJSON(t, r, http.MethodGet, "/words", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Code != ErrCodeListFailed {
		t.Fatalf("body = %s", w.Body.String())
	}
}
