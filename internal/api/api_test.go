package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/content-management-api/internal/apperr"
	"github.com/content-management-api/internal/config"
	"github.com/content-management-api/internal/models"
	"github.com/content-management-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// stubArticleService records calls and returns canned results
type stubArticleService struct {
	article *models.Article
	list    *models.ArticleList
	result  *models.ReconcileResult
	err     error

	lastFilters  models.ListFilters
	lastPage     int
	lastPageSize int
	lastInput    *models.ArticleInput
	lastAuthorID string
	lastIDs      []string
	lastStatus   string
}

func (s *stubArticleService) List(ctx context.Context, page, pageSize int, filters models.ListFilters) (*models.ArticleList, error) {
	s.lastPage, s.lastPageSize, s.lastFilters = page, pageSize, filters
	return s.list, s.err
}

func (s *stubArticleService) GetByID(ctx context.Context, id string) (*models.Article, error) {
	return s.article, s.err
}

func (s *stubArticleService) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	return s.article, s.err
}

func (s *stubArticleService) Create(ctx context.Context, input *models.ArticleInput, authorID string) (*models.Article, error) {
	s.lastInput, s.lastAuthorID = input, authorID
	return s.article, s.err
}

func (s *stubArticleService) Update(ctx context.Context, id string, update *models.ArticleUpdate) (*models.Article, error) {
	return s.article, s.err
}

func (s *stubArticleService) UpdateStatus(ctx context.Context, id, status string) (*models.Article, error) {
	s.lastStatus = status
	return s.article, s.err
}

func (s *stubArticleService) BulkUpdateStatus(ctx context.Context, ids []string, status string) (int, error) {
	s.lastIDs, s.lastStatus = ids, status
	return len(ids), s.err
}

func (s *stubArticleService) Delete(ctx context.Context, id string) error {
	return s.err
}

func (s *stubArticleService) UpdateTags(ctx context.Context, id string, names []string) (*models.ReconcileResult, error) {
	return s.result, s.err
}

func (s *stubArticleService) UpdateCategories(ctx context.Context, id string, categoryIDs []string) (*models.ReconcileResult, error) {
	return s.result, s.err
}

func (s *stubArticleService) ValidateSlug(ctx context.Context, candidate, excludeID string) (string, bool, error) {
	return "resolved-slug", false, s.err
}

func (s *stubArticleService) RecalculateReadingTime(ctx context.Context) (int, error) {
	return 7, s.err
}

func newTestRouter(stub *stubArticleService) *gin.Engine {
	cfg := &config.Config{
		Server: config.ServerConfig{
			RateLimitPerSecond: 1000,
			RateLimitBurst:     1000,
		},
	}
	return NewRouter(&service.Services{Article: stub}, cfg, zerolog.Nop())
}

func doRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error map[string]interface{} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return env
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&stubArticleService{})

	w := doRequest(router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", w.Code)
	}
}

func TestListArticles(t *testing.T) {
	stub := &stubArticleService{
		list: &models.ArticleList{
			Items:      []*models.Article{{ID: "a1", Title: "One"}},
			Pagination: models.NewPagination(2, 10, 25),
		},
	}
	router := newTestRouter(stub)

	w := doRequest(router, http.MethodGet, "/v1/articles?page=2&page_size=10&status=published&q=iq", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200: %s", w.Code, w.Body.String())
	}

	if stub.lastPage != 2 || stub.lastPageSize != 10 {
		t.Errorf("Paging = %d/%d, want 2/10", stub.lastPage, stub.lastPageSize)
	}
	if stub.lastFilters.Status != "published" || stub.lastFilters.Search != "iq" {
		t.Errorf("Filters = %+v", stub.lastFilters)
	}

	env := decodeEnvelope(t, w)
	if env.Error != nil {
		t.Errorf("Expected nil error, got %v", env.Error)
	}
}

func TestListArticles_DefaultsAndSort(t *testing.T) {
	stub := &stubArticleService{list: &models.ArticleList{Items: []*models.Article{}}}
	router := newTestRouter(stub)

	doRequest(router, http.MethodGet, "/v1/articles", nil)
	if stub.lastPage != 1 || stub.lastPageSize != 20 {
		t.Errorf("Default paging = %d/%d, want 1/20", stub.lastPage, stub.lastPageSize)
	}
	if stub.lastFilters.SortField != "created_at" || !stub.lastFilters.SortDesc {
		t.Errorf("Default sort = %s desc=%t, want created_at desc", stub.lastFilters.SortField, stub.lastFilters.SortDesc)
	}

	doRequest(router, http.MethodGet, "/v1/articles?sort=title&order=asc", nil)
	if stub.lastFilters.SortField != "title" || stub.lastFilters.SortDesc {
		t.Errorf("Sort = %s desc=%t, want title asc", stub.lastFilters.SortField, stub.lastFilters.SortDesc)
	}
}

func TestCreateArticle(t *testing.T) {
	stub := &stubArticleService{article: &models.Article{ID: "a1", Slug: "new-article"}}
	router := newTestRouter(stub)

	w := doRequest(router, http.MethodPost, "/v1/articles", map[string]interface{}{
		"title":     "New Article",
		"content":   "Body long enough.",
		"author_id": "u1",
		"tags":      []string{"scores"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if stub.lastAuthorID != "u1" {
		t.Errorf("AuthorID = %q, want u1", stub.lastAuthorID)
	}
	if stub.lastInput.Title != "New Article" || len(stub.lastInput.Tags) != 1 {
		t.Errorf("Input = %+v", stub.lastInput)
	}
}

func TestCreateArticle_MissingAuthor(t *testing.T) {
	router := newTestRouter(&stubArticleService{})

	w := doRequest(router, http.MethodPost, "/v1/articles", map[string]interface{}{
		"title":   "New Article",
		"content": "Body long enough.",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", w.Code)
	}
}

func TestCreateArticle_ValidationError(t *testing.T) {
	stub := &stubArticleService{
		err: &apperr.ValidationError{
			Code:    apperr.CodeTitleTooShort,
			Field:   "title",
			Message: "title must be at least 3 characters",
		},
	}
	router := newTestRouter(stub)

	w := doRequest(router, http.MethodPost, "/v1/articles", map[string]interface{}{
		"title":     "ab",
		"content":   "Body long enough.",
		"author_id": "u1",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Status = %d, want 400", w.Code)
	}

	env := decodeEnvelope(t, w)
	if env.Error["code"] != apperr.CodeTitleTooShort {
		t.Errorf("Error code = %v, want %s", env.Error["code"], apperr.CodeTitleTooShort)
	}
	if env.Error["field"] != "title" {
		t.Errorf("Error field = %v, want title", env.Error["field"])
	}
}

func TestGetArticle_NotFound(t *testing.T) {
	stub := &stubArticleService{err: fmt.Errorf("article missing: %w", apperr.ErrNotFound)}
	router := newTestRouter(stub)

	w := doRequest(router, http.MethodGet, "/v1/articles/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", w.Code)
	}
}

func TestUpdateTags_PartialFailure(t *testing.T) {
	stub := &stubArticleService{
		err: &apperr.PartialFailure{
			Completed: []string{"remove_associations"},
			Failed:    "add_associations",
			Err:       errors.New("connection reset"),
		},
	}
	router := newTestRouter(stub)

	w := doRequest(router, http.MethodPut, "/v1/articles/a1/tags", map[string]interface{}{
		"tags": []string{"a"},
	})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Status = %d, want 500", w.Code)
	}

	env := decodeEnvelope(t, w)
	if env.Error["code"] != "PARTIAL_FAILURE" {
		t.Errorf("Error code = %v, want PARTIAL_FAILURE", env.Error["code"])
	}
	if env.Error["failed"] != "add_associations" {
		t.Errorf("failed = %v, want add_associations", env.Error["failed"])
	}
	completed, _ := env.Error["completed"].([]interface{})
	if len(completed) != 1 || completed[0] != "remove_associations" {
		t.Errorf("completed = %v, want [remove_associations]", env.Error["completed"])
	}
}

func TestBulkUpdateStatus(t *testing.T) {
	stub := &stubArticleService{}
	router := newTestRouter(stub)

	w := doRequest(router, http.MethodPatch, "/v1/articles/status", map[string]interface{}{
		"ids":    []string{"a1", "a2"},
		"status": "published",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if len(stub.lastIDs) != 2 || stub.lastStatus != "published" {
		t.Errorf("Call = %v %q", stub.lastIDs, stub.lastStatus)
	}

	w = doRequest(router, http.MethodPatch, "/v1/articles/status", map[string]interface{}{
		"status": "published",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Empty ids should be rejected, got %d", w.Code)
	}
}

func TestValidateSlug(t *testing.T) {
	router := newTestRouter(&stubArticleService{})

	w := doRequest(router, http.MethodGet, "/v1/articles/validate-slug?slug=taken-title", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}

	env := decodeEnvelope(t, w)
	var data map[string]interface{}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
	if data["slug"] != "resolved-slug" || data["available"] != false {
		t.Errorf("Data = %v", data)
	}

	w = doRequest(router, http.MethodGet, "/v1/articles/validate-slug", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Missing slug param should be rejected, got %d", w.Code)
	}
}

func TestRecalculateReadingTime(t *testing.T) {
	router := newTestRouter(&stubArticleService{})

	w := doRequest(router, http.MethodPost, "/v1/articles/recalculate-reading-time", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}

	env := decodeEnvelope(t, w)
	var data map[string]interface{}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
	if data["updated"] != float64(7) {
		t.Errorf("updated = %v, want 7", data["updated"])
	}
}

func TestInvalidJSONBody(t *testing.T) {
	router := newTestRouter(&stubArticleService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/articles", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", w.Code)
	}
}
