package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/content-management-api/internal/apperr"
	"github.com/content-management-api/internal/models"
	"github.com/content-management-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ArticleHandler handles article endpoints
type ArticleHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(services *service.Services, log zerolog.Logger) *ArticleHandler {
	return &ArticleHandler{
		services: services,
		log:      log.With().Str("handler", "article").Logger(),
	}
}

// List handles GET /v1/articles
func (h *ArticleHandler) List(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	filters := models.ListFilters{
		Search:   c.Query("q"),
		Status:   c.Query("status"),
		AuthorID: c.Query("author_id"),
		SortField: func() string {
			if s := c.Query("sort"); s != "" {
				return s
			}
			return "created_at"
		}(),
		SortDesc: c.DefaultQuery("order", "desc") != "asc",
	}
	if after := c.Query("created_after"); after != "" {
		if t, err := time.Parse(time.RFC3339, after); err == nil {
			filters.CreatedAfter = &t
		}
	}
	if before := c.Query("created_before"); before != "" {
		if t, err := time.Parse(time.RFC3339, before); err == nil {
			filters.CreatedBefore = &t
		}
	}

	list, err := h.services.Article.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

// GetByID handles GET /v1/articles/:id
func (h *ArticleHandler) GetByID(c *gin.Context) {
	article, err := h.services.Article.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, article)
}

// GetBySlug handles GET /v1/articles/slug/:slug
func (h *ArticleHandler) GetBySlug(c *gin.Context) {
	article, err := h.services.Article.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, article)
}

type createArticleRequest struct {
	models.ArticleInput
	AuthorID string `json:"author_id"`
}

// Create handles POST /v1/articles
func (h *ArticleHandler) Create(c *gin.Context) {
	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid JSON body")
		return
	}
	if req.AuthorID == "" {
		respondBadRequest(c, "author_id is required")
		return
	}

	article, err := h.services.Article.Create(c.Request.Context(), &req.ArticleInput, req.AuthorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, article)
}

// Update handles PUT /v1/articles/:id
func (h *ArticleHandler) Update(c *gin.Context) {
	var update models.ArticleUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondBadRequest(c, "invalid JSON body")
		return
	}

	article, err := h.services.Article.Update(c.Request.Context(), c.Param("id"), &update)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, article)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /v1/articles/:id/status
func (h *ArticleHandler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid JSON body")
		return
	}

	article, err := h.services.Article.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, article)
}

type bulkStatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

// BulkUpdateStatus handles PATCH /v1/articles/status
func (h *ArticleHandler) BulkUpdateStatus(c *gin.Context) {
	var req bulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		respondBadRequest(c, "ids is required")
		return
	}

	updated, err := h.services.Article.BulkUpdateStatus(c.Request.Context(), req.IDs, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"updated": updated})
}

// Delete handles DELETE /v1/articles/:id
func (h *ArticleHandler) Delete(c *gin.Context) {
	if err := h.services.Article.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": true})
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

// UpdateTags handles PUT /v1/articles/:id/tags
func (h *ArticleHandler) UpdateTags(c *gin.Context) {
	var req tagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid JSON body")
		return
	}

	result, err := h.services.Article.UpdateTags(c.Request.Context(), c.Param("id"), req.Tags)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

type categoriesRequest struct {
	Categories []string `json:"categories"`
}

// UpdateCategories handles PUT /v1/articles/:id/categories
func (h *ArticleHandler) UpdateCategories(c *gin.Context) {
	var req categoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid JSON body")
		return
	}

	result, err := h.services.Article.UpdateCategories(c.Request.Context(), c.Param("id"), req.Categories)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// ValidateSlug handles GET /v1/articles/validate-slug?slug=...&exclude_id=...
func (h *ArticleHandler) ValidateSlug(c *gin.Context) {
	candidate := c.Query("slug")
	if candidate == "" {
		respondBadRequest(c, "slug parameter is required")
		return
	}

	resolved, available, err := h.services.Article.ValidateSlug(c.Request.Context(), candidate, c.Query("exclude_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"slug": resolved, "available": available})
}

// RecalculateReadingTime handles POST /v1/articles/recalculate-reading-time
func (h *ArticleHandler) RecalculateReadingTime(c *gin.Context) {
	updated, err := h.services.Article.RecalculateReadingTime(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"updated": updated})
}

// respond writes the uniform success envelope
func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"data": data, "error": nil})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"data":  nil,
		"error": gin.H{"message": message},
	})
}

// respondError maps the error taxonomy onto the uniform envelope. Nothing is
// rethrown across this boundary.
func (h *ArticleHandler) respondError(c *gin.Context, err error) {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{
			"data": nil,
			"error": gin.H{
				"code":    ve.Code,
				"field":   ve.Field,
				"message": ve.Message,
			},
		})
		return
	}

	if errors.Is(err, apperr.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"data":  nil,
			"error": gin.H{"message": err.Error()},
		})
		return
	}

	var pf *apperr.PartialFailure
	if errors.As(err, &pf) {
		h.log.Error().Err(pf.Err).
			Strs("completed", pf.Completed).
			Str("failed", pf.Failed).
			Msg("Partial failure")
		c.JSON(http.StatusInternalServerError, gin.H{
			"data": nil,
			"error": gin.H{
				"code":      "PARTIAL_FAILURE",
				"message":   pf.Error(),
				"completed": pf.Completed,
				"failed":    pf.Failed,
			},
		})
		return
	}

	h.log.Error().Err(err).Msg("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"data":  nil,
		"error": gin.H{"message": "Internal server error"},
	})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
