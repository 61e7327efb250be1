package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/content-management-api/internal/apperr"
	"github.com/content-management-api/internal/cache"
	"github.com/content-management-api/internal/config"
	"github.com/content-management-api/internal/content"
	"github.com/content-management-api/internal/models"
	"github.com/content-management-api/internal/repository"
	"github.com/content-management-api/internal/slug"
	"github.com/content-management-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// articleService is the concrete implementation of ArticleService
type articleService struct {
	repos           *repository.Repositories
	processor       *content.Processor
	slugs           *slug.Generator
	rec             *reconciler
	bus             *cache.Bus
	lists           *cache.ListCache
	recalcBatchSize int
	log             zerolog.Logger
}

func newArticleService(repos *repository.Repositories, cfg *config.Config, bus *cache.Bus, lists *cache.ListCache, log zerolog.Logger) *articleService {
	batchSize := cfg.Content.RecalcBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &articleService{
		repos:           repos,
		processor:       content.NewProcessor(cfg.Content.BaseDomain, cfg.Content.WordsPerMinute),
		slugs:           slug.NewGenerator(repos.Article, cfg.Content.SlugMaxAttempts),
		rec:             newReconciler(repos.Article, repos.Tag, cfg.Content.SlugMaxAttempts, log),
		bus:             bus,
		lists:           lists,
		recalcBatchSize: batchSize,
		log:             log.With().Str("service", "article").Logger(),
	}
}

// List returns one page of articles with categories, tags and authors
// attached. One page query plus at most three batched join reads; a cached
// page skips the store entirely.
func (s *articleService) List(ctx context.Context, page, pageSize int, filters models.ListFilters) (*models.ArticleList, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	key := cache.Key(page, pageSize, filters)
	if s.lists != nil {
		if cached, ok := s.lists.Get(key); ok {
			return cached, nil
		}
	}

	articles, total, err := s.repos.Article.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, &apperr.PersistenceError{Op: "list articles", Err: err}
	}

	list := &models.ArticleList{
		Items:      articles,
		Pagination: models.NewPagination(page, pageSize, total),
	}

	if len(articles) == 0 {
		list.Items = []*models.Article{}
		return list, nil
	}

	if err := s.attachReferences(ctx, articles); err != nil {
		return nil, err
	}

	if s.lists != nil {
		s.lists.Set(key, list)
	}
	return list, nil
}

// GetByID returns a single article with its references attached
func (s *articleService) GetByID(ctx context.Context, id string) (*models.Article, error) {
	article, err := s.repos.Article.GetByID(ctx, id)
	if err != nil {
		return nil, &apperr.PersistenceError{Op: "get article", Err: err}
	}
	if article == nil {
		return nil, fmt.Errorf("article %s: %w", id, apperr.ErrNotFound)
	}
	if err := s.attachReferences(ctx, []*models.Article{article}); err != nil {
		return nil, err
	}
	return article, nil
}

// GetBySlug returns a single article addressed by slug
func (s *articleService) GetBySlug(ctx context.Context, slugValue string) (*models.Article, error) {
	article, err := s.repos.Article.GetBySlug(ctx, slugValue)
	if err != nil {
		return nil, &apperr.PersistenceError{Op: "get article by slug", Err: err}
	}
	if article == nil {
		return nil, fmt.Errorf("slug %q: %w", slugValue, apperr.ErrNotFound)
	}
	if err := s.attachReferences(ctx, []*models.Article{article}); err != nil {
		return nil, err
	}
	return article, nil
}

// Create validates, derives content metrics, resolves a unique slug and
// persists the article, then reconciles any requested associations.
func (s *articleService) Create(ctx context.Context, input *models.ArticleInput, authorID string) (*models.Article, error) {
	if err := validation.ValidateArticleInput(input); err != nil {
		return nil, err
	}

	metrics := s.processor.Process(input.Content)

	slugSource := input.Title
	if input.Slug != "" {
		slugSource = input.Slug
	}
	uniqueSlug, err := s.slugs.Unique(ctx, slugSource, "")
	if err != nil {
		return nil, &apperr.PersistenceError{Op: "generate slug", Err: err}
	}

	now := time.Now()
	status := input.Status
	if status == "" {
		status = models.StatusDraft
	}

	article := &models.Article{
		ID:            uuid.New().String(),
		Slug:          uniqueSlug,
		Title:         input.Title,
		Content:       input.Content,
		Excerpt:       input.Excerpt,
		AuthorID:      authorID,
		Status:        status,
		WordCount:     metrics.WordCount,
		ReadingTime:   metrics.ReadingTime,
		InternalLinks: metrics.InternalLinks,
		ExternalLinks: metrics.ExternalLinks,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if status == models.StatusPublished {
		article.PublishedAt = &now
	}

	if err := s.repos.Article.Create(ctx, article); err != nil {
		return nil, &apperr.PersistenceError{Op: "create article", Err: err}
	}

	// The row is committed; association failures from here are partial
	if len(input.Categories) > 0 {
		if _, err := s.reconcileCategories(ctx, article.ID, input.Categories); err != nil {
			return article, s.asPartial("article_row", "reconcile_categories", err)
		}
	}
	if len(input.Tags) > 0 {
		if _, err := s.reconcileTags(ctx, article.ID, input.Tags); err != nil {
			return article, s.asPartial("article_row", "reconcile_tags", err)
		}
	}

	s.invalidate("article created")
	s.log.Info().Str("article_id", article.ID).Str("slug", article.Slug).Msg("Article created")
	return article, nil
}

// Update applies a partial update. Absent fields are left untouched: content
// reprocesses metrics, a new slug re-runs the uniqueness probe excluding this
// article, and categories/tags delegate to the reconciler after the scalar
// row update has committed.
func (s *articleService) Update(ctx context.Context, id string, update *models.ArticleUpdate) (*models.Article, error) {
	if err := validation.ValidateArticleUpdate(update); err != nil {
		return nil, err
	}

	article, err := s.repos.Article.GetByID(ctx, id)
	if err != nil {
		return nil, &apperr.PersistenceError{Op: "get article", Err: err}
	}
	if article == nil {
		return nil, fmt.Errorf("article %s: %w", id, apperr.ErrNotFound)
	}

	if update.Title != nil {
		article.Title = *update.Title
	}
	if update.Excerpt != nil {
		article.Excerpt = *update.Excerpt
	}
	if update.Content != nil {
		article.Content = *update.Content
		metrics := s.processor.Process(article.Content)
		article.WordCount = metrics.WordCount
		article.ReadingTime = metrics.ReadingTime
		article.InternalLinks = metrics.InternalLinks
		article.ExternalLinks = metrics.ExternalLinks
	}
	if update.Slug != nil {
		uniqueSlug, err := s.slugs.Unique(ctx, *update.Slug, id)
		if err != nil {
			return nil, &apperr.PersistenceError{Op: "generate slug", Err: err}
		}
		article.Slug = uniqueSlug
	}

	if err := s.repos.Article.Update(ctx, article); err != nil {
		return nil, &apperr.PersistenceError{Op: "update article", Err: err}
	}

	if update.Categories != nil {
		if _, err := s.reconcileCategories(ctx, id, *update.Categories); err != nil {
			return article, s.asPartial("article_row", "reconcile_categories", err)
		}
	}
	if update.Tags != nil {
		if _, err := s.reconcileTags(ctx, id, *update.Tags); err != nil {
			return article, s.asPartial("article_row", "reconcile_tags", err)
		}
	}

	s.invalidate("article updated")
	return s.GetByID(ctx, id)
}

// UpdateStatus moves an article between draft, published and archived. Every
// transition is permitted here; entering published stamps published_at,
// leaving it does not clear the stamp.
func (s *articleService) UpdateStatus(ctx context.Context, id, status string) (*models.Article, error) {
	if !models.ValidStatuses[status] {
		return nil, &apperr.ValidationError{
			Code:    apperr.CodeInvalidStatus,
			Field:   "status",
			Message: fmt.Sprintf("status must be one of: draft, published, archived, got %q", status),
		}
	}

	article, err := s.repos.Article.GetByID(ctx, id)
	if err != nil {
		return nil, &apperr.PersistenceError{Op: "get article", Err: err}
	}
	if article == nil {
		return nil, fmt.Errorf("article %s: %w", id, apperr.ErrNotFound)
	}

	var publishedAt *time.Time
	if status == models.StatusPublished && article.Status != models.StatusPublished {
		now := time.Now()
		publishedAt = &now
	}

	if err := s.repos.Article.UpdateStatus(ctx, id, status, publishedAt); err != nil {
		return nil, &apperr.PersistenceError{Op: "update status", Err: err}
	}

	s.invalidate("status changed")
	return s.GetByID(ctx, id)
}

// BulkUpdateStatus changes the status of many articles in one statement.
// Articles already carrying a published_at keep it.
func (s *articleService) BulkUpdateStatus(ctx context.Context, ids []string, status string) (int, error) {
	if !models.ValidStatuses[status] {
		return 0, &apperr.ValidationError{
			Code:    apperr.CodeInvalidStatus,
			Field:   "status",
			Message: fmt.Sprintf("status must be one of: draft, published, archived, got %q", status),
		}
	}

	var publishedAt *time.Time
	if status == models.StatusPublished {
		now := time.Now()
		publishedAt = &now
	}

	updated, err := s.repos.Article.BulkUpdateStatus(ctx, ids, status, publishedAt)
	if err != nil {
		return 0, &apperr.PersistenceError{Op: "bulk update status", Err: err}
	}

	if updated > 0 {
		s.invalidate("bulk status change")
	}
	return updated, nil
}

// Delete removes the article and its association rows. Associations go first
// so no concurrent reader can observe a join row pointing at a missing
// article; the store is not configured to cascade.
func (s *articleService) Delete(ctx context.Context, id string) error {
	article, err := s.repos.Article.GetByID(ctx, id)
	if err != nil {
		return &apperr.PersistenceError{Op: "get article", Err: err}
	}
	if article == nil {
		return fmt.Errorf("article %s: %w", id, apperr.ErrNotFound)
	}

	if err := s.repos.ArticleTags.RemoveAll(ctx, id); err != nil {
		return &apperr.PersistenceError{Op: "delete tag associations", Err: err}
	}
	if err := s.repos.ArticleCategories.RemoveAll(ctx, id); err != nil {
		return &apperr.PartialFailure{Completed: []string{"delete_tag_associations"}, Failed: "delete_category_associations", Err: err}
	}
	if err := s.repos.Article.Delete(ctx, id); err != nil {
		return &apperr.PartialFailure{
			Completed: []string{"delete_tag_associations", "delete_category_associations"},
			Failed:    "delete_article_row",
			Err:       err,
		}
	}

	s.invalidate("article deleted")
	s.log.Info().Str("article_id", id).Msg("Article deleted")
	return nil
}

// UpdateTags replaces the article's tag set with the named tags, creating
// missing tags on the way. Idempotent: a repeated call performs zero writes.
func (s *articleService) UpdateTags(ctx context.Context, id string, names []string) (*models.ReconcileResult, error) {
	if err := s.requireArticle(ctx, id); err != nil {
		return nil, err
	}

	result, err := s.reconcileTags(ctx, id, names)
	if err != nil {
		return nil, err
	}

	s.invalidate("tags updated")
	return result, nil
}

// UpdateCategories replaces the article's category set. The first desired
// category also becomes the scalar primary category on the article row, which
// keeps the primary inside the association set by construction.
func (s *articleService) UpdateCategories(ctx context.Context, id string, categoryIDs []string) (*models.ReconcileResult, error) {
	if err := s.requireArticle(ctx, id); err != nil {
		return nil, err
	}

	result, err := s.reconcileCategories(ctx, id, categoryIDs)
	if err != nil {
		return nil, err
	}

	s.invalidate("categories updated")
	return result, nil
}

// ValidateSlug normalizes a candidate and reports whether it is free; when it
// is taken the returned slug is the next available variant.
func (s *articleService) ValidateSlug(ctx context.Context, candidate, excludeID string) (string, bool, error) {
	normalized := slug.Normalize(candidate)

	taken, err := s.repos.Article.SlugExists(ctx, normalized, excludeID)
	if err != nil {
		return "", false, &apperr.PersistenceError{Op: "probe slug", Err: err}
	}
	if !taken {
		return normalized, true, nil
	}

	resolved, err := s.slugs.Unique(ctx, candidate, excludeID)
	if err != nil {
		return "", false, &apperr.PersistenceError{Op: "resolve slug", Err: err}
	}
	return resolved, false, nil
}

// RecalculateReadingTime reprocesses every article body in fixed-size
// batches and rewrites the derived metrics. Per-article failures are logged
// and skipped; the pass is maintenance, not a primary write.
func (s *articleService) RecalculateReadingTime(ctx context.Context) (int, error) {
	updated := 0
	for offset := 0; ; offset += s.recalcBatchSize {
		batch, err := s.repos.Article.ListContent(ctx, offset, s.recalcBatchSize)
		if err != nil {
			return updated, &apperr.PersistenceError{Op: "list article content", Err: err}
		}
		if len(batch) == 0 {
			break
		}

		for _, article := range batch {
			metrics := s.processor.Process(article.Content)
			if err := s.repos.Article.UpdateMetrics(ctx, article.ID, metrics); err != nil {
				s.log.Warn().Err(err).Str("article_id", article.ID).Msg("Failed to update metrics, skipping")
				continue
			}
			updated++
		}

		if len(batch) < s.recalcBatchSize {
			break
		}
	}

	if updated > 0 {
		s.invalidate("metrics recalculated")
	}
	s.log.Info().Int("updated", updated).Msg("Reading time recalculated")
	return updated, nil
}

// reconcileCategories wires the scalar primary write into the generic
// reconciliation: the first desired id becomes the primary, an empty desired
// set clears it.
func (s *articleService) reconcileCategories(ctx context.Context, articleID string, categoryIDs []string) (*models.ReconcileResult, error) {
	var primary *string
	if len(categoryIDs) > 0 {
		primary = &categoryIDs[0]
	}

	setPrimary := func(ctx context.Context) error {
		return s.repos.Article.SetPrimaryCategory(ctx, articleID, primary)
	}
	return s.rec.reconcile(ctx, s.repos.ArticleCategories, articleID, categoryIDs, setPrimary)
}

func (s *articleService) reconcileTags(ctx context.Context, articleID string, names []string) (*models.ReconcileResult, error) {
	ids, err := s.rec.resolveTagNames(ctx, names)
	if err != nil {
		return nil, err
	}
	return s.rec.reconcile(ctx, s.repos.ArticleTags, articleID, ids, nil)
}

// attachReferences joins categories, tags and authors onto a page of
// articles. The three batched reads run concurrently and are merged in
// memory by id, so the query count never grows with the page size.
func (s *articleService) attachReferences(ctx context.Context, articles []*models.Article) error {
	articleIDs := make([]string, len(articles))
	authorIDSet := make(map[string]bool)
	for i, a := range articles {
		articleIDs[i] = a.ID
		authorIDSet[a.AuthorID] = true
	}
	authorIDs := make([]string, 0, len(authorIDSet))
	for id := range authorIDSet {
		authorIDs = append(authorIDs, id)
	}

	var (
		wg         sync.WaitGroup
		categories map[string][]models.Category
		primaries  []models.Category
		tags       map[string][]models.Tag
		authors    map[string]*models.User
		catErr     error
		tagErr     error
		authorErr  error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		categories, catErr = s.repos.Category.GetByArticleIDs(ctx, articleIDs)
		if catErr != nil {
			return
		}
		primaries, catErr = s.fetchMissingPrimaries(ctx, articles, categories)
	}()
	go func() {
		defer wg.Done()
		tags, tagErr = s.repos.Tag.GetByArticleIDs(ctx, articleIDs)
	}()
	go func() {
		defer wg.Done()
		authors, authorErr = s.repos.User.GetByIDs(ctx, authorIDs)
	}()
	wg.Wait()

	if catErr != nil {
		return &apperr.PersistenceError{Op: "load categories", Err: catErr}
	}
	if tagErr != nil {
		return &apperr.PersistenceError{Op: "load tags", Err: tagErr}
	}
	if authorErr != nil {
		return &apperr.PersistenceError{Op: "load authors", Err: authorErr}
	}

	primaryByID := make(map[string]models.Category, len(primaries))
	for _, c := range primaries {
		primaryByID[c.ID] = c
	}

	for _, article := range articles {
		article.Categories = mergePrimary(categories[article.ID], article.PrimaryCategoryID, primaryByID)
		article.Tags = tags[article.ID]
		if author, ok := authors[article.AuthorID]; ok {
			article.Author = author
		}
	}
	return nil
}

// fetchMissingPrimaries loads primary categories that are set on article rows
// but absent from the junction results, in one extra batched read only when
// such orphans exist.
func (s *articleService) fetchMissingPrimaries(ctx context.Context, articles []*models.Article, categories map[string][]models.Category) ([]models.Category, error) {
	missingSet := make(map[string]bool)
	for _, article := range articles {
		if article.PrimaryCategoryID == nil {
			continue
		}
		found := false
		for _, c := range categories[article.ID] {
			if c.ID == *article.PrimaryCategoryID {
				found = true
				break
			}
		}
		if !found {
			missingSet[*article.PrimaryCategoryID] = true
		}
	}
	if len(missingSet) == 0 {
		return nil, nil
	}

	missing := make([]string, 0, len(missingSet))
	for id := range missingSet {
		missing = append(missing, id)
	}
	return s.repos.Category.GetByIDs(ctx, missing)
}

// mergePrimary folds the scalar primary category into the association list,
// de-duplicated by id.
func mergePrimary(categories []models.Category, primaryID *string, primaries map[string]models.Category) []models.Category {
	if primaryID == nil {
		return categories
	}
	for _, c := range categories {
		if c.ID == *primaryID {
			return categories
		}
	}
	if primary, ok := primaries[*primaryID]; ok {
		return append([]models.Category{primary}, categories...)
	}
	return categories
}

// requireArticle resolves not-found before any relationship write happens
func (s *articleService) requireArticle(ctx context.Context, id string) error {
	article, err := s.repos.Article.GetByID(ctx, id)
	if err != nil {
		return &apperr.PersistenceError{Op: "get article", Err: err}
	}
	if article == nil {
		return fmt.Errorf("article %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// asPartial normalizes association errors that happened after the article row
// committed into a partial failure the caller can act on.
func (s *articleService) asPartial(committed, step string, err error) error {
	if pf, ok := err.(*apperr.PartialFailure); ok {
		pf.Completed = append([]string{committed}, pf.Completed...)
		return pf
	}
	return &apperr.PartialFailure{Completed: []string{committed}, Failed: step, Err: err}
}

// invalidate publishes a fire-and-forget cache invalidation event
func (s *articleService) invalidate(reason string) {
	if s.bus != nil {
		s.bus.Publish(reason)
	}
}
