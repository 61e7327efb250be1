package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/content-management-api/internal/database"
	"github.com/content-management-api/internal/models"
	"github.com/lib/pq"
)

const articleColumns = `id, slug, title, content, excerpt, author_id, primary_category_id, status,
		word_count, reading_time, internal_links, external_links, published_at, created_at, updated_at`

// articleRepo is the concrete implementation of ArticleRepository
type articleRepo struct {
	db *database.DB
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(db *database.DB) ArticleRepository {
	return &articleRepo{db: db}
}

// Create inserts a new article
func (r *articleRepo) Create(ctx context.Context, article *models.Article) error {
	internalJSON, _ := json.Marshal(article.InternalLinks)
	externalJSON, _ := json.Marshal(article.ExternalLinks)

	query := `
		INSERT INTO articles (id, slug, title, content, excerpt, author_id, primary_category_id, status,
			word_count, reading_time, internal_links, external_links, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, query,
		article.ID, article.Slug, article.Title, article.Content, article.Excerpt,
		article.AuthorID, article.PrimaryCategoryID, article.Status,
		article.WordCount, article.ReadingTime, internalJSON, externalJSON,
		article.PublishedAt, article.CreatedAt, article.UpdatedAt,
	)
	return err
}

// GetByID retrieves an article by ID
func (r *articleRepo) GetByID(ctx context.Context, id string) (*models.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM articles WHERE id = $1`, articleColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetBySlug retrieves an article by slug
func (r *articleRepo) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM articles WHERE slug = $1`, articleColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, slug))
}

// List retrieves one page of articles plus the total count in a single round
// trip via a window function.
func (r *articleRepo) List(ctx context.Context, page, pageSize int, filters models.ListFilters) ([]*models.Article, int, error) {
	var conditions []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Search != "" {
		p := arg("%" + filters.Search + "%")
		conditions = append(conditions,
			fmt.Sprintf("(title ILIKE %s OR content ILIKE %s OR excerpt ILIKE %s)", p, p, p))
	}
	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = %s", arg(filters.Status)))
	}
	if filters.AuthorID != "" {
		conditions = append(conditions, fmt.Sprintf("author_id = %s", arg(filters.AuthorID)))
	}
	if filters.CreatedAfter != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= %s", arg(*filters.CreatedAfter)))
	}
	if filters.CreatedBefore != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= %s", arg(*filters.CreatedBefore)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Sort column is resolved through an allow-list, never interpolated from
	// caller input directly.
	sortColumn, ok := models.SortableFields[filters.SortField]
	if !ok {
		sortColumn = "created_at"
		filters.SortDesc = true
	}
	direction := "ASC"
	if filters.SortDesc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total_count
		FROM articles %s
		ORDER BY %s %s, id ASC
		LIMIT %s OFFSET %s
	`, articleColumns, where, sortColumn, direction, arg(pageSize), arg((page-1)*pageSize))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var articles []*models.Article
	total := 0
	for rows.Next() {
		article, rowTotal, err := scanListRow(rows)
		if err != nil {
			return nil, 0, err
		}
		total = rowTotal
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// An empty page past the end still needs the real total
	if len(articles) == 0 {
		var count int
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM articles %s", where)
		if err := r.db.QueryRowContext(ctx, countQuery, args[:len(args)-2]...).Scan(&count); err != nil {
			return nil, 0, err
		}
		total = count
	}

	return articles, total, nil
}

// Update writes all scalar fields of an article row
func (r *articleRepo) Update(ctx context.Context, article *models.Article) error {
	internalJSON, _ := json.Marshal(article.InternalLinks)
	externalJSON, _ := json.Marshal(article.ExternalLinks)

	query := `
		UPDATE articles
		SET slug = $2, title = $3, content = $4, excerpt = $5, status = $6,
			word_count = $7, reading_time = $8, internal_links = $9, external_links = $10,
			published_at = $11, updated_at = $12
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		article.ID, article.Slug, article.Title, article.Content, article.Excerpt,
		article.Status, article.WordCount, article.ReadingTime,
		internalJSON, externalJSON, article.PublishedAt, time.Now(),
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// UpdateStatus changes the status of one article. A non-nil publishedAt is
// written alongside (entering published); nil leaves the column untouched.
func (r *articleRepo) UpdateStatus(ctx context.Context, id, status string, publishedAt *time.Time) error {
	var result sql.Result
	var err error
	if publishedAt != nil {
		result, err = r.db.ExecContext(ctx,
			`UPDATE articles SET status = $2, published_at = $3, updated_at = $4 WHERE id = $1`,
			id, status, *publishedAt, time.Now())
	} else {
		result, err = r.db.ExecContext(ctx,
			`UPDATE articles SET status = $2, updated_at = $3 WHERE id = $1`,
			id, status, time.Now())
	}
	if err != nil {
		return err
	}
	return requireRow(result)
}

// BulkUpdateStatus changes the status of many articles in one statement and
// returns how many rows were touched.
func (r *articleRepo) BulkUpdateStatus(ctx context.Context, ids []string, status string, publishedAt *time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var result sql.Result
	var err error
	if publishedAt != nil {
		result, err = r.db.ExecContext(ctx,
			`UPDATE articles SET status = $2, published_at = COALESCE(published_at, $3), updated_at = $4 WHERE id = ANY($1)`,
			pq.Array(ids), status, *publishedAt, time.Now())
	} else {
		result, err = r.db.ExecContext(ctx,
			`UPDATE articles SET status = $2, updated_at = $3 WHERE id = ANY($1)`,
			pq.Array(ids), status, time.Now())
	}
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

// UpdateMetrics rewrites only the derived content fields
func (r *articleRepo) UpdateMetrics(ctx context.Context, id string, metrics models.ContentMetrics) error {
	internalJSON, _ := json.Marshal(metrics.InternalLinks)
	externalJSON, _ := json.Marshal(metrics.ExternalLinks)

	_, err := r.db.ExecContext(ctx, `
		UPDATE articles
		SET word_count = $2, reading_time = $3, internal_links = $4, external_links = $5, updated_at = $6
		WHERE id = $1
	`, id, metrics.WordCount, metrics.ReadingTime, internalJSON, externalJSON, time.Now())
	return err
}

// SetPrimaryCategory writes the scalar primary category reference
func (r *articleRepo) SetPrimaryCategory(ctx context.Context, id string, categoryID *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE articles SET primary_category_id = $2, updated_at = $3 WHERE id = $1`,
		id, categoryID, time.Now())
	if err != nil {
		return err
	}
	return requireRow(result)
}

// TouchUpdated bumps updated_at so consumers observe association-only changes
func (r *articleRepo) TouchUpdated(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE articles SET updated_at = $2 WHERE id = $1`, id, time.Now())
	return err
}

// Delete removes the article row
func (r *articleRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SlugExists checks whether any other article holds the slug. One count-only
// round trip per probe.
func (r *articleRepo) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var exists bool
	var err error
	if excludeID != "" {
		err = r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM articles WHERE slug = $1 AND id <> $2)`,
			slug, excludeID).Scan(&exists)
	} else {
		err = r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM articles WHERE slug = $1)`, slug).Scan(&exists)
	}
	return exists, err
}

// ListContent returns a fixed-size batch of article ids and bodies ordered by
// creation time, for maintenance passes over all articles.
func (r *articleRepo) ListContent(ctx context.Context, offset, limit int) ([]*models.Article, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, content FROM articles ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []*models.Article
	for rows.Next() {
		var article models.Article
		if err := rows.Scan(&article.ID, &article.Content); err != nil {
			return nil, err
		}
		articles = append(articles, &article)
	}
	return articles, rows.Err()
}

// Count returns the total number of articles
func (r *articleRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count)
	return count, err
}

// scanOne scans a single article row, mapping sql.ErrNoRows to a nil article
func (r *articleRepo) scanOne(row *sql.Row) (*models.Article, error) {
	var article models.Article
	var internalJSON, externalJSON []byte
	var primaryCategory sql.NullString
	var publishedAt sql.NullTime

	err := row.Scan(
		&article.ID, &article.Slug, &article.Title, &article.Content, &article.Excerpt,
		&article.AuthorID, &primaryCategory, &article.Status,
		&article.WordCount, &article.ReadingTime, &internalJSON, &externalJSON,
		&publishedAt, &article.CreatedAt, &article.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	hydrateArticle(&article, internalJSON, externalJSON, primaryCategory, publishedAt)
	return &article, nil
}

func scanListRow(rows *sql.Rows) (*models.Article, int, error) {
	var article models.Article
	var internalJSON, externalJSON []byte
	var primaryCategory sql.NullString
	var publishedAt sql.NullTime
	var total int

	err := rows.Scan(
		&article.ID, &article.Slug, &article.Title, &article.Content, &article.Excerpt,
		&article.AuthorID, &primaryCategory, &article.Status,
		&article.WordCount, &article.ReadingTime, &internalJSON, &externalJSON,
		&publishedAt, &article.CreatedAt, &article.UpdatedAt, &total,
	)
	if err != nil {
		return nil, 0, err
	}

	hydrateArticle(&article, internalJSON, externalJSON, primaryCategory, publishedAt)
	return &article, total, nil
}

func hydrateArticle(article *models.Article, internalJSON, externalJSON []byte, primaryCategory sql.NullString, publishedAt sql.NullTime) {
	json.Unmarshal(internalJSON, &article.InternalLinks)
	json.Unmarshal(externalJSON, &article.ExternalLinks)
	if primaryCategory.Valid {
		article.PrimaryCategoryID = &primaryCategory.String
	}
	if publishedAt.Valid {
		article.PublishedAt = &publishedAt.Time
	}
}

// requireRow converts a zero-row update/delete into sql.ErrNoRows so callers
// can branch on missing articles.
func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
