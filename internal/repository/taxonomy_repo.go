package repository

import (
	"context"

	"github.com/content-management-api/internal/database"
	"github.com/content-management-api/internal/models"
	"github.com/lib/pq"
)

// categoryRepo is the concrete implementation of CategoryRepository
type categoryRepo struct {
	db *database.DB
}

// NewCategoryRepo creates a new category repository
func NewCategoryRepo(db *database.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

// GetByIDs retrieves categories for a set of ids in one query
func (r *categoryRepo) GetByIDs(ctx context.Context, ids []string) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug, description, created_at FROM categories WHERE id = ANY($1)`,
		pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetByArticleIDs retrieves all category associations for a page of articles
// in one batched join query, keyed by article id.
func (r *categoryRepo) GetByArticleIDs(ctx context.Context, articleIDs []string) (map[string][]models.Category, error) {
	result := make(map[string][]models.Category)
	if len(articleIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT ac.article_id, c.id, c.name, c.slug, c.description, c.created_at
		FROM article_categories ac
		JOIN categories c ON c.id = ac.category_id
		WHERE ac.article_id = ANY($1)
	`, pq.Array(articleIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var articleID string
		var c models.Category
		if err := rows.Scan(&articleID, &c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		result[articleID] = append(result[articleID], c)
	}
	return result, rows.Err()
}

// Exists checks if a category with the given ID exists
func (r *categoryRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// tagRepo is the concrete implementation of TagRepository
type tagRepo struct {
	db *database.DB
}

// NewTagRepo creates a new tag repository
func NewTagRepo(db *database.DB) TagRepository {
	return &tagRepo{db: db}
}

// GetByNames retrieves tags matching any of the given names in one query
func (r *tagRepo) GetByNames(ctx context.Context, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug, description, created_at FROM tags WHERE name = ANY($1)`,
		pq.Array(names))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// GetByArticleIDs retrieves all tag associations for a page of articles in
// one batched join query, keyed by article id.
func (r *tagRepo) GetByArticleIDs(ctx context.Context, articleIDs []string) (map[string][]models.Tag, error) {
	result := make(map[string][]models.Tag)
	if len(articleIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT at.article_id, t.id, t.name, t.slug, t.description, t.created_at
		FROM article_tags at
		JOIN tags t ON t.id = at.tag_id
		WHERE at.article_id = ANY($1)
	`, pq.Array(articleIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var articleID string
		var t models.Tag
		if err := rows.Scan(&articleID, &t.ID, &t.Name, &t.Slug, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		result[articleID] = append(result[articleID], t)
	}
	return result, rows.Err()
}

// TakenSlugs returns every existing tag slug equal to one of the bases or
// carrying a suffix of one ("base-1", "base-2", ...), so a whole batch of new
// tags can resolve slug collisions in memory after a single round trip.
func (r *tagRepo) TakenSlugs(ctx context.Context, bases []string) (map[string]bool, error) {
	taken := make(map[string]bool)
	if len(bases) == 0 {
		return taken, nil
	}

	patterns := make([]string, len(bases))
	for i, base := range bases {
		patterns[i] = base + "-%"
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT slug FROM tags WHERE slug = ANY($1) OR slug LIKE ANY($2)`,
		pq.Array(bases), pq.Array(patterns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		taken[s] = true
	}
	return taken, rows.Err()
}

// CreateBatch inserts new tags, ignoring rows whose slug a concurrent writer
// already claimed. Callers re-read by name afterwards to adopt the winner.
func (r *tagRepo) CreateBatch(ctx context.Context, tags []*models.Tag) error {
	for _, tag := range tags {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO tags (id, name, slug, description, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (slug) DO NOTHING
		`, tag.ID, tag.Name, tag.Slug, tag.Description, tag.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}
