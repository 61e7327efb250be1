package repository

import (
	"context"
	"fmt"

	"github.com/content-management-api/internal/database"
	"github.com/lib/pq"
)

// assocRepo implements AssociationRepository over a named join table. The
// same implementation serves article_categories and article_tags; only the
// table and entity column differ.
type assocRepo struct {
	db           *database.DB
	table        string
	entityColumn string
}

// NewAssociationRepo creates an association repository for the given join
// table and entity id column.
func NewAssociationRepo(db *database.DB, table, entityColumn string) AssociationRepository {
	return &assocRepo{db: db, table: table, entityColumn: entityColumn}
}

// ListEntityIDs returns the current association set for an article
func (r *assocRepo) ListEntityIDs(ctx context.Context, articleID string) ([]string, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE article_id = $1`, r.entityColumn, r.table)

	rows, err := r.db.QueryContext(ctx, query, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Add inserts association rows. Duplicate (article, entity) pairs are ignored
// so interleaved reconciliations cannot produce constraint failures.
func (r *assocRepo) Add(ctx context.Context, articleID string, entityIDs []string) error {
	if len(entityIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (article_id, %s)
		SELECT $1, unnest($2::text[])
		ON CONFLICT (article_id, %s) DO NOTHING
	`, r.table, r.entityColumn, r.entityColumn)

	_, err := r.db.ExecContext(ctx, query, articleID, pq.Array(entityIDs))
	return err
}

// Remove deletes exactly the given association rows
func (r *assocRepo) Remove(ctx context.Context, articleID string, entityIDs []string) error {
	if len(entityIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE article_id = $1 AND %s = ANY($2)`,
		r.table, r.entityColumn)

	_, err := r.db.ExecContext(ctx, query, articleID, pq.Array(entityIDs))
	return err
}

// RemoveAll deletes every association for an article, used before the article
// row itself is deleted since the store is not configured to cascade.
func (r *assocRepo) RemoveAll(ctx context.Context, articleID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE article_id = $1`, r.table)
	_, err := r.db.ExecContext(ctx, query, articleID)
	return err
}
