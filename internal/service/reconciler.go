package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/content-management-api/internal/apperr"
	"github.com/content-management-api/internal/models"
	"github.com/content-management-api/internal/repository"
	"github.com/content-management-api/internal/slug"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// primaryWrite is an optional scalar update applied before association rows
// are touched, used for the primary-category field on the article row.
type primaryWrite func(ctx context.Context) error

// reconciler keeps an article's many-to-many association sets in step with a
// desired set using minimal add/remove diffs. Each store call commits on its
// own; a failure after the primary write is reported as a partial failure,
// never hidden and never rolled back.
type reconciler struct {
	articles        repository.ArticleRepository
	tags            repository.TagRepository
	slugMaxAttempts int
	log             zerolog.Logger
}

func newReconciler(articles repository.ArticleRepository, tags repository.TagRepository, slugMaxAttempts int, log zerolog.Logger) *reconciler {
	return &reconciler{
		articles:        articles,
		tags:            tags,
		slugMaxAttempts: slugMaxAttempts,
		log:             log.With().Str("component", "reconciler").Logger(),
	}
}

// reconcile diffs the article's current association rows against desired and
// applies exactly the difference. Calling it again with the same desired set
// performs zero writes. When setPrimary is nil the article's updated_at is
// touched instead so consumers still observe the change.
func (r *reconciler) reconcile(ctx context.Context, assoc repository.AssociationRepository, articleID string, desired []string, setPrimary primaryWrite) (*models.ReconcileResult, error) {
	var completed []string

	if setPrimary != nil {
		if err := setPrimary(ctx); err != nil {
			return nil, &apperr.PersistenceError{Op: "set primary field", Err: err}
		}
		completed = append(completed, "primary_field")
	}

	current, err := assoc.ListEntityIDs(ctx, articleID)
	if err != nil {
		return nil, r.fail(completed, "read_associations", err)
	}

	toAdd, toRemove := diff(desired, current)

	if err := assoc.Remove(ctx, articleID, toRemove); err != nil {
		return nil, r.fail(completed, "remove_associations", err)
	}
	completed = append(completed, "remove_associations")

	if err := assoc.Add(ctx, articleID, toAdd); err != nil {
		return nil, r.fail(completed, "add_associations", err)
	}

	if setPrimary == nil {
		// Best-effort; the association writes already landed
		if err := r.articles.TouchUpdated(ctx, articleID); err != nil {
			r.log.Warn().Err(err).Str("article_id", articleID).Msg("Failed to touch updated_at")
		}
	}

	return &models.ReconcileResult{Added: toAdd, Removed: toRemove}, nil
}

// fail wraps a mid-sequence error. With no committed steps it is an ordinary
// persistence error; otherwise the caller gets the exact retry point.
func (r *reconciler) fail(completed []string, step string, err error) error {
	if len(completed) == 0 {
		return &apperr.PersistenceError{Op: step, Err: err}
	}
	return &apperr.PartialFailure{Completed: completed, Failed: step, Err: err}
}

// resolveTagNames maps tag names to ids, creating any missing tags. Existing
// names are fetched in one query; slug collisions for the whole batch of new
// tags are probed in one more query and resolved in memory. Inserts upsert on
// slug conflict and the names are re-read afterwards, so a concurrently
// created tag of the same name is adopted instead of erroring.
func (r *reconciler) resolveTagNames(ctx context.Context, names []string) ([]string, error) {
	cleaned := dedupeNames(names)
	if len(cleaned) == 0 {
		return nil, nil
	}

	existing, err := r.tags.GetByNames(ctx, cleaned)
	if err != nil {
		return nil, &apperr.PersistenceError{Op: "resolve tag names", Err: err}
	}

	byName := make(map[string]string, len(existing))
	for _, t := range existing {
		byName[t.Name] = t.ID
	}

	var missing []string
	for _, name := range cleaned {
		if _, ok := byName[name]; !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		if err := r.createTags(ctx, missing); err != nil {
			return nil, err
		}

		created, err := r.tags.GetByNames(ctx, missing)
		if err != nil {
			return nil, &apperr.PersistenceError{Op: "re-read created tags", Err: err}
		}
		for _, t := range created {
			byName[t.Name] = t.ID
		}
	}

	ids := make([]string, 0, len(cleaned))
	for _, name := range cleaned {
		id, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("tag %q missing after creation: %w", name, apperr.ErrNotFound)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// createTags inserts new tags with collision-free slugs, one existence probe
// for the whole batch.
func (r *reconciler) createTags(ctx context.Context, names []string) error {
	bases := make([]string, len(names))
	for i, name := range names {
		bases[i] = slug.Normalize(name)
	}

	taken, err := r.tags.TakenSlugs(ctx, bases)
	if err != nil {
		return &apperr.PersistenceError{Op: "probe tag slugs", Err: err}
	}

	now := time.Now()
	tags := make([]*models.Tag, len(names))
	for i, name := range names {
		tags[i] = &models.Tag{
			ID:        uuid.New().String(),
			Name:      name,
			Slug:      slug.UniqueWithin(bases[i], taken, r.slugMaxAttempts),
			CreatedAt: now,
		}
	}

	if err := r.tags.CreateBatch(ctx, tags); err != nil {
		return &apperr.PersistenceError{Op: "create tags", Err: err}
	}
	return nil
}

// diff computes the minimal set difference between desired and current
func diff(desired, current []string) (toAdd, toRemove []string) {
	toAdd = []string{}
	toRemove = []string{}

	currentSet := make(map[string]bool, len(current))
	for _, id := range current {
		currentSet[id] = true
	}
	desiredSet := make(map[string]bool, len(desired))
	for _, id := range desired {
		if desiredSet[id] {
			continue
		}
		desiredSet[id] = true
		if !currentSet[id] {
			toAdd = append(toAdd, id)
		}
	}
	for _, id := range current {
		if !desiredSet[id] {
			toRemove = append(toRemove, id)
		}
	}
	return toAdd, toRemove
}

// dedupeNames trims and de-duplicates tag names, preserving order
func dedupeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}
	return out
}
