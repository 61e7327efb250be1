package service

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/content-management-api/internal/apperr"
	"github.com/content-management-api/internal/mocks"
	"github.com/content-management-api/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestReconciler() (*reconciler, *mocks.MockArticleRepository, *mocks.MockTagRepository, *mocks.MockAssociationRepository) {
	articles := mocks.NewMockArticleRepository()
	assoc := mocks.NewMockAssociationRepository()
	tags := mocks.NewMockTagRepository(assoc)
	rec := newReconciler(articles, tags, 10, zerolog.Nop())
	return rec, articles, tags, assoc
}

func TestDiff(t *testing.T) {
	toAdd, toRemove := diff([]string{"b", "c", "d"}, []string{"a", "b", "c"})

	if !reflect.DeepEqual(toAdd, []string{"d"}) {
		t.Errorf("toAdd = %v, want [d]", toAdd)
	}
	if !reflect.DeepEqual(toRemove, []string{"a"}) {
		t.Errorf("toRemove = %v, want [a]", toRemove)
	}
}

func TestDiff_Duplicates(t *testing.T) {
	toAdd, toRemove := diff([]string{"a", "a", "b"}, []string{"a"})

	if !reflect.DeepEqual(toAdd, []string{"b"}) {
		t.Errorf("toAdd = %v, want [b]", toAdd)
	}
	if len(toRemove) != 0 {
		t.Errorf("toRemove = %v, want empty", toRemove)
	}
}

func TestReconcile_AppliesMinimalDiff(t *testing.T) {
	rec, _, _, assoc := newTestReconciler()
	ctx := context.Background()

	assoc.Add(ctx, "art1", []string{"a", "b", "c"})
	addCallsBefore := assoc.AddCalls

	result, err := rec.reconcile(ctx, assoc, "art1", []string{"b", "c", "d"}, nil)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if !reflect.DeepEqual(result.Added, []string{"d"}) {
		t.Errorf("Added = %v, want [d]", result.Added)
	}
	if !reflect.DeepEqual(result.Removed, []string{"a"}) {
		t.Errorf("Removed = %v, want [a]", result.Removed)
	}
	if got := assoc.EntityIDs("art1"); !reflect.DeepEqual(got, []string{"b", "c", "d"}) {
		t.Errorf("Final set = %v, want [b c d]", got)
	}
	if assoc.AddCalls != addCallsBefore+1 {
		t.Errorf("Expected exactly one add statement, got %d", assoc.AddCalls-addCallsBefore)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	rec, _, _, assoc := newTestReconciler()
	ctx := context.Background()

	if _, err := rec.reconcile(ctx, assoc, "art1", []string{"a", "b"}, nil); err != nil {
		t.Fatalf("first reconcile failed: %v", err)
	}

	addsBefore, removesBefore := assoc.AddedRows, assoc.RemovedRows
	result, err := rec.reconcile(ctx, assoc, "art1", []string{"a", "b"}, nil)
	if err != nil {
		t.Fatalf("second reconcile failed: %v", err)
	}

	// Zero net writes on the second call
	if assoc.AddedRows != addsBefore || assoc.RemovedRows != removesBefore {
		t.Errorf("Second reconcile wrote rows: adds %d->%d removes %d->%d",
			addsBefore, assoc.AddedRows, removesBefore, assoc.RemovedRows)
	}
	if len(result.Added) != 0 || len(result.Removed) != 0 {
		t.Errorf("Expected empty diff, got %+v", result)
	}
	if got := assoc.EntityIDs("art1"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Final set = %v, want [a b]", got)
	}
}

func TestReconcile_TouchesWhenNoPrimaryWrite(t *testing.T) {
	rec, articles, _, assoc := newTestReconciler()
	ctx := context.Background()

	if _, err := rec.reconcile(ctx, assoc, "art1", []string{"a"}, nil); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if articles.TouchCalls != 1 {
		t.Errorf("Expected updated_at touch, got %d calls", articles.TouchCalls)
	}

	called := false
	setPrimary := func(ctx context.Context) error { called = true; return nil }
	if _, err := rec.reconcile(ctx, assoc, "art1", []string{"a", "b"}, setPrimary); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if !called {
		t.Error("Primary write was not invoked")
	}
	if articles.TouchCalls != 1 {
		t.Errorf("Touch should be skipped when the primary write ran, got %d calls", articles.TouchCalls)
	}
}

func TestReconcile_PartialFailureAfterPrimaryWrite(t *testing.T) {
	rec, _, _, assoc := newTestReconciler()
	ctx := context.Background()

	assoc.ListError = errors.New("connection reset")
	setPrimary := func(ctx context.Context) error { return nil }

	_, err := rec.reconcile(ctx, assoc, "art1", []string{"a"}, setPrimary)
	var pf *apperr.PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("Expected PartialFailure, got %v", err)
	}
	if !reflect.DeepEqual(pf.Completed, []string{"primary_field"}) {
		t.Errorf("Completed = %v, want [primary_field]", pf.Completed)
	}
	if pf.Failed != "read_associations" {
		t.Errorf("Failed = %q, want read_associations", pf.Failed)
	}
}

func TestReconcile_PlainErrorBeforeAnyCommit(t *testing.T) {
	rec, _, _, assoc := newTestReconciler()
	assoc.ListError = errors.New("connection reset")

	_, err := rec.reconcile(context.Background(), assoc, "art1", []string{"a"}, nil)
	if apperr.IsPartial(err) {
		t.Errorf("Nothing committed, should not be a partial failure: %v", err)
	}
	var pe *apperr.PersistenceError
	if !errors.As(err, &pe) {
		t.Errorf("Expected PersistenceError, got %v", err)
	}
}

func TestResolveTagNames_CreatesMissing(t *testing.T) {
	rec, _, tags, _ := newTestReconciler()
	ctx := context.Background()

	ids, err := rec.resolveTagNames(ctx, []string{"Go", "Databases"})
	if err != nil {
		t.Fatalf("resolveTagNames failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Expected 2 ids, got %d", len(ids))
	}

	goTag := tags.TagByName("Go")
	if goTag == nil || goTag.Slug != "go" {
		t.Errorf("Expected created tag Go with slug go, got %+v", goTag)
	}
	// One read, one batched probe, one batched insert, one re-read
	if tags.TakenSlugsCalls != 1 {
		t.Errorf("Expected a single batched slug probe, got %d", tags.TakenSlugsCalls)
	}
	if tags.CreateCalls != 1 {
		t.Errorf("Expected a single batched insert, got %d", tags.CreateCalls)
	}
}

func TestResolveTagNames_SlugCollision(t *testing.T) {
	rec, _, tags, _ := newTestReconciler()
	ctx := context.Background()

	// "go" is taken by a differently-named tag
	tags.CreateBatch(ctx, tagFixtures("Golang", "go"))

	ids, err := rec.resolveTagNames(ctx, []string{"Go"})
	if err != nil {
		t.Fatalf("resolveTagNames failed: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("Expected 1 id, got %d", len(ids))
	}

	created := tags.TagByName("Go")
	if created == nil {
		t.Fatal("Tag Go was not created")
	}
	if created.Slug != "go-1" {
		t.Errorf("Expected collision-resolved slug go-1, got %q", created.Slug)
	}
}

func TestResolveTagNames_AdoptsConcurrentWinner(t *testing.T) {
	rec, _, tags, _ := newTestReconciler()
	ctx := context.Background()

	// Simulate a concurrent writer creating the same slug between the probe
	// and the insert: the upsert skips, the re-read adopts the winner.
	winner := tagFixtures("Go", "go")
	existingID := winner[0].ID
	tags.CreateBatch(ctx, winner)
	tags.TakenSlugsCalls = 0

	ids, err := rec.resolveTagNames(ctx, []string{"Go"})
	if err != nil {
		t.Fatalf("resolveTagNames failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != existingID {
		t.Errorf("Expected the existing tag id %s, got %v", existingID, ids)
	}
	if len(tags.Tags) != 1 {
		t.Errorf("Expected no duplicate tag, got %d tags", len(tags.Tags))
	}
}

func TestResolveTagNames_DedupesAndTrims(t *testing.T) {
	rec, _, _, _ := newTestReconciler()

	ids, err := rec.resolveTagNames(context.Background(), []string{" Go ", "Go", "", "Rust"})
	if err != nil {
		t.Fatalf("resolveTagNames failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("Expected 2 ids after dedupe, got %d", len(ids))
	}
	sorted := append([]string{}, ids...)
	sort.Strings(sorted)
	if sorted[0] == sorted[1] {
		t.Error("Duplicate ids returned")
	}
}

func tagFixtures(name, slugValue string) []*models.Tag {
	return []*models.Tag{{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      slugValue,
		CreatedAt: time.Now(),
	}}
}
