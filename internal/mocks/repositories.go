package mocks

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/content-management-api/internal/models"
)

// MockArticleRepository is a mock implementation of ArticleRepository
type MockArticleRepository struct {
	Articles map[string]*models.Article
	Order    []string

	CreateError  error
	UpdateError  error
	ListError    error
	MetricsError map[string]error

	ListCalls          int
	SlugProbeCalls     int
	UpdateCalls        int
	TouchCalls         int
	SetPrimaryCalls    int
	UpdateMetricsCalls int
}

func NewMockArticleRepository() *MockArticleRepository {
	return &MockArticleRepository{
		Articles:     make(map[string]*models.Article),
		MetricsError: make(map[string]error),
	}
}

func (m *MockArticleRepository) Create(ctx context.Context, article *models.Article) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.Articles[article.ID] = article
	m.Order = append(m.Order, article.ID)
	return nil
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	return m.Articles[id], nil
}

func (m *MockArticleRepository) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	for _, a := range m.Articles {
		if a.Slug == slug {
			return a, nil
		}
	}
	return nil, nil
}

func (m *MockArticleRepository) List(ctx context.Context, page, pageSize int, filters models.ListFilters) ([]*models.Article, int, error) {
	m.ListCalls++
	if m.ListError != nil {
		return nil, 0, m.ListError
	}

	var matched []*models.Article
	for _, id := range m.Order {
		a := m.Articles[id]
		if filters.Status != "" && a.Status != filters.Status {
			continue
		}
		if filters.AuthorID != "" && a.AuthorID != filters.AuthorID {
			continue
		}
		if filters.Search != "" &&
			!strings.Contains(a.Title, filters.Search) &&
			!strings.Contains(a.Content, filters.Search) &&
			!strings.Contains(a.Excerpt, filters.Search) {
			continue
		}
		matched = append(matched, a)
	}

	total := len(matched)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *MockArticleRepository) Update(ctx context.Context, article *models.Article) error {
	m.UpdateCalls++
	if m.UpdateError != nil {
		return m.UpdateError
	}
	article.UpdatedAt = time.Now()
	m.Articles[article.ID] = article
	return nil
}

func (m *MockArticleRepository) UpdateStatus(ctx context.Context, id, status string, publishedAt *time.Time) error {
	a := m.Articles[id]
	a.Status = status
	if publishedAt != nil {
		a.PublishedAt = publishedAt
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (m *MockArticleRepository) BulkUpdateStatus(ctx context.Context, ids []string, status string, publishedAt *time.Time) (int, error) {
	updated := 0
	for _, id := range ids {
		a, ok := m.Articles[id]
		if !ok {
			continue
		}
		a.Status = status
		if publishedAt != nil && a.PublishedAt == nil {
			a.PublishedAt = publishedAt
		}
		a.UpdatedAt = time.Now()
		updated++
	}
	return updated, nil
}

func (m *MockArticleRepository) UpdateMetrics(ctx context.Context, id string, metrics models.ContentMetrics) error {
	m.UpdateMetricsCalls++
	if err := m.MetricsError[id]; err != nil {
		return err
	}
	a := m.Articles[id]
	a.WordCount = metrics.WordCount
	a.ReadingTime = metrics.ReadingTime
	a.InternalLinks = metrics.InternalLinks
	a.ExternalLinks = metrics.ExternalLinks
	a.UpdatedAt = time.Now()
	return nil
}

func (m *MockArticleRepository) SetPrimaryCategory(ctx context.Context, id string, categoryID *string) error {
	m.SetPrimaryCalls++
	a := m.Articles[id]
	a.PrimaryCategoryID = categoryID
	a.UpdatedAt = time.Now()
	return nil
}

func (m *MockArticleRepository) TouchUpdated(ctx context.Context, id string) error {
	m.TouchCalls++
	if a, ok := m.Articles[id]; ok {
		a.UpdatedAt = time.Now()
	}
	return nil
}

func (m *MockArticleRepository) Delete(ctx context.Context, id string) error {
	delete(m.Articles, id)
	for i, oid := range m.Order {
		if oid == id {
			m.Order = append(m.Order[:i], m.Order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MockArticleRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	m.SlugProbeCalls++
	for _, a := range m.Articles {
		if a.Slug == slug && a.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockArticleRepository) ListContent(ctx context.Context, offset, limit int) ([]*models.Article, error) {
	if offset >= len(m.Order) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.Order) {
		end = len(m.Order)
	}
	var batch []*models.Article
	for _, id := range m.Order[offset:end] {
		batch = append(batch, m.Articles[id])
	}
	return batch, nil
}

func (m *MockArticleRepository) Count(ctx context.Context) (int, error) {
	return len(m.Articles), nil
}

// MockAssociationRepository is a mock implementation of AssociationRepository
type MockAssociationRepository struct {
	Rows map[string]map[string]bool // article id -> entity id set

	ListError   error
	AddError    error
	RemoveError error

	ListCalls   int
	AddCalls    int
	RemoveCalls int
	AddedRows   int
	RemovedRows int
}

func NewMockAssociationRepository() *MockAssociationRepository {
	return &MockAssociationRepository{
		Rows: make(map[string]map[string]bool),
	}
}

func (m *MockAssociationRepository) ListEntityIDs(ctx context.Context, articleID string) ([]string, error) {
	m.ListCalls++
	if m.ListError != nil {
		return nil, m.ListError
	}
	var ids []string
	for id := range m.Rows[articleID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MockAssociationRepository) Add(ctx context.Context, articleID string, entityIDs []string) error {
	if len(entityIDs) == 0 {
		return nil
	}
	m.AddCalls++
	if m.AddError != nil {
		return m.AddError
	}
	if m.Rows[articleID] == nil {
		m.Rows[articleID] = make(map[string]bool)
	}
	for _, id := range entityIDs {
		if !m.Rows[articleID][id] {
			m.Rows[articleID][id] = true
			m.AddedRows++
		}
	}
	return nil
}

func (m *MockAssociationRepository) Remove(ctx context.Context, articleID string, entityIDs []string) error {
	if len(entityIDs) == 0 {
		return nil
	}
	m.RemoveCalls++
	if m.RemoveError != nil {
		return m.RemoveError
	}
	for _, id := range entityIDs {
		if m.Rows[articleID][id] {
			delete(m.Rows[articleID], id)
			m.RemovedRows++
		}
	}
	return nil
}

func (m *MockAssociationRepository) RemoveAll(ctx context.Context, articleID string) error {
	m.RemoveCalls++
	if m.RemoveError != nil {
		return m.RemoveError
	}
	m.RemovedRows += len(m.Rows[articleID])
	delete(m.Rows, articleID)
	return nil
}

// EntityIDs returns the current set for assertions
func (m *MockAssociationRepository) EntityIDs(articleID string) []string {
	var ids []string
	for id := range m.Rows[articleID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MockCategoryRepository is a mock implementation of CategoryRepository. It
// shares an association mock so junction reads reflect reconciled state.
type MockCategoryRepository struct {
	Categories map[string]models.Category
	Assoc      *MockAssociationRepository

	ByArticleCalls int
	ByIDsCalls     int
}

func NewMockCategoryRepository(assoc *MockAssociationRepository) *MockCategoryRepository {
	return &MockCategoryRepository{
		Categories: make(map[string]models.Category),
		Assoc:      assoc,
	}
}

func (m *MockCategoryRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Category, error) {
	m.ByIDsCalls++
	var out []models.Category
	for _, id := range ids {
		if c, ok := m.Categories[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockCategoryRepository) GetByArticleIDs(ctx context.Context, articleIDs []string) (map[string][]models.Category, error) {
	m.ByArticleCalls++
	result := make(map[string][]models.Category)
	for _, articleID := range articleIDs {
		for entityID := range m.Assoc.Rows[articleID] {
			if c, ok := m.Categories[entityID]; ok {
				result[articleID] = append(result[articleID], c)
			}
		}
	}
	return result, nil
}

func (m *MockCategoryRepository) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := m.Categories[id]
	return ok, nil
}

// MockTagRepository is a mock implementation of TagRepository
type MockTagRepository struct {
	Tags  map[string]*models.Tag // by id
	Assoc *MockAssociationRepository

	CreateError error

	ByArticleCalls  int
	ByNamesCalls    int
	TakenSlugsCalls int
	CreateCalls     int
}

func NewMockTagRepository(assoc *MockAssociationRepository) *MockTagRepository {
	return &MockTagRepository{
		Tags:  make(map[string]*models.Tag),
		Assoc: assoc,
	}
}

func (m *MockTagRepository) GetByNames(ctx context.Context, names []string) ([]models.Tag, error) {
	m.ByNamesCalls++
	var out []models.Tag
	for _, name := range names {
		for _, t := range m.Tags {
			if t.Name == name {
				out = append(out, *t)
				break
			}
		}
	}
	return out, nil
}

func (m *MockTagRepository) GetByArticleIDs(ctx context.Context, articleIDs []string) (map[string][]models.Tag, error) {
	m.ByArticleCalls++
	result := make(map[string][]models.Tag)
	for _, articleID := range articleIDs {
		for entityID := range m.Assoc.Rows[articleID] {
			if t, ok := m.Tags[entityID]; ok {
				result[articleID] = append(result[articleID], *t)
			}
		}
	}
	return result, nil
}

func (m *MockTagRepository) TakenSlugs(ctx context.Context, bases []string) (map[string]bool, error) {
	m.TakenSlugsCalls++
	taken := make(map[string]bool)
	for _, t := range m.Tags {
		for _, base := range bases {
			if t.Slug == base || strings.HasPrefix(t.Slug, base+"-") {
				taken[t.Slug] = true
			}
		}
	}
	return taken, nil
}

func (m *MockTagRepository) CreateBatch(ctx context.Context, tags []*models.Tag) error {
	m.CreateCalls++
	if m.CreateError != nil {
		return m.CreateError
	}
	for _, tag := range tags {
		conflict := false
		for _, existing := range m.Tags {
			if existing.Slug == tag.Slug {
				conflict = true
				break
			}
		}
		if conflict {
			continue // ON CONFLICT DO NOTHING
		}
		m.Tags[tag.ID] = tag
	}
	return nil
}

// TagByName returns a stored tag for assertions
func (m *MockTagRepository) TagByName(name string) *models.Tag {
	for _, t := range m.Tags {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	Users map[string]*models.User

	ByIDsCalls int
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Users: make(map[string]*models.User)}
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	m.ByIDsCalls++
	result := make(map[string]*models.User)
	for _, id := range ids {
		if u, ok := m.Users[id]; ok {
			result[id] = u
		}
	}
	return result, nil
}

func (m *MockUserRepository) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := m.Users[id]
	return ok, nil
}
