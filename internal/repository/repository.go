package repository

import (
	"context"
	"time"

	"github.com/content-management-api/internal/database"
	"github.com/content-management-api/internal/models"
)

// ArticleRepository defines the interface for article data operations
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	GetByID(ctx context.Context, id string) (*models.Article, error)
	GetBySlug(ctx context.Context, slug string) (*models.Article, error)
	List(ctx context.Context, page, pageSize int, filters models.ListFilters) ([]*models.Article, int, error)
	Update(ctx context.Context, article *models.Article) error
	UpdateStatus(ctx context.Context, id, status string, publishedAt *time.Time) error
	BulkUpdateStatus(ctx context.Context, ids []string, status string, publishedAt *time.Time) (int, error)
	UpdateMetrics(ctx context.Context, id string, metrics models.ContentMetrics) error
	SetPrimaryCategory(ctx context.Context, id string, categoryID *string) error
	TouchUpdated(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	ListContent(ctx context.Context, offset, limit int) ([]*models.Article, error)
	Count(ctx context.Context) (int, error)
}

// CategoryRepository defines the interface for category data operations
type CategoryRepository interface {
	GetByIDs(ctx context.Context, ids []string) ([]models.Category, error)
	GetByArticleIDs(ctx context.Context, articleIDs []string) (map[string][]models.Category, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// TagRepository defines the interface for tag data operations
type TagRepository interface {
	GetByNames(ctx context.Context, names []string) ([]models.Tag, error)
	GetByArticleIDs(ctx context.Context, articleIDs []string) (map[string][]models.Tag, error)
	// TakenSlugs returns every existing tag slug that equals one of the given
	// bases or carries a numeric suffix of one, in a single query.
	TakenSlugs(ctx context.Context, bases []string) (map[string]bool, error)
	CreateBatch(ctx context.Context, tags []*models.Tag) error
}

// AssociationRepository defines the interface for a many-to-many join table
// between articles and a taxonomy entity (categories or tags).
type AssociationRepository interface {
	ListEntityIDs(ctx context.Context, articleID string) ([]string, error)
	Add(ctx context.Context, articleID string, entityIDs []string) error
	Remove(ctx context.Context, articleID string, entityIDs []string) error
	RemoveAll(ctx context.Context, articleID string) error
}

// UserRepository defines the interface for author lookups
type UserRepository interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article           ArticleRepository
	Category          CategoryRepository
	Tag               TagRepository
	User              UserRepository
	ArticleCategories AssociationRepository
	ArticleTags       AssociationRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Article:           NewArticleRepo(db),
		Category:          NewCategoryRepo(db),
		Tag:               NewTagRepo(db),
		User:              NewUserRepo(db),
		ArticleCategories: NewAssociationRepo(db, "article_categories", "category_id"),
		ArticleTags:       NewAssociationRepo(db, "article_tags", "tag_id"),
	}
}
