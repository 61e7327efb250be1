package service

import (
	"context"

	"github.com/content-management-api/internal/cache"
	"github.com/content-management-api/internal/config"
	"github.com/content-management-api/internal/models"
	"github.com/content-management-api/internal/repository"
	"github.com/rs/zerolog"
)

// ArticleService defines the operations exposed to transport layers
type ArticleService interface {
	List(ctx context.Context, page, pageSize int, filters models.ListFilters) (*models.ArticleList, error)
	GetByID(ctx context.Context, id string) (*models.Article, error)
	GetBySlug(ctx context.Context, slug string) (*models.Article, error)
	Create(ctx context.Context, input *models.ArticleInput, authorID string) (*models.Article, error)
	Update(ctx context.Context, id string, update *models.ArticleUpdate) (*models.Article, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Article, error)
	BulkUpdateStatus(ctx context.Context, ids []string, status string) (int, error)
	Delete(ctx context.Context, id string) error
	UpdateTags(ctx context.Context, id string, names []string) (*models.ReconcileResult, error)
	UpdateCategories(ctx context.Context, id string, categoryIDs []string) (*models.ReconcileResult, error)
	ValidateSlug(ctx context.Context, candidate, excludeID string) (string, bool, error)
	RecalculateReadingTime(ctx context.Context) (int, error)
}

// Services holds all service interfaces
type Services struct {
	Article ArticleService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, bus *cache.Bus, lists *cache.ListCache, log zerolog.Logger) *Services {
	return &Services{
		Article: newArticleService(repos, cfg, bus, lists, log),
	}
}
