package catalog

import (
	"context"
	"strings"

	"github.com/ekrukov/slotbooking/internal/domain"
	"github.com/ekrukov/slotbooking/internal/repository"
)

type ServiceUseCase interface {
	ListActive(ctx context.Context) ([]domain.Service, error)
	GetByID(ctx context.Context, id int64) (*domain.Service, error)
	Create(ctx context.Context, input CreateServiceInput) (*domain.Service, error)
	Update(ctx context.Context, id int64, update repository.ServiceUpdate) (*domain.Service, error)
	Deactivate(ctx context.Context, id int64) (*domain.Service, error)
}

type Cache interface {
	GetActiveServices(ctx context.Context) ([]domain.Service, error)
	SetActiveServices(ctx context.Context, services []domain.Service) error
	InvalidateActiveServices(ctx context.Context) error
}

type CreateServiceInput struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	PriceCents      int64  `json:"price_cents"`
	DurationMinutes int    `json:"duration_minutes"`
}

type CatalogService struct {
	services repository.ServiceRepository
	cache    Cache
}

func NewCatalogService(services repository.ServiceRepository, cache Cache) *CatalogService {
	return &CatalogService{services: services, cache: cache}
}

func (s *CatalogService) ListActive(ctx context.Context) ([]domain.Service, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetActiveServices(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	services, err := s.services.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetActiveServices(ctx, services)
	}
	return services, nil
}

func (s *CatalogService) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	return s.services.GetByID(ctx, id)
}

func (s *CatalogService) Create(ctx context.Context, input CreateServiceInput) (*domain.Service, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domain.Errf(domain.KindInvalidInput, "title is required")
	}
	if input.DurationMinutes <= 0 {
		return nil, domain.Errf(domain.KindInvalidInput, "duration must be positive")
	}
	if input.PriceCents < 0 {
		return nil, domain.Errf(domain.KindInvalidInput, "price cannot be negative")
	}

	service := &domain.Service{
		Title:           title,
		Description:     strings.TrimSpace(input.Description),
		PriceCents:      input.PriceCents,
		DurationMinutes: input.DurationMinutes,
		IsActive:        true,
	}
	if err := s.services.Create(ctx, service); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return service, nil
}

func (s *CatalogService) Update(ctx context.Context, id int64, update repository.ServiceUpdate) (*domain.Service, error) {
	if update.DurationMinutes != nil && *update.DurationMinutes <= 0 {
		return nil, domain.Errf(domain.KindInvalidInput, "duration must be positive")
	}
	if update.PriceCents != nil && *update.PriceCents < 0 {
		return nil, domain.Errf(domain.KindInvalidInput, "price cannot be negative")
	}

	updated, err := s.services.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Deactivate hides the service from the catalog. Existing bookings keep
// their slots; only new creates are rejected.
func (s *CatalogService) Deactivate(ctx context.Context, id int64) (*domain.Service, error) {
	inactive := false
	return s.Update(ctx, id, repository.ServiceUpdate{IsActive: &inactive})
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.InvalidateActiveServices(ctx)
	}
}

var _ ServiceUseCase = (*CatalogService)(nil)
