// File: internal/catalog/service.go
package catalog

import (
	"context"
	"strings"

	"mugo_plumbing_backend/internal/common"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// Service defines the interface for catalog business logic.
type Service interface {
	// Admin methods
	AdminCreate(ctx context.Context, req AdminCreateEntryRequest) (*Entry, error)
	AdminSetActive(ctx context.Context, id string, active bool) (*Entry, error)
	SeedDefaults(ctx context.Context) (int, error)

	// Public methods
	ListActive(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, id string) (*Entry, error)
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new catalog service.
func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger.Named("catalog_service"),
	}
}

func (s *service) AdminCreate(ctx context.Context, req AdminCreateEntryRequest) (*Entry, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = slug.Make(req.Name)
	} else {
		id = slug.Make(id)
	}
	if id == "" {
		return nil, common.FieldValidationError("id", "A service id could not be derived from the name.")
	}

	e := &Entry{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		PriceRange:  PriceRange{Min: req.MinPrice, Max: req.MaxPrice},
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		s.logger.Error("Failed to create service", zap.Error(err), zap.String("id", id))
		return nil, err
	}
	s.logger.Info("Service created", zap.String("id", e.ID), zap.String("name", e.Name))
	return e, nil
}

func (s *service) AdminSetActive(ctx context.Context, id string, active bool) (*Entry, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	s.logger.Info("Service availability changed", zap.String("id", id), zap.Bool("active", active))
	return s.repo.FindByID(ctx, id)
}

// SeedDefaults writes the default catalog, overwriting entries with the same ids.
func (s *service) SeedDefaults(ctx context.Context) (int, error) {
	entries := DefaultEntries()
	for i := range entries {
		if err := s.repo.Upsert(ctx, &entries[i]); err != nil {
			s.logger.Error("Failed to seed service", zap.String("id", entries[i].ID), zap.Error(err))
			return i, err
		}
	}
	s.logger.Info("Catalog seeded", zap.Int("count", len(entries)))
	return len(entries), nil
}

func (s *service) ListActive(ctx context.Context) ([]Entry, error) {
	return s.repo.ListActive(ctx)
}

func (s *service) Get(ctx context.Context, id string) (*Entry, error) {
	return s.repo.FindByID(ctx, id)
}
