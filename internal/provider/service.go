// File: internal/provider/service.go
package provider

import (
	"context"
	"mime/multipart"
	"strings"
	"time"

	"mugo_plumbing_backend/internal/catalog"
	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/user"

	"go.uber.org/zap"
)

// ProfileLookup reads the profile that owns a provider record.
type ProfileLookup interface {
	FindByID(ctx context.Context, id string) (*user.User, error)
}

// CatalogLookup resolves service ids.
type CatalogLookup interface {
	Get(ctx context.Context, id string) (*catalog.Entry, error)
}

// DocumentStore persists uploaded verification documents.
type DocumentStore interface {
	SaveUploadedFile(fileHeader *multipart.FileHeader, subDir string) (string, error)
	DeleteFile(relativePath string) error
}

// Service defines provider operations.
type Service interface {
	Get(ctx context.Context, id string) (*Provider, error)
	Update(ctx context.Context, id string, req UpdateProviderRequest) (*Provider, error)
	SetAvailability(ctx context.Context, id string, available bool) (*Provider, error)
	Approve(ctx context.Context, id string) (*Provider, error)
	FindAvailable(ctx context.Context, serviceID, location string) ([]Provider, error)
	ListPending(ctx context.Context) ([]Provider, error)
	AddDocument(ctx context.Context, id string, fileHeader *multipart.FileHeader) (*Provider, error)
	Search(ctx context.Context, q SearchQuery) ([]SearchDocument, error)
	Reindex(ctx context.Context, id string) error
	SyncSearchIndex(ctx context.Context) (int, error)
}

type service struct {
	repo     Repository
	profiles ProfileLookup
	catalog  CatalogLookup
	docs     DocumentStore
	index    SearchIndex
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new provider service.
func NewService(repo Repository, profiles ProfileLookup, catalog CatalogLookup, docs DocumentStore, index SearchIndex, logger *zap.Logger) Service {
	return &service{
		repo:     repo,
		profiles: profiles,
		catalog:  catalog,
		docs:     docs,
		index:    index,
		logger:   logger.Named("provider_service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Get(ctx context.Context, id string) (*Provider, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) Update(ctx context.Context, id string, req UpdateProviderRequest) (*Provider, error) {
	if req.Services != nil {
		services, err := ValidateServiceIDs(ctx, s.catalog, req.Services)
		if err != nil {
			return nil, err
		}
		req.Services = services
	}
	p, err := s.repo.Update(ctx, id, Patch{
		Services:   req.Services,
		Location:   req.Location,
		HourlyRate: req.HourlyRate,
		Bio:        req.Bio,
		UpdatedAt:  s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.syncIndex(ctx, p)
	return p, nil
}

// ValidateServiceIDs checks every id against the catalog and drops duplicates.
func ValidateServiceIDs(ctx context.Context, lookup CatalogLookup, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, common.FieldValidationError("services", "At least one service is required.")
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" || seen[id] {
			continue
		}
		if _, err := lookup.Get(ctx, id); err != nil {
			if apiErr, ok := common.IsAPIError(err); ok && apiErr.Code == common.ErrNotFound.Code {
				return nil, common.FieldValidationError("services", "Unknown service: "+id)
			}
			return nil, err
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, common.FieldValidationError("services", "At least one service is required.")
	}
	return out, nil
}

func (s *service) SetAvailability(ctx context.Context, id string, available bool) (*Provider, error) {
	p, err := s.repo.Update(ctx, id, Patch{IsAvailable: &available, UpdatedAt: s.now()})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Provider availability changed", zap.String("providerID", id), zap.Bool("available", available))
	s.syncIndex(ctx, p)
	return p, nil
}

// Approve marks the provider approved. Approving twice is a no-op.
func (s *service) Approve(ctx context.Context, id string) (*Provider, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.IsApproved {
		return current, nil
	}
	approved := true
	p, err := s.repo.Update(ctx, id, Patch{IsApproved: &approved, UpdatedAt: s.now()})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Provider approved", zap.String("providerID", id))
	s.syncIndex(ctx, p)
	return p, nil
}

// FindAvailable is the matching query: up to MatchLimit approved, available providers
// offering serviceID, best rated first. location is accepted but does not filter.
func (s *service) FindAvailable(ctx context.Context, serviceID, location string) ([]Provider, error) {
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return nil, common.FieldValidationError("serviceId", "The serviceId field is required.")
	}
	providers, err := s.repo.FindAvailable(ctx, serviceID, MatchLimit)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Matching query", zap.String("serviceID", serviceID), zap.String("location", location), zap.Int("matches", len(providers)))
	return providers, nil
}

func (s *service) ListPending(ctx context.Context) ([]Provider, error) {
	return s.repo.ListPending(ctx)
}

// AddDocument stores an uploaded verification document and records its path.
func (s *service) AddDocument(ctx context.Context, id string, fileHeader *multipart.FileHeader) (*Provider, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	rel, err := s.docs.SaveUploadedFile(fileHeader, "providers/"+id)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.Update(ctx, id, Patch{AppendDocument: &rel, UpdatedAt: s.now()})
	if err != nil {
		if delErr := s.docs.DeleteFile(rel); delErr != nil {
			s.logger.Error("Failed to remove orphaned document", zap.String("path", rel), zap.Error(delErr))
		}
		return nil, err
	}
	s.logger.Info("Provider document stored", zap.String("providerID", id), zap.String("path", rel))
	return p, nil
}

func (s *service) Search(ctx context.Context, q SearchQuery) ([]SearchDocument, error) {
	return s.index.Search(ctx, q)
}

// Reindex refreshes one provider in the search index.
func (s *service) Reindex(ctx context.Context, id string) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.index.Index(ctx, NewSearchDocument(p, s.profileFor(ctx, p.UserID)))
}

// SyncSearchIndex bulk indexes every provider.
func (s *service) SyncSearchIndex(ctx context.Context) (int, error) {
	providers, err := s.repo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	docs := make([]SearchDocument, 0, len(providers))
	for i := range providers {
		docs = append(docs, NewSearchDocument(&providers[i], s.profileFor(ctx, providers[i].UserID)))
	}
	n, err := s.index.BulkIndex(ctx, docs)
	if err != nil {
		return n, err
	}
	s.logger.Info("Provider search index synced", zap.Int("count", n))
	return n, nil
}

func (s *service) profileFor(ctx context.Context, userID string) *user.User {
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		s.logger.Debug("Indexing provider without profile", zap.String("userID", userID), zap.Error(err))
		return nil
	}
	return profile
}

// syncIndex keeps search in step with a write; the write itself has already succeeded.
func (s *service) syncIndex(ctx context.Context, p *Provider) {
	if err := s.index.Index(ctx, NewSearchDocument(p, s.profileFor(ctx, p.UserID))); err != nil {
		s.logger.Warn("Failed to update provider search index", zap.String("providerID", p.ID), zap.Error(err))
	}
}
