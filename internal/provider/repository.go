// File: internal/provider/repository.go
package provider

import (
	"context"
	"errors"
	"strings"

	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/platform/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for provider data operations.
type Repository interface {
	Create(ctx context.Context, p *Provider) error
	FindByID(ctx context.Context, id string) (*Provider, error)
	Update(ctx context.Context, id string, patch Patch) (*Provider, error)
	FindAvailable(ctx context.Context, serviceID string, limit int) ([]Provider, error)
	ListPending(ctx context.Context) ([]Provider, error)
	ListAll(ctx context.Context) ([]Provider, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a GORM provider repository. db may be a transaction.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, p *Provider) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p)
	if res.Error != nil {
		return common.RemoteFailure("create provider", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrConflict.WithDetails("Provider already exists for this user.")
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id string) (*Provider, error) {
	var p Provider
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Provider not found.")
		}
		return nil, common.RemoteFailure("get provider", err)
	}
	return &p, nil
}

func (r *gormRepository) Update(ctx context.Context, id string, patch Patch) (*Provider, error) {
	var out *Provider
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if database.IsPostgres(tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var p Provider
		if err := q.Where("id = ?", id).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrNotFound.WithDetails("Provider not found.")
			}
			return common.RemoteFailure("get provider", err)
		}
		applyPatch(&p, patch)
		if err := tx.Save(&p).Error; err != nil {
			return common.RemoteFailure("update provider", err)
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func applyPatch(p *Provider, patch Patch) {
	if patch.Services != nil {
		p.Services = common.StringList(patch.Services)
	}
	if patch.Location != nil {
		p.Location = *patch.Location
	}
	if patch.HourlyRate != nil {
		p.HourlyRate = *patch.HourlyRate
	}
	if patch.Bio != nil {
		p.Bio = patch.Bio
	}
	if patch.IsAvailable != nil {
		p.IsAvailable = *patch.IsAvailable
	}
	if patch.IsApproved != nil {
		p.IsApproved = *patch.IsApproved
	}
	if patch.AppendDocument != nil && !p.Documents.Contains(*patch.AppendDocument) {
		p.Documents = append(p.Documents, *patch.AppendDocument)
	}
	p.UpdatedAt = patch.UpdatedAt
}

func (r *gormRepository) FindAvailable(ctx context.Context, serviceID string, limit int) ([]Provider, error) {
	q := r.db.WithContext(ctx).Where("is_available = ? AND is_approved = ?", true, true)
	if database.IsPostgres(r.db) {
		q = q.Where("? = ANY(services)", serviceID)
	} else {
		q = q.Where(`services LIKE ? ESCAPE '\'`, "%"+likeEscape(quoteArrayElement(serviceID))+"%")
	}

	var providers []Provider
	if err := q.Order("rating DESC").Order("id DESC").Limit(limit).Find(&providers).Error; err != nil {
		return nil, common.RemoteFailure("find available providers", err)
	}
	return providers, nil
}

// quoteArrayElement renders s the way pq.StringArray writes an element.
func quoteArrayElement(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func likeEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *gormRepository) ListPending(ctx context.Context) ([]Provider, error) {
	var providers []Provider
	if err := r.db.WithContext(ctx).Where("is_approved = ?", false).Order("created_at DESC").Find(&providers).Error; err != nil {
		return nil, common.RemoteFailure("list pending providers", err)
	}
	return providers, nil
}

func (r *gormRepository) ListAll(ctx context.Context) ([]Provider, error) {
	var providers []Provider
	if err := r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&providers).Error; err != nil {
		return nil, common.RemoteFailure("list providers", err)
	}
	return providers, nil
}
