// File: internal/catalog/repository.go
package catalog

import (
	"context"
	"errors"

	"mugo_plumbing_backend/internal/common"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for catalog data operations.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	Upsert(ctx context.Context, e *Entry) error
	FindByID(ctx context.Context, id string) (*Entry, error)
	ListActive(ctx context.Context) ([]Entry, error)
	SetActive(ctx context.Context, id string, active bool) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM catalog repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, e *Entry) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(e)
	if res.Error != nil {
		return common.RemoteFailure("create service", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrConflict.WithDetails("Service with this id already exists.")
	}
	return nil
}

func (r *gormRepository) Upsert(ctx context.Context, e *Entry) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(e).Error; err != nil {
		return common.RemoteFailure("upsert service", err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id string) (*Entry, error) {
	var e Entry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Service not found.")
		}
		return nil, common.RemoteFailure("get service", err)
	}
	return &e, nil
}

func (r *gormRepository) ListActive(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&entries).Error; err != nil {
		return nil, common.RemoteFailure("list services", err)
	}
	return entries, nil
}

func (r *gormRepository) SetActive(ctx context.Context, id string, active bool) error {
	res := r.db.WithContext(ctx).Model(&Entry{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return common.RemoteFailure("update service", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Service not found.")
	}
	return nil
}
