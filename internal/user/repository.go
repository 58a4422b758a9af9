// File: internal/user/repository.go
package user

import (
	"context"
	"errors"

	"mugo_plumbing_backend/internal/common"

	"gorm.io/gorm"
)

// Repository defines the interface for profile data operations.
type Repository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, id string, patch Patch) (*User, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM user repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// FindByID retrieves a profile by principal uid.
func (r *gormRepository) FindByID(ctx context.Context, id string) (*User, error) {
	var userModel User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&userModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("User not found with this ID.")
		}
		return nil, common.RemoteFailure("get user", err)
	}
	return &userModel, nil
}

// Update applies the non-nil fields of patch and returns the stored profile.
func (r *gormRepository) Update(ctx context.Context, id string, patch Patch) (*User, error) {
	updates := map[string]interface{}{"updated_at": patch.UpdatedAt}
	if patch.DisplayName != nil {
		updates["display_name"] = *patch.DisplayName
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}
	if patch.Location != nil {
		updates["location"] = *patch.Location
	}
	if patch.BusinessName != nil {
		updates["business_name"] = *patch.BusinessName
	}
	if patch.ServiceArea != nil {
		updates["service_area"] = *patch.ServiceArea
	}
	if patch.Experience != nil {
		updates["experience"] = *patch.Experience
	}

	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, common.RemoteFailure("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, common.ErrNotFound.WithDetails("User not found with this ID.")
	}
	return r.FindByID(ctx, id)
}
