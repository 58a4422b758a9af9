// File: internal/user/model.go
package user

import (
	"time"

	"mugo_plumbing_backend/internal/shared"

	"gorm.io/gorm"
)

// CollectionName is the document collection (and table) holding profiles.
const CollectionName = "users"

// User is the application-owned profile of a principal. ID is the principal uid.
type User struct {
	ID           string      `gorm:"primaryKey;type:varchar(128)" json:"id"`
	Email        string      `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	DisplayName  string      `gorm:"type:varchar(255);not null" json:"displayName"`
	Role         shared.Role `gorm:"column:user_type;type:varchar(20);not null;index" json:"userType"`
	Phone        *string     `gorm:"type:varchar(50)" json:"phone,omitempty"`
	Location     *string     `gorm:"type:varchar(255)" json:"location,omitempty"`
	BusinessName *string     `gorm:"type:varchar(255)" json:"businessName,omitempty"`
	ServiceArea  *string     `gorm:"type:varchar(255)" json:"serviceArea,omitempty"`
	Experience   *string     `gorm:"type:varchar(100)" json:"experience,omitempty"`
	CreatedAt    time.Time   `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time   `gorm:"not null" json:"updatedAt"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return CollectionName
}

// Patch lists the profile fields a user may change. Nil fields are left alone.
type Patch struct {
	DisplayName  *string
	Phone        *string
	Location     *string
	BusinessName *string
	ServiceArea  *string
	Experience   *string
	UpdatedAt    time.Time
}

// UpdateUserRequest is the body of PATCH /users/me.
type UpdateUserRequest struct {
	DisplayName  *string `json:"displayName" binding:"omitempty,min=1,max=255"`
	Phone        *string `json:"phone" binding:"omitempty,max=50"`
	Location     *string `json:"location" binding:"omitempty,max=255"`
	BusinessName *string `json:"businessName" binding:"omitempty,max=255"`
	ServiceArea  *string `json:"serviceArea" binding:"omitempty,max=255"`
	Experience   *string `json:"experience" binding:"omitempty,max=100"`
}

func (r UpdateUserRequest) toPatch(now time.Time) Patch {
	return Patch{
		DisplayName:  r.DisplayName,
		Phone:        r.Phone,
		Location:     r.Location,
		BusinessName: r.BusinessName,
		ServiceArea:  r.ServiceArea,
		Experience:   r.Experience,
		UpdatedAt:    now,
	}
}

// Migrate creates or updates the users table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{})
}
