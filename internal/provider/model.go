// File: internal/provider/model.go
package provider

import (
	"time"

	"mugo_plumbing_backend/internal/common"

	"gorm.io/gorm"
)

// CollectionName is the document collection (and table) holding providers.
const CollectionName = "providers"

// MatchLimit caps the matching query.
const MatchLimit = 10

// Provider extends a provider profile. ID equals the user id.
type Provider struct {
	ID          string            `gorm:"primaryKey;type:varchar(128)" json:"id"`
	UserID      string            `gorm:"type:varchar(128);uniqueIndex;not null" json:"userId"`
	Services    common.StringList `gorm:"not null" json:"services"`
	Location    string            `gorm:"type:varchar(255)" json:"location"`
	Rating      float64           `gorm:"not null" json:"rating"`
	TotalJobs   int               `gorm:"not null" json:"totalJobs"`
	IsAvailable bool              `gorm:"not null;index" json:"isAvailable"`
	IsApproved  bool              `gorm:"not null;index" json:"isApproved"`
	HourlyRate  float64           `gorm:"not null" json:"hourlyRate"`
	Bio         *string           `gorm:"type:text" json:"bio,omitempty"`
	Documents   common.StringList `json:"documents,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;index" json:"createdAt"`
	UpdatedAt   time.Time         `gorm:"not null" json:"updatedAt"`
}

// TableName specifies the table name for the Provider model.
func (Provider) TableName() string {
	return CollectionName
}

// Eligible reports whether the provider may be assigned a booking for serviceID.
func (p *Provider) Eligible(serviceID string) bool {
	return p.IsAvailable && p.IsApproved && p.Services.Contains(serviceID)
}

// RecordCompletedJob folds an optional rating into the running average and counts the job.
// Without a rating the average is left as is.
func (p *Provider) RecordCompletedJob(rating *float64) {
	if rating != nil {
		p.Rating = (p.Rating*float64(p.TotalJobs) + *rating) / float64(p.TotalJobs+1)
	}
	p.TotalJobs++
}

// NewPending builds the provider record written at provider sign-up: unapproved,
// available, no jobs and no rating.
func NewPending(userID string, services []string, location string, hourlyRate float64, bio *string, now time.Time) *Provider {
	return &Provider{
		ID:          userID,
		UserID:      userID,
		Services:    common.StringList(services),
		Location:    location,
		IsAvailable: true,
		IsApproved:  false,
		HourlyRate:  hourlyRate,
		Bio:         bio,
		Documents:   common.StringList{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Patch lists the provider fields that may change outside of booking completion.
type Patch struct {
	Services       []string
	Location       *string
	HourlyRate     *float64
	Bio            *string
	IsAvailable    *bool
	IsApproved     *bool
	AppendDocument *string
	UpdatedAt      time.Time
}

// UpdateProviderRequest is the body of PATCH /providers/me.
type UpdateProviderRequest struct {
	Services   []string `json:"services" binding:"omitempty,min=1,dive,required,max=100"`
	Location   *string  `json:"location" binding:"omitempty,min=1,max=255"`
	HourlyRate *float64 `json:"hourlyRate" binding:"omitempty,gte=0"`
	Bio        *string  `json:"bio" binding:"omitempty,max=2000"`
}

// SetAvailabilityRequest is the body of PATCH /providers/me/availability.
type SetAvailabilityRequest struct {
	IsAvailable *bool `json:"isAvailable" binding:"required"`
}

// Migrate creates or updates the providers table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Provider{})
}
