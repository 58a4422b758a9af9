// File: internal/booking/model.go
package booking

import (
	"time"

	"gorm.io/gorm"
)

// CollectionName is the document collection (and table) holding bookings.
const CollectionName = "bookings"

// Urgency of a booking as chosen in the booking wizard.
type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyUrgent Urgency = "urgent"
)

// Valid reports whether u is a known urgency.
func (u Urgency) Valid() bool {
	return u == UrgencyNormal || u == UrgencyUrgent
}

// Booking is a service request from a client.
type Booking struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ClientID      string    `gorm:"type:varchar(128);not null;index:idx_bookings_client_created,priority:1" json:"clientId"`
	ProviderID    *string   `gorm:"type:varchar(128);index:idx_bookings_provider_created,priority:1" json:"providerId,omitempty"`
	ServiceID     string    `gorm:"type:varchar(100);not null" json:"serviceId"`
	ServiceName   string    `gorm:"type:varchar(150)" json:"serviceName"`
	Description   string    `gorm:"type:text" json:"description"`
	Location      string    `gorm:"type:varchar(255);not null" json:"location"`
	Budget        float64   `gorm:"not null" json:"budget"`
	Urgency       Urgency   `gorm:"type:varchar(20);not null" json:"urgency"`
	Status        Status    `gorm:"type:varchar(20);not null;index" json:"status"`
	ScheduledDate time.Time `gorm:"not null;index" json:"scheduledDate"`
	Rating        *float64  `json:"rating,omitempty"`
	CreatedAt     time.Time `gorm:"not null;index:idx_bookings_client_created,priority:2;index:idx_bookings_provider_created,priority:2" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"not null" json:"updatedAt"`
}

// TableName specifies the table name for the Booking model.
func (Booking) TableName() string {
	return CollectionName
}

// CreateBookingRequest is the body of POST /bookings. The client is the caller.
type CreateBookingRequest struct {
	ServiceID     string    `json:"serviceId" binding:"required,max=100"`
	Description   string    `json:"description" binding:"max=2000"`
	Location      string    `json:"location" binding:"required,max=255"`
	Budget        float64   `json:"budget" binding:"gte=0"`
	ScheduledDate time.Time `json:"scheduledDate" binding:"required"`
	Urgency       Urgency   `json:"urgency" binding:"omitempty,oneof=normal urgent"`
}

// AssignProviderRequest is the body of POST /bookings/:id/assign.
type AssignProviderRequest struct {
	ProviderID string `json:"providerId" binding:"required,max=128"`
}

// UpdateStatusRequest is the body of PATCH /bookings/:id/status.
type UpdateStatusRequest struct {
	Status Status   `json:"status" binding:"required"`
	Rating *float64 `json:"rating" binding:"omitempty,gte=1,lte=5"`
}

// Migrate creates or updates the bookings table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Booking{})
}
