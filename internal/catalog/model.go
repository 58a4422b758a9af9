// File: internal/catalog/model.go
package catalog

import (
	"gorm.io/gorm"
)

// CollectionName is the document collection (and table) holding the catalog.
const CollectionName = "services"

// PriceRange is the indicative price band of a service.
type PriceRange struct {
	Min float64 `gorm:"column:min;not null" json:"min"`
	Max float64 `gorm:"column:max;not null" json:"max"`
}

// Entry is one catalog service. ID is a slug such as "drain".
type Entry struct {
	ID          string     `gorm:"primaryKey;type:varchar(100)" json:"id"`
	Name        string     `gorm:"type:varchar(150);not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	Category    string     `gorm:"type:varchar(100);index" json:"category"`
	PriceRange  PriceRange `gorm:"embedded;embeddedPrefix:price_" json:"priceRange"`
	IsActive    bool       `gorm:"not null;index" json:"isActive"`
}

// TableName specifies the table name for the Entry model.
func (Entry) TableName() string {
	return CollectionName
}

// AdminCreateEntryRequest is the body of POST /admin/services.
type AdminCreateEntryRequest struct {
	ID          string  `json:"id" binding:"omitempty,max=100"`
	Name        string  `json:"name" binding:"required,max=150"`
	Description string  `json:"description" binding:"max=1000"`
	Category    string  `json:"category" binding:"required,max=100"`
	MinPrice    float64 `json:"minPrice" binding:"gte=0"`
	MaxPrice    float64 `json:"maxPrice" binding:"gte=0,gtefield=MinPrice"`
}

// SetActiveRequest is the body of PATCH /admin/services/:id/active.
type SetActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// DefaultEntries is the catalog shipped with the app.
func DefaultEntries() []Entry {
	return []Entry{
		{ID: "emergency", Name: "Emergency Plumbing", Description: "24/7 emergency repairs", Category: "repair", PriceRange: PriceRange{Min: 80, Max: 250}, IsActive: true},
		{ID: "installation", Name: "Pipe Installation", Description: "New pipe systems", Category: "installation", PriceRange: PriceRange{Min: 100, Max: 500}, IsActive: true},
		{ID: "drain", Name: "Drain Cleaning", Description: "Clogged drains & sewers", Category: "maintenance", PriceRange: PriceRange{Min: 50, Max: 150}, IsActive: true},
		{ID: "heater", Name: "Water Heater", Description: "Repair & installation", Category: "installation", PriceRange: PriceRange{Min: 120, Max: 600}, IsActive: true},
		{ID: "leak", Name: "Leak Detection", Description: "Find & fix leaks", Category: "repair", PriceRange: PriceRange{Min: 60, Max: 200}, IsActive: true},
		{ID: "remodel", Name: "Bathroom Remodel", Description: "Complete renovations", Category: "renovation", PriceRange: PriceRange{Min: 1000, Max: 8000}, IsActive: true},
	}
}

// Migrate creates or updates the services table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Entry{})
}
