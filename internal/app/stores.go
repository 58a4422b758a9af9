// File: internal/app/stores.go
package app

import (
	"fmt"

	"mugo_plumbing_backend/internal/auth"
	"mugo_plumbing_backend/internal/booking"
	"mugo_plumbing_backend/internal/catalog"
	"mugo_plumbing_backend/internal/config"
	"mugo_plumbing_backend/internal/firebase"
	"mugo_plumbing_backend/internal/platform/database"
	"mugo_plumbing_backend/internal/provider"
	"mugo_plumbing_backend/internal/user"

	firebasesdk "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Stores bundles the repositories of the backend selected by STORE_DRIVER.
type Stores struct {
	Users         user.Repository
	Providers     provider.Repository
	Catalog       catalog.Repository
	Bookings      booking.Repository
	Registrations auth.RegistrationStore
}

// NewStores opens the configured backend. Firestore shares the Firebase app used for
// identity; postgres and sqlite go through GORM and are migrated on start.
func NewStores(cfg *config.Config, app *firebasesdk.App, logger *zap.Logger) (*Stores, func(), error) {
	log := logger.Named("stores")
	switch cfg.StoreDriver {
	case config.StoreDriverFirestore:
		client, err := firebase.NewFirestoreClient(app, log)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				log.Warn("Failed to close Firestore client", zap.Error(err))
			}
		}
		log.Info("Using Firestore document store")
		return &Stores{
			Users:         user.NewFirestoreRepository(client),
			Providers:     provider.NewFirestoreRepository(client),
			Catalog:       catalog.NewFirestoreRepository(client),
			Bookings:      booking.NewFirestoreRepository(client),
			Registrations: auth.NewFirestoreRegistrationStore(client),
		}, cleanup, nil

	case config.StoreDriverPostgres, config.StoreDriverSQLite:
		db, err := database.NewGORM(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := Migrate(db); err != nil {
			database.CloseGORMDB(db)
			return nil, nil, err
		}
		log.Info("Using relational store", zap.String("driver", cfg.StoreDriver))
		return NewGORMStores(db), func() { database.CloseGORMDB(db) }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// NewGORMStores builds every repository on db.
func NewGORMStores(db *gorm.DB) *Stores {
	return &Stores{
		Users:         user.NewGORMRepository(db),
		Providers:     provider.NewGORMRepository(db),
		Catalog:       catalog.NewGORMRepository(db),
		Bookings:      booking.NewGORMRepository(db),
		Registrations: auth.NewGORMRegistrationStore(db),
	}
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	migrations := []struct {
		name string
		fn   func(*gorm.DB) error
	}{
		{"users", user.Migrate},
		{"services", catalog.Migrate},
		{"providers", provider.Migrate},
		{"bookings", booking.Migrate},
	}
	for _, m := range migrations {
		if err := m.fn(db); err != nil {
			return fmt.Errorf("migrate %s: %w", m.name, err)
		}
	}
	return nil
}

