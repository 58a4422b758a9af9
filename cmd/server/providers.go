// File: cmd/server/providers.go
package main

import (
	"mugo_plumbing_backend/internal/app"
	"mugo_plumbing_backend/internal/auth"
	"mugo_plumbing_backend/internal/booking"
	"mugo_plumbing_backend/internal/catalog"
	"mugo_plumbing_backend/internal/jobs"
	"mugo_plumbing_backend/internal/provider"
	"mugo_plumbing_backend/internal/session"
	"mugo_plumbing_backend/internal/user"

	"go.uber.org/zap"
)

// application is everything main needs: the HTTP server plus the services the
// one-shot sub-commands drive.
type application struct {
	Server    *app.Server
	Logger    *zap.Logger
	Catalog   catalog.Service
	Providers provider.Service
	Bookings  booking.Service
	ExpiryJob *jobs.BookingExpiryJob
}

func provideUserRepository(s *app.Stores) user.Repository { return s.Users }

func provideProviderRepository(s *app.Stores) provider.Repository { return s.Providers }

func provideCatalogRepository(s *app.Stores) catalog.Repository { return s.Catalog }

func provideBookingRepository(s *app.Stores) booking.Repository { return s.Bookings }

func provideRegistrationStore(s *app.Stores) auth.RegistrationStore { return s.Registrations }

func provideProfileLoader(r user.Repository) session.ProfileLoader { return r }

func provideProfileLookup(r user.Repository) provider.ProfileLookup { return r }

func provideProviderCatalog(s catalog.Service) provider.CatalogLookup { return s }

func provideBookingCatalog(s catalog.Service) booking.CatalogLookup { return s }

func provideProviderIndexer(s provider.Service) booking.ProviderIndexer { return s }

func provideBookingExpirer(s booking.Service) jobs.BookingExpirer { return s }

