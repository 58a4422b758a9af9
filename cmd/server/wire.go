// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"mugo_plumbing_backend/internal/app"
	"mugo_plumbing_backend/internal/auth"
	"mugo_plumbing_backend/internal/booking"
	"mugo_plumbing_backend/internal/catalog"
	"mugo_plumbing_backend/internal/config"
	"mugo_plumbing_backend/internal/filestorage"
	"mugo_plumbing_backend/internal/firebase"
	"mugo_plumbing_backend/internal/jobs"
	"mugo_plumbing_backend/internal/middleware"
	"mugo_plumbing_backend/internal/platform/elasticsearch"
	"mugo_plumbing_backend/internal/platform/logger"
	"mugo_plumbing_backend/internal/provider"
	"mugo_plumbing_backend/internal/session"
	"mugo_plumbing_backend/internal/shared"
	"mugo_plumbing_backend/internal/user"

	"github.com/google/wire"
)

// initializeApplication is the main Wire injector.
func initializeApplication(cfg *config.Config) (*application, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		elasticsearch.NewClient,
		filestorage.NewFileStorageService,
		wire.Bind(new(provider.DocumentStore), new(*filestorage.FileStorageService)),

		// Identity provider
		firebase.NewApp,
		firebase.NewFirebaseService,
		wire.Bind(new(shared.PrincipalSource), new(*firebase.FirebaseService)),
		wire.Bind(new(auth.IdentityProvider), new(*firebase.FirebaseService)),
		wire.Bind(new(middleware.TokenVerifier), new(*firebase.FirebaseService)),

		// Storage backend selected by STORE_DRIVER
		app.NewStores,
		provideUserRepository,
		provideProviderRepository,
		provideCatalogRepository,
		provideBookingRepository,
		provideRegistrationStore,

		// Sessions
		provideProfileLoader,
		session.NewManager,
		wire.Bind(new(user.ProfileListener), new(*session.Manager)),

		// Domain services
		user.NewService,
		catalog.NewService,
		provideProviderCatalog,
		provideProfileLookup,
		provider.NewSearchIndex,
		provider.NewService,
		provideBookingCatalog,
		provideProviderIndexer,
		booking.NewService,
		auth.NewService,

		// Handlers
		user.NewHandler,
		auth.NewHandler,
		catalog.NewHandler,
		provider.NewHandler,
		booking.NewHandler,
		wire.Struct(new(app.Handlers), "*"),

		// Jobs
		provideBookingExpirer,
		jobs.NewBookingExpiryJob,

		// Application Layer
		app.NewServer,
		wire.Struct(new(application), "*"),
	)
	return nil, nil, nil
}
