// File: internal/auth/registration.go
package auth

import (
	"context"

	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/provider"
	"mugo_plumbing_backend/internal/user"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegistrationStore writes the documents created at sign-up. The profile and, for
// providers, the pending provider record land together or not at all.
type RegistrationStore interface {
	Register(ctx context.Context, profile *user.User, pending *provider.Provider) error
}

type gormRegistrationStore struct {
	db *gorm.DB
}

// NewGORMRegistrationStore creates a registration store on a relational backend.
func NewGORMRegistrationStore(db *gorm.DB) RegistrationStore {
	return &gormRegistrationStore{db: db}
}

func (s *gormRegistrationStore) Register(ctx context.Context, profile *user.User, pending *provider.Provider) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(profile)
		if res.Error != nil {
			return common.RemoteFailure("create profile", res.Error)
		}
		if res.RowsAffected == 0 {
			return common.ErrConflict.WithDetails("A profile already exists for this account.")
		}
		if pending == nil {
			return nil
		}
		return provider.NewGORMRepository(tx).Create(ctx, pending)
	})
}

type firestoreRegistrationStore struct {
	client *firestore.Client
}

// NewFirestoreRegistrationStore creates a registration store writing both documents
// in one Firestore transaction.
func NewFirestoreRegistrationStore(client *firestore.Client) RegistrationStore {
	return &firestoreRegistrationStore{client: client}
}

func (s *firestoreRegistrationStore) Register(ctx context.Context, profile *user.User, pending *provider.Provider) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(s.client.Collection(user.CollectionName).Doc(profile.ID), user.NewDoc(profile)); err != nil {
			return err
		}
		if pending != nil {
			return tx.Create(s.client.Collection(provider.CollectionName).Doc(pending.ID), provider.NewDoc(pending))
		}
		return nil
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return common.ErrConflict.WithDetails("A profile already exists for this account.")
		}
		return common.RemoteFailure("register profile", err)
	}
	return nil
}
