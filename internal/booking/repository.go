// File: internal/booking/repository.go
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/platform/database"
	"mugo_plumbing_backend/internal/provider"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProviderStore reads and writes providers inside a booking mutation.
type ProviderStore interface {
	Get(ctx context.Context, id string) (*provider.Provider, error)
	Save(ctx context.Context, p *provider.Provider) error
}

// Mutation changes a booking in place. It runs inside a store transaction together
// with any provider writes it makes; returning an error aborts both.
type Mutation func(ctx context.Context, b *Booking, providers ProviderStore) error

// Repository defines the interface for booking data operations.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	FindByID(ctx context.Context, id string) (*Booking, error)
	ListByClient(ctx context.Context, clientID string) ([]Booking, error)
	ListByProvider(ctx context.Context, providerID string) ([]Booking, error)
	ListPendingScheduledBefore(ctx context.Context, cutoff time.Time) ([]Booking, error)
	// Mutate applies fn atomically. The write only lands if the booking still has the
	// status it had when read; otherwise the call fails with ErrInvalidTransition.
	Mutate(ctx context.Context, id string, fn Mutation) (*Booking, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a GORM booking repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, b *Booking) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return common.RemoteFailure("create booking", err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id string) (*Booking, error) {
	return findBooking(r.db.WithContext(ctx), id)
}

func findBooking(q *gorm.DB, id string) (*Booking, error) {
	var b Booking
	if err := q.Where("id = ?", id).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Booking not found.")
		}
		return nil, common.RemoteFailure("get booking", err)
	}
	if err := b.Validate(); err != nil {
		return nil, common.MalformedDocument(CollectionName, id, err.Error())
	}
	return &b, nil
}

func (r *gormRepository) ListByClient(ctx context.Context, clientID string) ([]Booking, error) {
	return r.list(ctx, "list client bookings", "client_id = ?", clientID)
}

func (r *gormRepository) ListByProvider(ctx context.Context, providerID string) ([]Booking, error) {
	return r.list(ctx, "list provider bookings", "provider_id = ?", providerID)
}

func (r *gormRepository) list(ctx context.Context, op, query string, arg interface{}) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Where(query, arg).
		Order("created_at DESC").
		Order("id DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, common.RemoteFailure(op, err)
	}
	return bookings, nil
}

func (r *gormRepository) ListPendingScheduledBefore(ctx context.Context, cutoff time.Time) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_date < ?", StatusPending, cutoff).
		Order("scheduled_date ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, common.RemoteFailure("list stale bookings", err)
	}
	return bookings, nil
}

func (r *gormRepository) Mutate(ctx context.Context, id string, fn Mutation) (*Booking, error) {
	var out *Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := findBooking(lockForUpdate(tx), id)
		if err != nil {
			return err
		}
		before := b.Status
		if err := fn(ctx, b, &gormProviderStore{tx: tx}); err != nil {
			return err
		}
		if err := b.Validate(); err != nil {
			return fmt.Errorf("booking %s: %w", id, err)
		}

		res := tx.Model(&Booking{}).
			Where("id = ? AND status = ?", id, before).
			Updates(map[string]interface{}{
				"status":      b.Status,
				"provider_id": b.ProviderID,
				"rating":      b.Rating,
				"updated_at":  b.UpdatedAt,
			})
		if res.Error != nil {
			return common.RemoteFailure("update booking", res.Error)
		}
		if res.RowsAffected == 0 {
			return common.ErrInvalidTransition.WithDetails("The booking was changed by another request.")
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if database.IsPostgres(tx) {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

type gormProviderStore struct {
	tx *gorm.DB
}

func (s *gormProviderStore) Get(ctx context.Context, id string) (*provider.Provider, error) {
	var p provider.Provider
	if err := lockForUpdate(s.tx.WithContext(ctx)).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Provider not found.")
		}
		return nil, common.RemoteFailure("get provider", err)
	}
	return &p, nil
}

func (s *gormProviderStore) Save(ctx context.Context, p *provider.Provider) error {
	if err := s.tx.WithContext(ctx).Save(p).Error; err != nil {
		return common.RemoteFailure("save provider", err)
	}
	return nil
}
