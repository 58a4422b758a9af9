// File: internal/booking/service.go
package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"mugo_plumbing_backend/internal/catalog"
	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/config"
	"mugo_plumbing_backend/internal/platform/crypto"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// CatalogLookup resolves the service a booking is for.
type CatalogLookup interface {
	Get(ctx context.Context, id string) (*catalog.Entry, error)
}

// ProviderIndexer refreshes a provider's search entry after its stats change.
type ProviderIndexer interface {
	Reindex(ctx context.Context, id string) error
}

// Service is the booking lifecycle manager.
type Service interface {
	CreateBooking(ctx context.Context, clientID string, req CreateBookingRequest) (*Booking, error)
	GetBooking(ctx context.Context, id string) (*Booking, error)
	ListBookingsForClient(ctx context.Context, clientID string) ([]Booking, error)
	ListBookingsForProvider(ctx context.Context, providerID string) ([]Booking, error)
	AssignProvider(ctx context.Context, bookingID, providerID string) (*Booking, error)
	UpdateStatus(ctx context.Context, bookingID string, next Status, rating *float64) (*Booking, error)
	ExpireStalePending(ctx context.Context) (int, error)
}

type service struct {
	repo          Repository
	catalog       CatalogLookup
	indexer       ProviderIndexer
	validate      *validator.Validate
	scheduleGrace time.Duration
	pendingExpiry time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewService creates the booking service.
func NewService(repo Repository, catalog CatalogLookup, indexer ProviderIndexer, cfg *config.Config, logger *zap.Logger) Service {
	v := validator.New()
	v.SetTagName("binding")
	return &service{
		repo:          repo,
		catalog:       catalog,
		indexer:       indexer,
		validate:      v,
		scheduleGrace: cfg.BookingScheduleGrace,
		pendingExpiry: cfg.BookingPendingExpiry,
		logger:        logger.Named("booking_service"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) CreateBooking(ctx context.Context, clientID string, req CreateBookingRequest) (*Booking, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, common.FieldValidationError("clientId", "The clientId field is required.")
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.Location = strings.TrimSpace(req.Location)
	req.Description = strings.TrimSpace(req.Description)
	if err := common.ValidateStruct(s.validate, req); err != nil {
		return nil, err
	}

	now := s.now()
	if req.ScheduledDate.Before(now.Add(-s.scheduleGrace)) {
		return nil, common.FieldValidationError("scheduledDate", "The scheduled date must not be in the past.")
	}
	urgency := req.Urgency
	if urgency == "" {
		urgency = UrgencyNormal
	}

	entry, err := s.catalog.Get(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.FieldValidationError("serviceId", "Unknown service: "+req.ServiceID)
		}
		return nil, err
	}
	if !entry.IsActive {
		return nil, common.FieldValidationError("serviceId", "The service is not currently offered.")
	}

	id, err := crypto.NewDocumentID()
	if err != nil {
		s.logger.Error("Failed to generate booking ID", zap.Error(err))
		return nil, err
	}
	b := &Booking{
		ID:            id,
		ClientID:      clientID,
		ServiceID:     entry.ID,
		ServiceName:   entry.Name,
		Description:   req.Description,
		Location:      req.Location,
		Budget:        req.Budget,
		Urgency:       urgency,
		Status:        StatusPending,
		ScheduledDate: req.ScheduledDate.UTC(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		s.logger.Error("Failed to create booking", zap.Error(err), zap.String("clientID", clientID))
		return nil, err
	}
	s.logger.Info("Booking created", zap.String("bookingID", b.ID), zap.String("clientID", clientID), zap.String("serviceID", b.ServiceID))
	return b, nil
}

func (s *service) GetBooking(ctx context.Context, id string) (*Booking, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) ListBookingsForClient(ctx context.Context, clientID string) ([]Booking, error) {
	return s.repo.ListByClient(ctx, clientID)
}

func (s *service) ListBookingsForProvider(ctx context.Context, providerID string) ([]Booking, error) {
	return s.repo.ListByProvider(ctx, providerID)
}

func invalidTransition(from, to Status) error {
	return common.ErrInvalidTransition.WithDetails("Cannot move a " + string(from) + " booking to " + string(to) + ".")
}

// AssignProvider moves a pending booking to assigned once the provider passes the
// eligibility check. The check and the write share one transaction.
func (s *service) AssignProvider(ctx context.Context, bookingID, providerID string) (*Booking, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, common.FieldValidationError("providerId", "The providerId field is required.")
	}

	b, err := s.repo.Mutate(ctx, bookingID, func(ctx context.Context, b *Booking, providers ProviderStore) error {
		if !b.Status.CanTransitionTo(StatusAssigned) {
			return invalidTransition(b.Status, StatusAssigned)
		}
		p, err := providers.Get(ctx, providerID)
		if err != nil {
			return err
		}
		if reasons := ineligibility(p.IsAvailable, p.IsApproved, p.Services.Contains(b.ServiceID)); len(reasons) > 0 {
			return common.ErrNotEligible.WithDetails(reasons)
		}
		b.ProviderID = &providerID
		b.Status = StatusAssigned
		b.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		s.logger.Warn("Provider assignment rejected", zap.String("bookingID", bookingID), zap.String("providerID", providerID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Provider assigned", zap.String("bookingID", bookingID), zap.String("providerID", providerID))
	return b, nil
}

func ineligibility(available, approved, offersService bool) []string {
	var reasons []string
	if !available {
		reasons = append(reasons, "provider is not available")
	}
	if !approved {
		reasons = append(reasons, "provider is not approved")
	}
	if !offersService {
		reasons = append(reasons, "provider does not offer this service")
	}
	return reasons
}

// UpdateStatus applies a provider or client driven transition. Completing a booking
// counts the job on the provider and folds the optional rating into its average in
// the same transaction.
func (s *service) UpdateStatus(ctx context.Context, bookingID string, next Status, rating *float64) (*Booking, error) {
	switch {
	case !next.Valid():
		return nil, common.FieldValidationError("status", "Unknown status: "+string(next))
	case next == StatusAssigned:
		return nil, common.FieldValidationError("status", "Use the assign operation to assign a provider.")
	case rating != nil && next != StatusCompleted:
		return nil, common.FieldValidationError("rating", "A rating can only be given when completing a booking.")
	case rating != nil && (*rating < 1 || *rating > 5):
		return nil, common.FieldValidationError("rating", "The rating must be between 1 and 5.")
	}

	b, err := s.repo.Mutate(ctx, bookingID, func(ctx context.Context, b *Booking, providers ProviderStore) error {
		if !b.Status.CanTransitionTo(next) {
			return invalidTransition(b.Status, next)
		}
		now := s.now()
		if next == StatusCompleted {
			p, err := providers.Get(ctx, *b.ProviderID)
			if err != nil {
				return err
			}
			p.RecordCompletedJob(rating)
			p.UpdatedAt = now
			if err := providers.Save(ctx, p); err != nil {
				return err
			}
			b.Rating = rating
		}
		b.Status = next
		b.UpdatedAt = now
		return nil
	})
	if err != nil {
		s.logger.Warn("Status change rejected", zap.String("bookingID", bookingID), zap.String("status", string(next)), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Booking status changed", zap.String("bookingID", bookingID), zap.String("status", string(next)))

	if next == StatusCompleted && s.indexer != nil {
		if err := s.indexer.Reindex(ctx, *b.ProviderID); err != nil {
			s.logger.Warn("Failed to reindex provider after completion", zap.String("providerID", *b.ProviderID), zap.Error(err))
		}
	}
	return b, nil
}

// ExpireStalePending cancels pending bookings whose scheduled date is older than the
// configured expiry. Bookings that change state in the meantime are skipped.
func (s *service) ExpireStalePending(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.pendingExpiry)
	stale, err := s.repo.ListPendingScheduledBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range stale {
		_, err := s.repo.Mutate(ctx, candidate.ID, func(_ context.Context, b *Booking, _ ProviderStore) error {
			if b.Status != StatusPending {
				return invalidTransition(b.Status, StatusCancelled)
			}
			b.Status = StatusCancelled
			b.UpdatedAt = s.now()
			return nil
		})
		if err != nil {
			if errors.Is(err, common.ErrInvalidTransition) {
				continue
			}
			return expired, err
		}
		expired++
	}
	if expired > 0 {
		s.logger.Info("Expired stale pending bookings", zap.Int("count", expired), zap.Time("cutoff", cutoff))
	}
	return expired, nil
}
