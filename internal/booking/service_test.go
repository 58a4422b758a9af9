package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"mugo_plumbing_backend/internal/catalog"
	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/config"
	"mugo_plumbing_backend/internal/platform/database"
	"mugo_plumbing_backend/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubCatalog map[string]bool

func (s stubCatalog) Get(_ context.Context, id string) (*catalog.Entry, error) {
	active, ok := s[id]
	if !ok {
		return nil, common.ErrNotFound.WithDetails("Service not found.")
	}
	return &catalog.Entry{ID: id, Name: "Service " + id, IsActive: active}, nil
}

type recordingIndexer struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingIndexer) Reindex(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return nil
}

type BookingServiceSuite struct {
	suite.Suite
	db        *gorm.DB
	repo      Repository
	providers provider.Repository
	indexer   *recordingIndexer
	svc       *service
	clock     time.Time
}

func TestBookingServiceSuite(t *testing.T) {
	suite.Run(t, new(BookingServiceSuite))
}

func (s *BookingServiceSuite) SetupTest() {
	db, err := database.OpenSQLite(":memory:", "silent")
	s.Require().NoError(err)
	s.Require().NoError(Migrate(db))
	s.Require().NoError(provider.Migrate(db))
	s.db = db

	s.repo = NewGORMRepository(db)
	s.providers = provider.NewGORMRepository(db)
	s.indexer = &recordingIndexer{}
	cfg := &config.Config{BookingScheduleGrace: 15 * time.Minute, BookingPendingExpiry: 48 * time.Hour}
	s.svc = NewService(s.repo, stubCatalog{"drain": true, "leak": true, "remodel": false}, s.indexer, cfg, zap.NewNop()).(*service)
	s.clock = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	s.svc.now = func() time.Time { return s.clock }
}

func (s *BookingServiceSuite) TearDownTest() {
	database.CloseGORMDB(s.db)
}

func (s *BookingServiceSuite) seedProvider(id string, rating float64, jobs int, available, approved bool, services ...string) {
	p := provider.NewPending(id, services, "Harare", 30, nil, s.clock)
	p.Rating = rating
	p.TotalJobs = jobs
	p.IsAvailable = available
	p.IsApproved = approved
	s.Require().NoError(s.providers.Create(context.Background(), p))
}

func (s *BookingServiceSuite) drainRequest() CreateBookingRequest {
	return CreateBookingRequest{
		ServiceID:     "drain",
		Description:   "Kitchen sink blocked",
		Location:      "Harare",
		Budget:        85,
		ScheduledDate: s.clock.Add(24 * time.Hour),
	}
}

func (s *BookingServiceSuite) create(clientID string) *Booking {
	b, err := s.svc.CreateBooking(context.Background(), clientID, s.drainRequest())
	s.Require().NoError(err)
	return b
}

func (s *BookingServiceSuite) TestFullLifecycle() {
	ctx := context.Background()
	s.seedProvider("p1", 4.5, 3, true, true, "drain")

	b := s.create("c1")
	s.Equal(StatusPending, b.Status)
	s.Nil(b.ProviderID)
	s.Equal("Service drain", b.ServiceName)
	s.Equal(UrgencyNormal, b.Urgency)
	s.Len(b.ID, 20)

	s.clock = s.clock.Add(time.Minute)
	b, err := s.svc.AssignProvider(ctx, b.ID, "p1")
	s.Require().NoError(err)
	s.Equal(StatusAssigned, b.Status)
	s.Require().NotNil(b.ProviderID)
	s.Equal("p1", *b.ProviderID)

	_, err = s.svc.UpdateStatus(ctx, b.ID, StatusInProgress, nil)
	s.Require().NoError(err)

	rating := 5.0
	s.clock = s.clock.Add(time.Hour)
	b, err = s.svc.UpdateStatus(ctx, b.ID, StatusCompleted, &rating)
	s.Require().NoError(err)
	s.Equal(StatusCompleted, b.Status)
	s.True(b.UpdatedAt.Equal(s.clock))

	p, err := s.providers.FindByID(ctx, "p1")
	s.Require().NoError(err)
	s.InDelta(4.625, p.Rating, 1e-9)
	s.Equal(4, p.TotalJobs)

	stored, err := s.repo.FindByID(ctx, b.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.Rating)
	s.Equal(5.0, *stored.Rating)
	s.Equal([]string{"p1"}, s.indexer.ids)
}

func (s *BookingServiceSuite) TestCompletionWithoutRatingKeepsAverage() {
	ctx := context.Background()
	s.seedProvider("p1", 4.0, 2, true, true, "drain")
	b := s.create("c1")
	_, err := s.svc.AssignProvider(ctx, b.ID, "p1")
	s.Require().NoError(err)
	_, err = s.svc.UpdateStatus(ctx, b.ID, StatusInProgress, nil)
	s.Require().NoError(err)
	_, err = s.svc.UpdateStatus(ctx, b.ID, StatusCompleted, nil)
	s.Require().NoError(err)

	p, err := s.providers.FindByID(ctx, "p1")
	s.Require().NoError(err)
	s.Equal(4.0, p.Rating)
	s.Equal(3, p.TotalJobs)
}

func (s *BookingServiceSuite) TestAssignProvider_NotEligible() {
	ctx := context.Background()
	s.seedProvider("unavailable", 5, 0, false, true, "drain")
	s.seedProvider("unapproved", 5, 0, true, false, "drain")
	s.seedProvider("wrong-service", 5, 0, true, true, "leak")

	for _, id := range []string{"unavailable", "unapproved", "wrong-service"} {
		s.Run(id, func() {
			b := s.create("c1")
			_, err := s.svc.AssignProvider(ctx, b.ID, id)
			s.ErrorIs(err, common.ErrNotEligible)

			stored, err := s.repo.FindByID(ctx, b.ID)
			s.Require().NoError(err)
			s.Equal(StatusPending, stored.Status)
			s.Nil(stored.ProviderID)
		})
	}
}

func (s *BookingServiceSuite) TestAssignProvider_UnknownProvider() {
	b := s.create("c1")
	_, err := s.svc.AssignProvider(context.Background(), b.ID, "ghost")
	s.ErrorIs(err, common.ErrNotFound)
	_, err = s.svc.AssignProvider(context.Background(), b.ID, " ")
	s.ErrorIs(err, common.ErrValidation)
}

func (s *BookingServiceSuite) TestAssignProvider_SecondAssignFails() {
	ctx := context.Background()
	s.seedProvider("p1", 4, 0, true, true, "drain")
	s.seedProvider("p2", 4, 0, true, true, "drain")
	b := s.create("c1")

	_, err := s.svc.AssignProvider(ctx, b.ID, "p1")
	s.Require().NoError(err)
	_, err = s.svc.AssignProvider(ctx, b.ID, "p2")
	s.ErrorIs(err, common.ErrInvalidTransition)

	stored, err := s.repo.FindByID(ctx, b.ID)
	s.Require().NoError(err)
	s.Equal("p1", *stored.ProviderID)
}

func (s *BookingServiceSuite) TestAssignProvider_Concurrent() {
	ctx := context.Background()
	s.seedProvider("p1", 4, 0, true, true, "drain")
	s.seedProvider("p2", 4, 0, true, true, "drain")
	b := s.create("c1")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"p1", "p2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = s.svc.AssignProvider(ctx, b.ID, id)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, common.ErrInvalidTransition)
	}
	s.Equal(1, succeeded)
}

func (s *BookingServiceSuite) TestCancelledIsAbsorbing() {
	ctx := context.Background()
	s.seedProvider("p1", 4, 0, true, true, "drain")
	b := s.create("c1")
	cancelled, err := s.svc.UpdateStatus(ctx, b.ID, StatusCancelled, nil)
	s.Require().NoError(err)

	s.clock = s.clock.Add(time.Hour)
	for _, next := range []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled} {
		_, err := s.svc.UpdateStatus(ctx, b.ID, next, nil)
		s.ErrorIs(err, common.ErrInvalidTransition, "target %s", next)
	}
	_, err = s.svc.AssignProvider(ctx, b.ID, "p1")
	s.ErrorIs(err, common.ErrInvalidTransition)

	stored, err := s.repo.FindByID(ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(StatusCancelled, stored.Status)
	s.Nil(stored.ProviderID)
	s.True(stored.UpdatedAt.Equal(cancelled.UpdatedAt))
}

func (s *BookingServiceSuite) TestCompletedIsAbsorbing() {
	ctx := context.Background()
	s.seedProvider("p1", 0, 0, true, true, "drain")
	b := s.create("c1")
	_, err := s.svc.AssignProvider(ctx, b.ID, "p1")
	s.Require().NoError(err)
	_, err = s.svc.UpdateStatus(ctx, b.ID, StatusInProgress, nil)
	s.Require().NoError(err)
	_, err = s.svc.UpdateStatus(ctx, b.ID, StatusCompleted, nil)
	s.Require().NoError(err)

	_, err = s.svc.UpdateStatus(ctx, b.ID, StatusCancelled, nil)
	s.ErrorIs(err, common.ErrInvalidTransition)
	rating := 4.0
	_, err = s.svc.UpdateStatus(ctx, b.ID, StatusCompleted, &rating)
	s.ErrorIs(err, common.ErrInvalidTransition)

	p, err := s.providers.FindByID(ctx, "p1")
	s.Require().NoError(err)
	s.Equal(1, p.TotalJobs)
}

func (s *BookingServiceSuite) TestCancelAfterAssignmentKeepsProvider() {
	ctx := context.Background()
	s.seedProvider("p1", 4, 1, true, true, "drain")
	b := s.create("c1")
	_, err := s.svc.AssignProvider(ctx, b.ID, "p1")
	s.Require().NoError(err)

	cancelled, err := s.svc.UpdateStatus(ctx, b.ID, StatusCancelled, nil)
	s.Require().NoError(err)
	s.Equal("p1", *cancelled.ProviderID)

	p, err := s.providers.FindByID(ctx, "p1")
	s.Require().NoError(err)
	s.Equal(1, p.TotalJobs)
}

func (s *BookingServiceSuite) TestSkippingStatesIsInvalid() {
	ctx := context.Background()
	s.seedProvider("p1", 4, 0, true, true, "drain")
	b := s.create("c1")

	_, err := s.svc.UpdateStatus(ctx, b.ID, StatusInProgress, nil)
	s.ErrorIs(err, common.ErrInvalidTransition)
	_, err = s.svc.UpdateStatus(ctx, b.ID, StatusCompleted, nil)
	s.ErrorIs(err, common.ErrInvalidTransition)

	_, err = s.svc.AssignProvider(ctx, b.ID, "p1")
	s.Require().NoError(err)
	_, err = s.svc.UpdateStatus(ctx, b.ID, StatusCompleted, nil)
	s.ErrorIs(err, common.ErrInvalidTransition)
}

func (s *BookingServiceSuite) TestUpdateStatus_InputValidation() {
	b := s.create("c1")
	rating := 4.0
	tooHigh := 6.0
	tests := []struct {
		name   string
		status Status
		rating *float64
	}{
		{"unknown status", "archived", nil},
		{"assign through status", StatusAssigned, nil},
		{"rating on cancel", StatusCancelled, &rating},
		{"rating out of range", StatusCompleted, &tooHigh},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.svc.UpdateStatus(context.Background(), b.ID, tt.status, tt.rating)
			s.ErrorIs(err, common.ErrValidation)
		})
	}
	_, err := s.svc.UpdateStatus(context.Background(), "missing", StatusCancelled, nil)
	s.ErrorIs(err, common.ErrNotFound)
}

func (s *BookingServiceSuite) TestCreateBooking_Validation() {
	ctx := context.Background()
	tests := []struct {
		name     string
		clientID string
		mutate   func(r *CreateBookingRequest)
	}{
		{"missing client", "", func(r *CreateBookingRequest) {}},
		{"missing service", "c1", func(r *CreateBookingRequest) { r.ServiceID = "  " }},
		{"missing location", "c1", func(r *CreateBookingRequest) { r.Location = "" }},
		{"negative budget", "c1", func(r *CreateBookingRequest) { r.Budget = -1 }},
		{"missing date", "c1", func(r *CreateBookingRequest) { r.ScheduledDate = time.Time{} }},
		{"past date", "c1", func(r *CreateBookingRequest) { r.ScheduledDate = s.clock.Add(-time.Hour) }},
		{"unknown urgency", "c1", func(r *CreateBookingRequest) { r.Urgency = "asap" }},
		{"unknown service", "c1", func(r *CreateBookingRequest) { r.ServiceID = "roofing" }},
		{"inactive service", "c1", func(r *CreateBookingRequest) { r.ServiceID = "remodel" }},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := s.drainRequest()
			tt.mutate(&req)
			_, err := s.svc.CreateBooking(ctx, tt.clientID, req)
			s.ErrorIs(err, common.ErrValidation)
		})
	}

	list, err := s.svc.ListBookingsForClient(ctx, "c1")
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *BookingServiceSuite) TestCreateBooking_WithinGrace() {
	req := s.drainRequest()
	req.ScheduledDate = s.clock.Add(-10 * time.Minute)
	req.Urgency = UrgencyUrgent
	b, err := s.svc.CreateBooking(context.Background(), "c1", req)
	s.Require().NoError(err)
	s.Equal(UrgencyUrgent, b.Urgency)
}

func (s *BookingServiceSuite) TestListBookings_FilterAndOrder() {
	ctx := context.Background()
	s.seedProvider("p1", 4, 0, true, true, "drain")
	var c1 []string
	for i := 0; i < 6; i++ {
		client := "c1"
		if i%2 == 1 {
			client = "c2"
		}
		b := s.create(client)
		if client == "c1" {
			c1 = append(c1, b.ID)
		}
		s.clock = s.clock.Add(time.Minute)
	}
	_, err := s.svc.AssignProvider(ctx, c1[0], "p1")
	s.Require().NoError(err)

	list, err := s.svc.ListBookingsForClient(ctx, "c1")
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	for i := range list {
		s.Equal("c1", list[i].ClientID)
		if i > 0 {
			s.False(list[i].CreatedAt.After(list[i-1].CreatedAt))
		}
	}
	s.Equal(c1[2], list[0].ID)
	s.Equal(c1[0], list[2].ID)

	assigned, err := s.svc.ListBookingsForProvider(ctx, "p1")
	s.Require().NoError(err)
	s.Require().Len(assigned, 1)
	s.Equal(c1[0], assigned[0].ID)
}

func (s *BookingServiceSuite) TestExpireStalePending() {
	ctx := context.Background()
	s.seedProvider("p1", 4, 0, true, true, "drain")
	stale := s.create("c1")
	assigned := s.create("c1")
	_, err := s.svc.AssignProvider(ctx, assigned.ID, "p1")
	s.Require().NoError(err)

	s.clock = s.clock.Add(4 * 24 * time.Hour)
	fresh := s.create("c1")

	n, err := s.svc.ExpireStalePending(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	got, err := s.repo.FindByID(ctx, stale.ID)
	s.Require().NoError(err)
	s.Equal(StatusCancelled, got.Status)
	got, err = s.repo.FindByID(ctx, assigned.ID)
	s.Require().NoError(err)
	s.Equal(StatusAssigned, got.Status)
	got, err = s.repo.FindByID(ctx, fresh.ID)
	s.Require().NoError(err)
	s.Equal(StatusPending, got.Status)
}

func TestDoc_ToDomain(t *testing.T) {
	p1 := "p1"
	scheduled := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)
	b := &Booking{ClientID: "c1", ServiceID: "drain", Location: "Harare", Urgency: UrgencyNormal, Status: StatusAssigned, ProviderID: &p1, ScheduledDate: scheduled}
	got, err := NewDoc(b).ToDomain("b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", got.ID)
	assert.Equal(t, StatusAssigned, got.Status)

	legacy := NewDoc(b)
	legacy.Urgency = ""
	got, err = legacy.ToDomain("b1")
	require.NoError(t, err)
	assert.Equal(t, UrgencyNormal, got.Urgency)

	broken := []func(d *Doc){
		func(d *Doc) { d.ClientID = "" },
		func(d *Doc) { d.ServiceID = "" },
		func(d *Doc) { d.Status = "archived" },
		func(d *Doc) { d.ProviderID = nil },
		func(d *Doc) { d.Urgency = "asap" },
	}
	for _, mutate := range broken {
		d := NewDoc(b)
		mutate(d)
		_, err := d.ToDomain("b1")
		assert.ErrorIs(t, err, common.ErrRemoteFailure)
	}
}
