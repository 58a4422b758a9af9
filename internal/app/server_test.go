package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mugo_plumbing_backend/internal/auth"
	"mugo_plumbing_backend/internal/booking"
	"mugo_plumbing_backend/internal/catalog"
	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/config"
	"mugo_plumbing_backend/internal/firebase"
	"mugo_plumbing_backend/internal/jobs"
	"mugo_plumbing_backend/internal/platform/database"
	"mugo_plumbing_backend/internal/provider"
	"mugo_plumbing_backend/internal/session"
	"mugo_plumbing_backend/internal/shared"
	"mugo_plumbing_backend/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// tokenTable maps bearer tokens to principals.
type tokenTable map[string]shared.Principal

func (t tokenTable) VerifyIDToken(_ context.Context, idToken string) (*firebase.VerifiedToken, error) {
	p, ok := t[idToken]
	if !ok {
		return nil, common.ErrUnauthorized.WithDetails("Invalid or expired token.")
	}
	return &firebase.VerifiedToken{Principal: p, IssuedAt: time.Now().UTC()}, nil
}

// offlineIdentity backs the auth handler; the lifecycle test never signs in.
type offlineIdentity struct{}

func (offlineIdentity) SignUp(context.Context, string, string) (shared.Principal, error) {
	return shared.Principal{}, common.ErrServiceUnavailable
}

func (offlineIdentity) UpdateDisplayName(context.Context, string, string) error { return nil }

func (offlineIdentity) DeleteAccount(context.Context, string) error { return nil }

func (offlineIdentity) SignIn(context.Context, string, string) (*firebase.SignInResult, error) {
	return nil, common.ErrServiceUnavailable
}

func (offlineIdentity) SignOut(context.Context, shared.Principal) error { return nil }

func (offlineIdentity) SendPasswordReset(context.Context, string) error { return nil }

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Code   string          `json:"code"`
}

type ServerTestSuite struct {
	suite.Suite
	handler http.Handler
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	ctx := context.Background()
	logger := zap.NewNop()
	cfg := &config.Config{
		GinMode:              "test",
		ServerHost:           "127.0.0.1",
		ServerPort:           "0",
		StoreDriver:          config.StoreDriverSQLite,
		SessionTTL:           time.Minute,
		BookingScheduleGrace: 15 * time.Minute,
		BookingPendingExpiry: 48 * time.Hour,
		AuthRateLimitRPS:     100,
		AuthRateLimitBurst:   100,
	}

	db, err := database.OpenSQLite(":memory:", "silent")
	s.Require().NoError(err)
	s.T().Cleanup(func() { database.CloseGORMDB(db) })
	s.Require().NoError(Migrate(db))
	stores := NewGORMStores(db)

	now := time.Now().UTC()
	for _, u := range []*user.User{
		{ID: "client-1", Email: "client@example.com", DisplayName: "Wanjiru", Role: shared.RoleClient, CreatedAt: now, UpdatedAt: now},
		{ID: "admin-1", Email: "admin@example.com", DisplayName: "Ops", Role: shared.RoleAdmin, CreatedAt: now, UpdatedAt: now},
	} {
		s.Require().NoError(stores.Registrations.Register(ctx, u, nil))
	}
	business := "Otieno Pipes"
	s.Require().NoError(stores.Registrations.Register(ctx,
		&user.User{ID: "prov-1", Email: "prov@example.com", DisplayName: "Otieno", Role: shared.RoleProvider, BusinessName: &business, CreatedAt: now, UpdatedAt: now},
		provider.NewPending("prov-1", []string{"drain"}, "Westlands", 40, nil, now),
	))

	sessions := session.NewManager(cfg, stores.Users, nil, logger)
	catalogSvc := catalog.NewService(stores.Catalog, logger)
	_, err = catalogSvc.SeedDefaults(ctx)
	s.Require().NoError(err)
	providerSvc := provider.NewService(stores.Providers, stores.Users, catalogSvc, nil, provider.NewSearchIndex(nil, logger), logger)
	bookingSvc := booking.NewService(stores.Bookings, catalogSvc, providerSvc, cfg, logger)

	handlers := Handlers{
		User:     user.NewHandler(user.NewService(stores.Users, sessions, logger), logger),
		Auth:     auth.NewHandler(auth.NewService(offlineIdentity{}, stores.Registrations, catalogSvc, sessions, logger), logger),
		Catalog:  catalog.NewHandler(catalogSvc, logger),
		Provider: provider.NewHandler(providerSvc, logger),
		Booking:  booking.NewHandler(bookingSvc, logger),
	}
	verifier := tokenTable{
		"client-token": {UID: "client-1", Email: "client@example.com"},
		"prov-token":   {UID: "prov-1", Email: "prov@example.com"},
		"admin-token":  {UID: "admin-1", Email: "admin@example.com"},
	}
	srv, err := NewServer(cfg, logger, verifier, sessions, handlers, jobs.NewBookingExpiryJob(bookingSvc, logger, cfg), nil)
	s.Require().NoError(err)
	s.handler = srv.Handler()
}

func (s *ServerTestSuite) do(method, path, token string, body interface{}) (int, envelope) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (s *ServerTestSuite) TestHealthAndUnknownRoutes() {
	code, _ := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, code)

	code, env := s.do(http.MethodGet, "/api/v1/nothing-here", "", nil)
	s.Equal(http.StatusNotFound, code)
	s.Equal("NOT_FOUND", env.Code)

	code, env = s.do(http.MethodDelete, "/health", "", nil)
	s.Equal(http.StatusMethodNotAllowed, code)
	s.NotEmpty(env.Code)
}

func (s *ServerTestSuite) TestAuthRequired() {
	code, env := s.do(http.MethodGet, "/api/v1/bookings/client/me", "", nil)
	s.Equal(http.StatusUnauthorized, code)
	s.Equal("UNAUTHORIZED", env.Code)

	code, _ = s.do(http.MethodGet, "/api/v1/bookings/client/me", "forged", nil)
	s.Equal(http.StatusUnauthorized, code)

	code, env = s.do(http.MethodGet, "/api/v1/admin/providers/pending", "client-token", nil)
	s.Equal(http.StatusForbidden, code)
	s.Equal("FORBIDDEN", env.Code)
}

func (s *ServerTestSuite) TestCatalogIsPublic() {
	code, env := s.do(http.MethodGet, "/api/v1/services", "", nil)
	s.Require().Equal(http.StatusOK, code)
	var entries []catalog.Entry
	s.Require().NoError(json.Unmarshal(env.Data, &entries))
	s.Len(entries, len(catalog.DefaultEntries()))
}

func (s *ServerTestSuite) TestBookingLifecycleOverHTTP() {
	t := s.T()

	code, env := s.do(http.MethodPost, "/api/v1/bookings", "client-token", map[string]interface{}{
		"serviceId":     "drain",
		"description":   "Kitchen sink backs up",
		"location":      "12 Riverside Drive",
		"budget":        120,
		"scheduledDate": time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, code)
	var created booking.Booking
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, booking.StatusPending, created.Status)
	assert.Equal(t, "Drain Cleaning", created.ServiceName)
	assert.Nil(t, created.ProviderID)

	bookingPath := "/api/v1/bookings/" + created.ID

	// Unapproved providers cannot take work.
	code, env = s.do(http.MethodPost, bookingPath+"/assign", "prov-token", map[string]string{"providerId": "prov-1"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "NOT_ELIGIBLE", env.Code)

	code, _ = s.do(http.MethodPost, "/api/v1/admin/providers/prov-1/approve", "admin-token", nil)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodGet, "/api/v1/providers/available?serviceId=drain&location=Westlands", "client-token", nil)
	require.Equal(t, http.StatusOK, code)
	var available []provider.Provider
	require.NoError(t, json.Unmarshal(env.Data, &available))
	require.Len(t, available, 1)
	assert.Equal(t, "prov-1", available[0].ID)

	code, env = s.do(http.MethodPost, bookingPath+"/assign", "prov-token", map[string]string{"providerId": "prov-1"})
	require.Equal(t, http.StatusOK, code)
	var assigned booking.Booking
	require.NoError(t, json.Unmarshal(env.Data, &assigned))
	assert.Equal(t, booking.StatusAssigned, assigned.Status)
	require.NotNil(t, assigned.ProviderID)
	assert.Equal(t, "prov-1", *assigned.ProviderID)

	// The client may cancel or complete but not start the job.
	code, env = s.do(http.MethodPatch, bookingPath+"/status", "client-token", map[string]string{"status": "in-progress"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", env.Code)

	code, _ = s.do(http.MethodPatch, bookingPath+"/status", "prov-token", map[string]string{"status": "in-progress"})
	require.Equal(t, http.StatusOK, code)

	// The provider cannot rate its own job; the client closes it with a rating.
	code, env = s.do(http.MethodPatch, bookingPath+"/status", "prov-token", map[string]interface{}{"status": "completed", "rating": 5})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", env.Code)

	code, env = s.do(http.MethodPatch, bookingPath+"/status", "client-token", map[string]interface{}{"status": "completed", "rating": 4})
	require.Equal(t, http.StatusOK, code)
	var completed booking.Booking
	require.NoError(t, json.Unmarshal(env.Data, &completed))
	assert.Equal(t, booking.StatusCompleted, completed.Status)

	code, env = s.do(http.MethodPatch, bookingPath+"/status", "client-token", map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INVALID_TRANSITION", env.Code)

	code, env = s.do(http.MethodGet, "/api/v1/providers/prov-1", "client-token", nil)
	require.Equal(t, http.StatusOK, code)
	var p provider.Provider
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.InDelta(t, 4.0, p.Rating, 1e-9)
	assert.Equal(t, 1, p.TotalJobs)

	code, env = s.do(http.MethodGet, "/api/v1/bookings/provider/me", "prov-token", nil)
	require.Equal(t, http.StatusOK, code)
	var mine []booking.Booking
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)

	// Clients have no provider booking list.
	code, _ = s.do(http.MethodGet, "/api/v1/bookings/provider/me", "client-token", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func (s *ServerTestSuite) TestSessionCarriesProfile() {
	code, env := s.do(http.MethodGet, "/api/v1/auth/session", "prov-token", nil)
	s.Require().Equal(http.StatusOK, code)
	var sess struct {
		Principal shared.Principal `json:"principal"`
		Profile   *user.User       `json:"profile"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &sess))
	s.Equal("prov-1", sess.Principal.UID)
	s.Require().NotNil(sess.Profile)
	s.Equal(shared.RoleProvider, sess.Profile.Role)
}
