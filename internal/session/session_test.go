package session

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/config"
	"mugo_plumbing_backend/internal/shared"
	"mugo_plumbing_backend/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockProfileLoader struct {
	mock.Mock
}

func (m *MockProfileLoader) FindByID(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type fakeSource struct {
	listeners []shared.PrincipalListener
}

func (f *fakeSource) OnPrincipalChanged(fn shared.PrincipalListener) {
	f.listeners = append(f.listeners, fn)
}

func (f *fakeSource) emit(kind shared.PrincipalChangeKind, p shared.Principal) {
	for _, fn := range f.listeners {
		fn(context.Background(), shared.PrincipalChange{Kind: kind, Principal: p})
	}
}

var (
	t0    = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	alice = shared.Principal{UID: "c1", Email: "c1@example.com"}
)

func newTestManager(loader ProfileLoader, source shared.PrincipalSource) *Manager {
	m := NewManager(&config.Config{SessionTTL: time.Hour}, loader, source, zap.NewNop())
	m.now = func() time.Time { return t0 }
	return m
}

func TestManager_SignInBindsProfile(t *testing.T) {
	loader := new(MockProfileLoader)
	source := &fakeSource{}
	m := newTestManager(loader, source)
	profile := &user.User{ID: "c1", Role: shared.RoleClient}
	loader.On("FindByID", mock.Anything, "c1").Return(profile, nil).Once()

	source.emit(shared.PrincipalSignedIn, alice)

	s, ok := m.Get("c1")
	require.True(t, ok)
	assert.Equal(t, profile, s.Profile)
	assert.Equal(t, shared.RoleClient, s.Role())
	assert.Equal(t, t0, s.StartedAt)

	source.emit(shared.PrincipalSignedOut, alice)
	_, ok = m.Get("c1")
	assert.False(t, ok)
	loader.AssertExpectations(t)
}

func TestManager_ProfileFetchFailureIsProfileless(t *testing.T) {
	loader := new(MockProfileLoader)
	m := newTestManager(loader, nil)
	loader.On("FindByID", mock.Anything, "c1").Return(nil, errors.New("unavailable"))

	s := m.Bind(context.Background(), alice, t0)
	require.NotNil(t, s)
	assert.Nil(t, s.Profile)
	assert.Equal(t, shared.Role(""), s.Role())
}

func TestManager_Touch(t *testing.T) {
	loader := new(MockProfileLoader)
	m := newTestManager(loader, nil)
	profile := &user.User{ID: "c1", Role: shared.RoleClient}

	loader.On("FindByID", mock.Anything, "c1").Return(nil, common.ErrNotFound).Once()
	first, err := m.Touch(context.Background(), alice, t0)
	require.NoError(t, err)
	assert.Nil(t, first.Profile)

	loader.On("FindByID", mock.Anything, "c1").Return(profile, nil).Once()
	second, err := m.Touch(context.Background(), alice, t0)
	require.NoError(t, err)
	assert.Equal(t, profile, second.Profile)

	third, err := m.Touch(context.Background(), alice, t0)
	require.NoError(t, err)
	assert.Same(t, second, third)

	loader.On("FindByID", mock.Anything, "c1").Return(profile, nil).Once()
	refreshed, err := m.Touch(context.Background(), alice, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.NotSame(t, second, refreshed)
	assert.Equal(t, t0.Add(time.Hour), refreshed.TokenIssuedAt)
	loader.AssertExpectations(t)
}

func TestManager_TouchAfterSignOut(t *testing.T) {
	loader := new(MockProfileLoader)
	source := &fakeSource{}
	m := newTestManager(loader, source)
	signOutAt := t0.Add(30 * time.Minute)
	loader.On("FindByID", mock.Anything, "c1").Return(&user.User{ID: "c1", Role: shared.RoleClient}, nil)

	_, err := m.Touch(context.Background(), alice, t0)
	require.NoError(t, err)

	m.now = func() time.Time { return signOutAt.Add(400 * time.Millisecond) }
	source.emit(shared.PrincipalSignedOut, alice)

	sess, err := m.Touch(context.Background(), alice, t0)
	assert.Nil(t, sess)
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
	_, ok := m.Get("c1")
	assert.False(t, ok, "a rejected token must not rebind a session")

	other := shared.Principal{UID: "c2"}
	loader.On("FindByID", mock.Anything, "c2").Return(nil, common.ErrNotFound)
	_, err = m.Touch(context.Background(), other, t0)
	assert.NoError(t, err)

	fresh, err := m.Touch(context.Background(), alice, signOutAt)
	require.NoError(t, err)
	assert.Equal(t, signOutAt, fresh.TokenIssuedAt)
}

func TestManager_SignOutDirect(t *testing.T) {
	loader := new(MockProfileLoader)
	m := newTestManager(loader, nil)
	loader.On("FindByID", mock.Anything, "c1").Return(nil, common.ErrNotFound)
	m.Bind(context.Background(), alice, t0)

	m.now = func() time.Time { return t0.Add(time.Minute) }
	m.SignOut("c1")

	_, ok := m.Get("c1")
	assert.False(t, ok)
	_, err := m.Touch(context.Background(), alice, t0.Add(59*time.Second))
	assert.ErrorIs(t, err, ErrSignedOut)
}

func TestManager_ProfileUpdatedReplacesSession(t *testing.T) {
	loader := new(MockProfileLoader)
	m := newTestManager(loader, nil)
	loader.On("FindByID", mock.Anything, "c1").Return(&user.User{ID: "c1", DisplayName: "Old"}, nil)
	before := m.Bind(context.Background(), alice, t0)

	m.ProfileUpdated(&user.User{ID: "c1", DisplayName: "New"})
	m.ProfileUpdated(&user.User{ID: "nobody"})

	after, ok := m.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "New", after.Profile.DisplayName)
	assert.Equal(t, "Old", before.Profile.DisplayName)
	_, ok = m.Get("nobody")
	assert.False(t, ok)
}

func TestFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := FromContext(c)
	assert.False(t, ok)

	s := &Session{Principal: alice}
	c.Set(common.SessionKey, s)
	got, ok := FromContext(c)
	require.True(t, ok)
	assert.Same(t, s, got)
}
