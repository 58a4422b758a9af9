// File: internal/session/session.go
package session

import (
	"context"
	"time"

	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/config"
	"mugo_plumbing_backend/internal/shared"
	"mugo_plumbing_backend/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Session binds an authenticated principal to its profile. Profile is nil when the
// profile could not be loaded; the session is still valid in that state.
// Sessions are replaced, never mutated, once stored.
type Session struct {
	Principal     shared.Principal `json:"principal"`
	Profile       *user.User       `json:"profile"`
	StartedAt     time.Time        `json:"startedAt"`
	TokenIssuedAt time.Time        `json:"-"`
}

// Role returns the profile's role, or "" for a profileless session.
func (s *Session) Role() shared.Role {
	if s == nil || s.Profile == nil {
		return ""
	}
	return s.Profile.Role
}

// ProfileLoader fetches a profile by principal uid.
type ProfileLoader interface {
	FindByID(ctx context.Context, id string) (*user.User, error)
}

// IDTokenLifetime bounds how long an ID token issued before a sign-out can still be
// presented. Sign-out cutoffs are kept that long.
const IDTokenLifetime = time.Hour

// ErrSignedOut is returned by Touch for tokens issued before the principal signed out.
var ErrSignedOut = common.ErrUnauthorized.WithDetails("Session has ended. Sign in again.")

// Manager holds the live sessions keyed by principal uid.
type Manager struct {
	profiles  ProfileLoader
	sessions  *cache.Cache
	signedOut *cache.Cache
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager creates a session manager and subscribes it to source, if given.
func NewManager(cfg *config.Config, profiles ProfileLoader, source shared.PrincipalSource, logger *zap.Logger) *Manager {
	m := &Manager{
		profiles:  profiles,
		sessions:  cache.New(cfg.SessionTTL, cfg.SessionTTL),
		signedOut: cache.New(IDTokenLifetime, IDTokenLifetime),
		logger:    logger.Named("session_manager"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	if source != nil {
		source.OnPrincipalChanged(m.HandlePrincipalChange)
	}
	return m
}

// Bind loads the principal's profile and stores a fresh session. A failed load
// yields a profileless session rather than an error.
func (m *Manager) Bind(ctx context.Context, principal shared.Principal, issuedAt time.Time) *Session {
	s := &Session{
		Principal:     principal,
		StartedAt:     m.now(),
		TokenIssuedAt: issuedAt,
	}
	if prev, ok := m.Get(principal.UID); ok {
		s.StartedAt = prev.StartedAt
	}

	profile, err := m.profiles.FindByID(ctx, principal.UID)
	if err != nil {
		m.logger.Warn("Profile unavailable, session is profileless",
			zap.String("uid", principal.UID), zap.Error(err))
	} else {
		s.Profile = profile
	}
	m.sessions.Set(principal.UID, s, cache.DefaultExpiration)
	return s
}

// Get returns the live session for uid.
func (m *Manager) Get(uid string) (*Session, bool) {
	v, ok := m.sessions.Get(uid)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Clear drops the session for uid.
func (m *Manager) Clear(uid string) {
	m.sessions.Delete(uid)
}

// SignOut drops the session for uid and refuses every token issued before now. The
// cutoff has second precision, like ID token issue times.
func (m *Manager) SignOut(uid string) {
	m.signedOut.Set(uid, m.now().Truncate(time.Second), cache.DefaultExpiration)
	m.Clear(uid)
}

func (m *Manager) revoked(uid string, issuedAt time.Time) bool {
	v, ok := m.signedOut.Get(uid)
	if !ok {
		return false
	}
	return issuedAt.Before(v.(time.Time))
}

// HandlePrincipalChange keeps the session store in step with the identity provider.
func (m *Manager) HandlePrincipalChange(ctx context.Context, change shared.PrincipalChange) {
	switch change.Kind {
	case shared.PrincipalSignedIn, shared.PrincipalTokenRefreshed:
		m.Bind(ctx, change.Principal, m.now())
	case shared.PrincipalSignedOut:
		m.SignOut(change.Principal.UID)
	}
	m.logger.Debug("Principal changed", zap.String("uid", change.Principal.UID), zap.String("kind", string(change.Kind)))
}

// Touch returns the session for a verified token. Tokens issued before the principal
// signed out fail with ErrSignedOut. The profile is reloaded when there is no session
// yet, when the token is newer than the one the session was bound with, or when the
// session is still profileless.
func (m *Manager) Touch(ctx context.Context, principal shared.Principal, issuedAt time.Time) (*Session, error) {
	if m.revoked(principal.UID, issuedAt) {
		m.logger.Info("Token issued before sign-out rejected", zap.String("uid", principal.UID))
		return nil, ErrSignedOut
	}
	existing, ok := m.Get(principal.UID)
	switch {
	case !ok:
		return m.Bind(ctx, principal, issuedAt), nil
	case issuedAt.After(existing.TokenIssuedAt):
		m.logger.Debug("Token refreshed", zap.String("uid", principal.UID))
		return m.Bind(ctx, principal, issuedAt), nil
	case existing.Profile == nil:
		return m.Bind(ctx, principal, existing.TokenIssuedAt), nil
	}
	m.sessions.Set(principal.UID, existing, cache.DefaultExpiration)
	return existing, nil
}

// ProfileUpdated swaps the cached profile of a live session.
func (m *Manager) ProfileUpdated(u *user.User) {
	existing, ok := m.Get(u.ID)
	if !ok {
		return
	}
	next := *existing
	next.Profile = u
	m.sessions.Set(u.ID, &next, cache.DefaultExpiration)
}

// FromContext returns the session the auth middleware attached to c.
func FromContext(c *gin.Context) (*Session, bool) {
	v, ok := c.Get(common.SessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Session)
	return s, ok
}
