// File: internal/auth/service.go
package auth

import (
	"context"
	"strings"
	"time"

	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/provider"
	"mugo_plumbing_backend/internal/session"
	"mugo_plumbing_backend/internal/shared"
	"mugo_plumbing_backend/internal/user"

	"go.uber.org/zap"
)

// Service runs the account flows.
type Service interface {
	SignUp(ctx context.Context, req SignUpRequest) (*SignInResponse, error)
	SignIn(ctx context.Context, req SignInRequest) (*SignInResponse, error)
	SignOut(ctx context.Context, principal shared.Principal) error
	ResetPassword(ctx context.Context, email string) error
}

type service struct {
	identity IdentityProvider
	store    RegistrationStore
	catalog  provider.CatalogLookup
	sessions *session.Manager
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates the auth service.
func NewService(identity IdentityProvider, store RegistrationStore, catalog provider.CatalogLookup, sessions *session.Manager, logger *zap.Logger) Service {
	return &service{
		identity: identity,
		store:    store,
		catalog:  catalog,
		sessions: sessions,
		logger:   logger.Named("auth_service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// SignUp creates the account, sets its display name and writes the profile. A failure
// after the account exists deletes the account again. On success the new account is
// signed in when the identity provider allows password sign-in.
func (s *service) SignUp(ctx context.Context, req SignUpRequest) (*SignInResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		return nil, common.FieldValidationError("displayName", "The displayname field is required.")
	}
	if len(req.Password) < 6 {
		return nil, common.FieldValidationError("password", "The password field must be at least 6.")
	}

	now := s.now()
	profile := &user.User{
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		Role:         req.UserType,
		Phone:        trimmed(req.Phone),
		Location:     trimmed(req.Location),
		BusinessName: trimmed(req.BusinessName),
		ServiceArea:  trimmed(req.ServiceArea),
		Experience:   trimmed(req.Experience),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var services []string
	switch req.UserType {
	case shared.RoleClient:
	case shared.RoleProvider:
		if profile.BusinessName == nil {
			return nil, common.FieldValidationError("businessName", "Business name is required for providers.")
		}
		if profile.ServiceArea == nil {
			return nil, common.FieldValidationError("serviceArea", "Service area is required for providers.")
		}
		var err error
		if services, err = provider.ValidateServiceIDs(ctx, s.catalog, req.Services); err != nil {
			return nil, err
		}
	default:
		return nil, common.FieldValidationError("userType", "The usertype field must be one of the following values: client provider.")
	}

	principal, err := s.identity.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("uid", principal.UID))

	if err := s.identity.UpdateDisplayName(ctx, principal.UID, req.DisplayName); err != nil {
		s.compensate(ctx, principal.UID, "update display name", err)
		return nil, err
	}

	profile.ID = principal.UID
	var pending *provider.Provider
	if req.UserType == shared.RoleProvider {
		var hourlyRate float64
		if req.HourlyRate != nil {
			hourlyRate = *req.HourlyRate
		}
		pending = provider.NewPending(principal.UID, services, *profile.ServiceArea, hourlyRate, trimmed(req.Bio), now)
	}
	if err := s.store.Register(ctx, profile, pending); err != nil {
		s.compensate(ctx, principal.UID, "write profile", err)
		return nil, err
	}
	log.Info("Account registered", zap.String("userType", string(req.UserType)))

	principal.DisplayName = req.DisplayName
	resp, err := s.SignIn(ctx, SignInRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		log.Warn("Automatic sign-in after sign-up failed", zap.Error(err))
		return &SignInResponse{Session: s.sessions.Bind(ctx, principal, now)}, nil
	}
	return resp, nil
}

func (s *service) compensate(ctx context.Context, uid, step string, cause error) {
	s.logger.Warn("Sign-up failed, deleting identity account",
		zap.String("uid", uid), zap.String("step", step), zap.Error(cause))
	if err := s.identity.DeleteAccount(context.WithoutCancel(ctx), uid); err != nil {
		s.logger.Error("Compensation failed, identity account is orphaned",
			zap.String("uid", uid), zap.Error(err))
	}
}

// SignIn checks the password and returns the tokens with the bound session.
func (s *service) SignIn(ctx context.Context, req SignInRequest) (*SignInResponse, error) {
	res, err := s.identity.SignIn(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return nil, err
	}
	sess, ok := s.sessions.Get(res.Principal.UID)
	if !ok {
		sess = s.sessions.Bind(ctx, res.Principal, s.now())
	}
	return &SignInResponse{
		Session: sess,
		Tokens: &Tokens{
			IDToken:      res.IDToken,
			RefreshToken: res.RefreshToken,
			ExpiresIn:    res.ExpiresIn,
		},
	}, nil
}

// SignOut revokes the principal's tokens and drops its session.
func (s *service) SignOut(ctx context.Context, principal shared.Principal) error {
	if err := s.identity.SignOut(ctx, principal); err != nil {
		return err
	}
	s.sessions.SignOut(principal.UID)
	return nil
}

// ResetPassword sends a reset email. Unknown addresses are not reported to the caller.
func (s *service) ResetPassword(ctx context.Context, email string) error {
	err := s.identity.SendPasswordReset(ctx, strings.TrimSpace(email))
	if err != nil {
		if apiErr, ok := common.IsAPIError(err); ok && apiErr.Code == common.ErrUnauthorized.Code {
			s.logger.Debug("Password reset for unknown address", zap.String("email", email))
			return nil
		}
		return err
	}
	return nil
}
