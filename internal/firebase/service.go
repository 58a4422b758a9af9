package firebase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/config"
	"mugo_plumbing_backend/internal/shared"
)

// VerifiedToken is the result of checking a Firebase ID token.
type VerifiedToken struct {
	Principal shared.Principal
	IssuedAt  time.Time
}

// SignInResult carries the tokens returned by a password sign-in.
type SignInResult struct {
	Principal    shared.Principal `json:"principal"`
	IDToken      string           `json:"idToken"`
	RefreshToken string           `json:"refreshToken"`
	ExpiresIn    string           `json:"expiresIn"`
}

// FirebaseService is the identity provider: Firebase Auth through the Admin SDK for
// account management and token checks, the Identity Toolkit REST API for the
// operations that need the end user's password.
type FirebaseService struct {
	authClient *auth.Client
	toolkit    *identitytoolkit.Service
	logger     *zap.Logger

	mu        sync.RWMutex
	listeners []shared.PrincipalListener
}

// NewApp initializes the Firebase Admin SDK app from the service account key.
func NewApp(cfg *config.Config, logger *zap.Logger) (*firebase.App, error) {
	if cfg.FirebaseServiceAccountKeyPath == "" {
		logger.Error("Firebase service account key path is not configured.")
		return nil, fmt.Errorf("firebase service account key path is required")
	}
	opt := option.WithCredentialsFile(filepath.Clean(cfg.FirebaseServiceAccountKeyPath))

	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	app, err := firebase.NewApp(context.Background(), conf, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	return app, nil
}

// NewFirestoreClient returns the Firestore client of the app.
func NewFirestoreClient(app *firebase.App, logger *zap.Logger) (*firestore.Client, error) {
	client, err := app.Firestore(context.Background())
	if err != nil {
		logger.Error("Failed to get Firestore client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firestore client: %w", err)
	}
	return client, nil
}

// NewFirebaseService creates the identity provider. Without FIREBASE_API_KEY password
// sign-in and reset emails are unavailable; everything else still works.
func NewFirebaseService(app *firebase.App, cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	log := logger.Named("firebase")
	authClient, err := app.Auth(context.Background())
	if err != nil {
		log.Error("Failed to get Firebase Auth client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	s := &FirebaseService{authClient: authClient, logger: log}
	if cfg.FirebaseAPIKey != "" {
		s.toolkit, err = identitytoolkit.NewService(context.Background(), option.WithAPIKey(cfg.FirebaseAPIKey))
		if err != nil {
			log.Error("Failed to create Identity Toolkit client", zap.Error(err))
			return nil, fmt.Errorf("error creating Identity Toolkit client: %w", err)
		}
	} else {
		log.Warn("FIREBASE_API_KEY is not set; password sign-in and password reset are disabled")
	}

	log.Info("Firebase Admin SDK initialized successfully.")
	return s, nil
}

// OnPrincipalChanged registers fn for sign-in and sign-out events.
func (s *FirebaseService) OnPrincipalChanged(fn shared.PrincipalListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *FirebaseService) notify(ctx context.Context, change shared.PrincipalChange) {
	s.mu.RLock()
	listeners := make([]shared.PrincipalListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, change)
	}
}

// VerifyIDToken verifies a Firebase ID token and rejects tokens issued before the
// account's refresh tokens were revoked.
func (s *FirebaseService) VerifyIDToken(ctx context.Context, idToken string) (*VerifiedToken, error) {
	if idToken == "" {
		return nil, common.ErrUnauthorized.WithDetails("ID token must not be empty.")
	}
	token, err := s.authClient.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		if auth.IsIDTokenRevoked(err) {
			s.logger.Info("Revoked Firebase ID token presented", zap.Error(err))
			return nil, common.ErrUnauthorized.WithDetails("Token has been revoked. Sign in again.").WithCause(err)
		}
		s.logger.Warn("Firebase ID token verification failed", zap.Error(err))
		return nil, common.ErrUnauthorized.WithDetails("Invalid or expired token.").WithCause(err)
	}
	s.logger.Debug("Firebase ID token verified successfully", zap.String("uid", token.UID))
	return verifiedFromToken(token), nil
}

func verifiedFromToken(token *auth.Token) *VerifiedToken {
	p := shared.Principal{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		p.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		p.DisplayName = name
	}
	return &VerifiedToken{Principal: p, IssuedAt: time.Unix(token.IssuedAt, 0).UTC()}
}

// SignUp creates the identity account.
func (s *FirebaseService) SignUp(ctx context.Context, email, password string) (shared.Principal, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	rec, err := s.authClient.CreateUser(ctx, params)
	if err != nil {
		s.logger.Warn("Failed to create Firebase account", zap.String("email", email), zap.Error(err))
		return shared.Principal{}, mapAuthError("create account", err)
	}
	return shared.Principal{UID: rec.UID, Email: rec.Email, DisplayName: rec.DisplayName}, nil
}

// UpdateDisplayName sets the display name on the account.
func (s *FirebaseService) UpdateDisplayName(ctx context.Context, uid, name string) error {
	if _, err := s.authClient.UpdateUser(ctx, uid, (&auth.UserToUpdate{}).DisplayName(name)); err != nil {
		s.logger.Warn("Failed to update display name", zap.String("uid", uid), zap.Error(err))
		return mapAuthError("update display name", err)
	}
	return nil
}

// DeleteAccount removes the identity account. Used to compensate a failed sign-up.
func (s *FirebaseService) DeleteAccount(ctx context.Context, uid string) error {
	if err := s.authClient.DeleteUser(ctx, uid); err != nil {
		s.logger.Error("Failed to delete Firebase account", zap.String("uid", uid), zap.Error(err))
		return mapAuthError("delete account", err)
	}
	return nil
}

// SignIn checks the password through the Identity Toolkit and returns fresh tokens.
func (s *FirebaseService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	if s.toolkit == nil {
		return nil, common.ErrServiceUnavailable.WithDetails("Password sign-in is not configured.")
	}
	resp, err := s.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		s.logger.Info("Password sign-in rejected", zap.String("email", email), zap.Error(err))
		return nil, mapToolkitError("sign in", err)
	}

	result := &SignInResult{
		Principal:    shared.Principal{UID: resp.LocalId, Email: resp.Email, DisplayName: resp.DisplayName},
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    strconv.FormatInt(resp.ExpiresIn, 10),
	}
	s.notify(ctx, shared.PrincipalChange{Kind: shared.PrincipalSignedIn, Principal: result.Principal})
	return result, nil
}

// SignOut revokes the refresh tokens of the principal.
func (s *FirebaseService) SignOut(ctx context.Context, principal shared.Principal) error {
	if err := s.authClient.RevokeRefreshTokens(ctx, principal.UID); err != nil {
		s.logger.Error("Failed to revoke refresh tokens", zap.Error(err), zap.String("uid", principal.UID))
		return mapAuthError("sign out", err)
	}
	s.notify(ctx, shared.PrincipalChange{Kind: shared.PrincipalSignedOut, Principal: principal})
	s.logger.Info("Successfully revoked refresh tokens for user", zap.String("uid", principal.UID))
	return nil
}

// SendPasswordReset asks Firebase to email a password reset link.
func (s *FirebaseService) SendPasswordReset(ctx context.Context, email string) error {
	if s.toolkit == nil {
		return common.ErrServiceUnavailable.WithDetails("Password reset is not configured.")
	}
	_, err := s.toolkit.Relyingparty.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: "PASSWORD_RESET",
		Email:       email,
	}).Context(ctx).Do()
	if err != nil {
		s.logger.Warn("Password reset request failed", zap.String("email", email), zap.Error(err))
		return mapToolkitError("send password reset", err)
	}
	return nil
}

func mapAuthError(op string, err error) error {
	switch {
	case auth.IsEmailAlreadyExists(err):
		return common.ErrConflict.WithDetails("An account with this email already exists.").WithCause(err)
	case auth.IsUserNotFound(err):
		return common.ErrNotFound.WithDetails("Account not found.").WithCause(err)
	default:
		return common.RemoteFailure(op, err)
	}
}

func mapToolkitError(op string, err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusBadRequest {
		switch {
		case strings.Contains(gErr.Message, "EMAIL_NOT_FOUND"),
			strings.Contains(gErr.Message, "INVALID_PASSWORD"),
			strings.Contains(gErr.Message, "INVALID_LOGIN_CREDENTIALS"),
			strings.Contains(gErr.Message, "USER_DISABLED"):
			return common.ErrUnauthorized.WithDetails("Invalid email or password.").WithCause(err)
		case strings.Contains(gErr.Message, "TOO_MANY_ATTEMPTS"):
			return common.ErrTooManyRequests.WithCause(err)
		}
	}
	return common.RemoteFailure(op, err)
}
