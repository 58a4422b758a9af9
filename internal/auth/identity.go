package auth

import (
	"context"

	"mugo_plumbing_backend/internal/firebase"
	"mugo_plumbing_backend/internal/shared"
)

// IdentityProvider is the account side of the identity service.
// *firebase.FirebaseService implements it.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) (shared.Principal, error)
	UpdateDisplayName(ctx context.Context, uid, name string) error
	DeleteAccount(ctx context.Context, uid string) error
	SignIn(ctx context.Context, email, password string) (*firebase.SignInResult, error)
	SignOut(ctx context.Context, principal shared.Principal) error
	SendPasswordReset(ctx context.Context, email string) error
}

var _ IdentityProvider = (*firebase.FirebaseService)(nil)
