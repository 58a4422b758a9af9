package shared

import (
	"context"
)

// Role is the user type stored on a profile.
type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated identity returned by the identity provider.
type Principal struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// PrincipalChangeKind tells listeners what happened to a principal.
type PrincipalChangeKind string

const (
	PrincipalSignedIn       PrincipalChangeKind = "signed_in"
	PrincipalSignedOut      PrincipalChangeKind = "signed_out"
	PrincipalTokenRefreshed PrincipalChangeKind = "token_refreshed"
)

// PrincipalChange is delivered to every listener registered on a PrincipalSource.
type PrincipalChange struct {
	Kind      PrincipalChangeKind
	Principal Principal
}

// PrincipalListener handles principal changes. It runs synchronously on the caller's goroutine.
type PrincipalListener func(ctx context.Context, change PrincipalChange)

// PrincipalSource is implemented by the identity provider adapter.
type PrincipalSource interface {
	OnPrincipalChanged(fn PrincipalListener)
}
