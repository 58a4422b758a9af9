// File: internal/auth/model.go
package auth

import (
	"mugo_plumbing_backend/internal/session"
	"mugo_plumbing_backend/internal/shared"
)

// SignUpRequest is the body of POST /auth/signup. The provider fields are only read
// when userType is provider.
type SignUpRequest struct {
	Email        string      `json:"email" binding:"required,email,max=255"`
	Password     string      `json:"password" binding:"required,min=6,max=128"`
	DisplayName  string      `json:"displayName" binding:"required,max=255"`
	UserType     shared.Role `json:"userType" binding:"required,oneof=client provider"`
	Phone        *string     `json:"phone" binding:"omitempty,max=50"`
	Location     *string     `json:"location" binding:"omitempty,max=255"`
	BusinessName *string     `json:"businessName" binding:"omitempty,max=255"`
	ServiceArea  *string     `json:"serviceArea" binding:"omitempty,max=255"`
	Experience   *string     `json:"experience" binding:"omitempty,max=100"`
	Services     []string    `json:"services" binding:"omitempty,dive,required,max=100"`
	HourlyRate   *float64    `json:"hourlyRate" binding:"omitempty,gte=0"`
	Bio          *string     `json:"bio" binding:"omitempty,max=2000"`
}

// SignInRequest is the body of POST /auth/signin.
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// PasswordResetRequest is the body of POST /auth/password-reset.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Tokens are the identity provider credentials handed to the app.
type Tokens struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// SignInResponse is returned by sign-in, and by sign-up when the automatic sign-in
// succeeds. Tokens is nil when sign-up could not sign the new account in.
type SignInResponse struct {
	Session *session.Session `json:"session"`
	Tokens  *Tokens          `json:"tokens,omitempty"`
}
