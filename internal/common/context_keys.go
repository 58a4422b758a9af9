// File: internal/common/context_keys.go
package common

const (
	// AuthorizationHeader is the header name for authorization token
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens
	AuthorizationTypeBearer = "Bearer"
	// PrincipalIDKey is the context key for the authenticated principal's uid
	PrincipalIDKey = "principalID"
	// UserEmailKey is the context key for storing the authenticated user's email
	UserEmailKey = "userEmail"
	// UserRoleKey is the context key for the role taken from the bound profile
	UserRoleKey = "userRole"
	// SessionKey is the context key for the *session.Session bound to the request
	SessionKey = "session"
	// LoggerKey is the context key for a request scoped *zap.Logger
	LoggerKey = "logger"
)
