// File: internal/middleware/auth.go
package middleware

import (
	"context"

	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/firebase"
	"mugo_plumbing_backend/internal/session"
	"mugo_plumbing_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenVerifier checks identity provider ID tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebase.VerifiedToken, error)
}

// AuthMiddleware verifies the bearer ID token and attaches the principal's session.
func AuthMiddleware(verifier TokenVerifier, sessions *session.Manager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(common.AuthorizationHeader) == "" {
			logger.Debug("Authorization header missing")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header is required."))
			return
		}
		idToken := common.GetTokenFromContext(c)
		if idToken == "" {
			logger.Debug("Authorization header format invalid")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			return
		}

		verified, err := verifier.VerifyIDToken(c.Request.Context(), idToken)
		if err != nil {
			logger.Warn("Token validation failed", zap.Error(err))
			common.RespondWithError(c, err)
			return
		}

		sess, err := sessions.Touch(c.Request.Context(), verified.Principal, verified.IssuedAt)
		if err != nil {
			common.RespondWithError(c, err)
			return
		}
		c.Set(common.PrincipalIDKey, sess.Principal.UID)
		c.Set(common.UserEmailKey, sess.Principal.Email)
		c.Set(common.UserRoleKey, string(sess.Role()))
		c.Set(common.SessionKey, sess)

		logger.Debug("User authenticated successfully",
			zap.String("uid", sess.Principal.UID),
			zap.String("role", string(sess.Role())),
		)
		c.Next()
	}
}

// RoleAuthMiddleware lets through sessions whose profile has one of the allowed roles.
// Profileless sessions are rejected.
func RoleAuthMiddleware(allowedRoles ...shared.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := common.GetUserRoleFromContext(c)
		if userRole == "" {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("No profile is bound to this session."))
			return
		}
		for _, role := range allowedRoles {
			if userRole == string(role) {
				c.Next()
				return
			}
		}
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You do not have sufficient permissions for this resource."))
	}
}
