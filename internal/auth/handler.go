// File: internal/auth/handler.go
package auth

import (
	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for auth handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for authentication operations. rateLimitMW guards
// the public endpoints.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, rateLimitMW gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", rateLimitMW, h.signUp)
		authGroup.POST("/signin", rateLimitMW, h.signIn)
		authGroup.POST("/password-reset", rateLimitMW, h.resetPassword)
		authGroup.POST("/signout", authMW, h.signOut)
		authGroup.GET("/session", authMW, h.currentSession)
	}
}

func (h *Handler) signUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Sign-up: invalid request body", zap.Error(err))
		common.RespondBindingError(c, err)
		return
	}
	resp, err := h.service.SignUp(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Account created successfully.", resp)
}

func (h *Handler) signIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Sign-in: invalid request body", zap.Error(err))
		common.RespondBindingError(c, err)
		return
	}
	resp, err := h.service.SignIn(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Signed in successfully.", resp)
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBindingError(c, err)
		return
	}
	if err := h.service.ResetPassword(c.Request.Context(), req.Email); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "If an account exists for this email, a reset link has been sent.", nil)
}

func (h *Handler) signOut(c *gin.Context) {
	sess, ok := session.FromContext(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	if err := h.service.SignOut(c.Request.Context(), sess.Principal); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Signed out successfully.", nil)
}

func (h *Handler) currentSession(c *gin.Context) {
	sess, ok := session.FromContext(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	common.RespondOK(c, "Session retrieved successfully.", sess)
}
