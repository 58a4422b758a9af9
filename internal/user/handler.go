// File: internal/user/handler.go
package user

import (
	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for user handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new user handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for profile operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	userGroup := router.Group("/users")
	userGroup.Use(authMW)
	{
		userGroup.GET("/me", h.getMe)
		userGroup.PATCH("/me", h.updateMe)
		userGroup.GET("/:id", h.getUserByID)
	}
}

func (h *Handler) getMe(c *gin.Context) {
	uid := common.GetPrincipalIDFromContext(c)
	if uid == "" {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	usr, err := h.service.GetUser(c.Request.Context(), uid)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User profile retrieved successfully.", usr)
}

func (h *Handler) updateMe(c *gin.Context) {
	uid := common.GetPrincipalIDFromContext(c)
	if uid == "" {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Update profile: invalid request body", zap.Error(err))
		common.RespondBindingError(c, err)
		return
	}
	usr, err := h.service.UpdateUser(c.Request.Context(), uid, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User profile updated successfully.", usr)
}

func (h *Handler) getUserByID(c *gin.Context) {
	target := c.Param("id")
	requester := common.GetPrincipalIDFromContext(c)
	if common.GetUserRoleFromContext(c) != string(shared.RoleAdmin) && requester != target {
		h.logger.Warn("User attempting to fetch another user's profile without admin rights",
			zap.String("requestingUserID", requester),
			zap.String("targetUserID", target))
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You are not authorized to view this profile."))
		return
	}
	usr, err := h.service.GetUser(c.Request.Context(), target)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User retrieved successfully.", usr)
}
