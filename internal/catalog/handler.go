// File: internal/catalog/handler.go
package catalog

import (
	"mugo_plumbing_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for catalog handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new catalog handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the public catalog routes and the admin routes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, adminRoleMW gin.HandlerFunc) {
	servicesGroup := router.Group("/services")
	{
		servicesGroup.GET("", h.listActive)
		servicesGroup.GET("/:id", h.get)
	}

	adminGroup := router.Group("/admin/services")
	adminGroup.Use(authMW, adminRoleMW)
	{
		adminGroup.POST("", h.adminCreate)
		adminGroup.PATCH("/:id/active", h.adminSetActive)
	}
}

func (h *Handler) listActive(c *gin.Context) {
	entries, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Services retrieved successfully.", entries)
}

func (h *Handler) get(c *gin.Context) {
	e, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Service retrieved successfully.", e)
}

func (h *Handler) adminCreate(c *gin.Context) {
	var req AdminCreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Admin create service: invalid request body", zap.Error(err))
		common.RespondBindingError(c, err)
		return
	}
	e, err := h.service.AdminCreate(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Service created successfully.", e)
}

func (h *Handler) adminSetActive(c *gin.Context) {
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBindingError(c, err)
		return
	}
	e, err := h.service.AdminSetActive(c.Request.Context(), c.Param("id"), *req.IsActive)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Service updated successfully.", e)
}
