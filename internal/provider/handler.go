// File: internal/provider/handler.go
package provider

import (
	"strconv"

	"mugo_plumbing_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for provider handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new provider handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for provider operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, providerRoleMW, adminRoleMW gin.HandlerFunc) {
	providerGroup := router.Group("/providers")
	providerGroup.Use(authMW)
	{
		providerGroup.GET("/available", h.findAvailable)
		providerGroup.GET("/search", h.search)

		me := providerGroup.Group("/me", providerRoleMW)
		me.GET("", h.getMe)
		me.PATCH("", h.updateMe)
		me.PATCH("/availability", h.setAvailability)
		me.POST("/documents", h.uploadDocument)

		providerGroup.GET("/:id", h.getByID)
	}

	adminGroup := router.Group("/admin/providers")
	adminGroup.Use(authMW, adminRoleMW)
	{
		adminGroup.GET("/pending", h.listPending)
		adminGroup.POST("/:id/approve", h.approve)
	}
}

func (h *Handler) findAvailable(c *gin.Context) {
	providers, err := h.service.FindAvailable(c.Request.Context(), c.Query("serviceId"), c.Query("location"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Available providers retrieved successfully.", providers)
}

func (h *Handler) search(c *gin.Context) {
	q := SearchQuery{
		Text:      c.Query("q"),
		ServiceID: c.Query("serviceId"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			common.RespondWithError(c, common.FieldValidationError("limit", "The limit field must be between 1 and 100."))
			return
		}
		q.Limit = limit
	}
	results, err := h.service.Search(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Providers retrieved successfully.", results)
}

func (h *Handler) getMe(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), common.GetPrincipalIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Provider profile retrieved successfully.", p)
}

func (h *Handler) updateMe(c *gin.Context) {
	var req UpdateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Update provider: invalid request body", zap.Error(err))
		common.RespondBindingError(c, err)
		return
	}
	p, err := h.service.Update(c.Request.Context(), common.GetPrincipalIDFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Provider profile updated successfully.", p)
}

func (h *Handler) setAvailability(c *gin.Context) {
	var req SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBindingError(c, err)
		return
	}
	p, err := h.service.SetAvailability(c.Request.Context(), common.GetPrincipalIDFromContext(c), *req.IsAvailable)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Availability updated successfully.", p)
}

func (h *Handler) uploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("document")
	if err != nil {
		common.RespondWithError(c, common.FieldValidationError("document", "A document file is required."))
		return
	}
	p, err := h.service.AddDocument(c.Request.Context(), common.GetPrincipalIDFromContext(c), fileHeader)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Document uploaded successfully.", p)
}

func (h *Handler) getByID(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Provider retrieved successfully.", p)
}

func (h *Handler) listPending(c *gin.Context) {
	providers, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Pending providers retrieved successfully.", providers)
}

func (h *Handler) approve(c *gin.Context) {
	p, err := h.service.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Provider approved successfully.", p)
}
