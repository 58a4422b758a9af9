// File: internal/booking/handler.go
package booking

import (
	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for booking handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new booking handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for booking operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, providerRoleMW gin.HandlerFunc) {
	bookingGroup := router.Group("/bookings")
	bookingGroup.Use(authMW)
	{
		bookingGroup.POST("", h.createBooking)
		bookingGroup.GET("/client/me", h.listMine)
		bookingGroup.GET("/provider/me", providerRoleMW, h.listAssigned)
		bookingGroup.GET("/:id", h.getBooking)
		bookingGroup.POST("/:id/assign", h.assignProvider)
		bookingGroup.PATCH("/:id/status", h.updateStatus)
	}
}

type caller struct {
	uid  string
	role shared.Role
}

func callerFrom(c *gin.Context) caller {
	return caller{
		uid:  common.GetPrincipalIDFromContext(c),
		role: shared.Role(common.GetUserRoleFromContext(c)),
	}
}

func (c caller) isAdmin() bool { return c.role == shared.RoleAdmin }

func (c caller) isClientOf(b *Booking) bool { return c.uid == b.ClientID }

func (c caller) isProviderOf(b *Booking) bool {
	return b.ProviderID != nil && *b.ProviderID == c.uid
}

// statusChangeError: progress belongs to the assigned provider, completion also to the
// client, cancellation to either. Admins may do any of them. Only the client rates.
func (c caller) statusChangeError(b *Booking, next Status, rated bool) error {
	if rated && !c.isClientOf(b) {
		return common.ErrForbidden.WithDetails("Only the booking's client may rate the job.")
	}
	if c.isAdmin() || c.isProviderOf(b) {
		return nil
	}
	if c.isClientOf(b) && (next == StatusCompleted || next == StatusCancelled) {
		return nil
	}
	return common.ErrForbidden.WithDetails("You may not change this booking to " + string(next) + ".")
}

func (h *Handler) createBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create booking: invalid request body", zap.Error(err))
		common.RespondBindingError(c, err)
		return
	}
	b, err := h.service.CreateBooking(c.Request.Context(), common.GetPrincipalIDFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Booking created successfully.", b)
}

func (h *Handler) listMine(c *gin.Context) {
	bookings, err := h.service.ListBookingsForClient(c.Request.Context(), common.GetPrincipalIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Bookings retrieved successfully.", bookings)
}

func (h *Handler) listAssigned(c *gin.Context) {
	bookings, err := h.service.ListBookingsForProvider(c.Request.Context(), common.GetPrincipalIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Bookings retrieved successfully.", bookings)
}

func (h *Handler) getBooking(c *gin.Context) {
	who := callerFrom(c)
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if !who.isAdmin() && !who.isClientOf(b) && !who.isProviderOf(b) {
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You are not a party to this booking."))
		return
	}
	common.RespondOK(c, "Booking retrieved successfully.", b)
}

func (h *Handler) assignProvider(c *gin.Context) {
	var req AssignProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBindingError(c, err)
		return
	}
	who := callerFrom(c)
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	selfAssign := who.role == shared.RoleProvider && who.uid == req.ProviderID
	if !who.isAdmin() && !who.isClientOf(b) && !selfAssign {
		h.logger.Warn("Unauthorized assignment attempt",
			zap.String("requestingUserID", who.uid),
			zap.String("bookingID", b.ID))
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You may not assign a provider to this booking."))
		return
	}
	updated, err := h.service.AssignProvider(c.Request.Context(), b.ID, req.ProviderID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Provider assigned successfully.", updated)
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBindingError(c, err)
		return
	}
	who := callerFrom(c)
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := who.statusChangeError(b, req.Status, req.Rating != nil); err != nil {
		h.logger.Warn("Unauthorized status change attempt",
			zap.String("requestingUserID", who.uid),
			zap.String("bookingID", b.ID),
			zap.String("status", string(req.Status)),
			zap.Bool("rated", req.Rating != nil))
		common.RespondWithError(c, err)
		return
	}
	updated, err := h.service.UpdateStatus(c.Request.Context(), b.ID, req.Status, req.Rating)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Booking status updated successfully.", updated)
}
