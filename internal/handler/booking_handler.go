package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/soundbridge-live/service-bookings/internal/application"
	"github.com/soundbridge-live/service-bookings/internal/auth"
	"github.com/soundbridge-live/service-bookings/internal/middleware"
	"github.com/soundbridge-live/service-bookings/internal/response"
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	providers := r.Group("/api/v1/providers/:id/bookings")
	providers.Use(authMW)
	{
		providers.GET("", h.ListProviderBookings)
		providers.POST("", h.CreateBooking)
		providers.PATCH("", h.UpdateStatus)
	}

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW)
	{
		bookings.GET("", h.ListMyBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.GET("/:id/activity", h.ListActivity)
	}

	ops := r.Group("/api/v1/ops")
	ops.Use(authMW)
	{
		ops.GET("/booking-stats", h.BookingStats)
	}
}

// ListProviderBookings handles GET /api/v1/providers/:id/bookings.
func (h *BookingHandler) ListProviderBookings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid provider ID")
		return
	}

	result, err := h.service.ListProviderBookings(c.Request.Context(), providerID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"bookings": result})
}

// CreateBooking handles POST /api/v1/providers/:id/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid provider ID")
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid JSON payload: "+err.Error())
		return
	}

	result, err := h.service.RequestBooking(c.Request.Context(), userID, providerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"booking": result})
}

// UpdateStatus handles PATCH /api/v1/providers/:id/bookings?bookingId=X.
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	bookingID, err := uuid.Parse(c.Query("bookingId"))
	if err != nil {
		response.BadRequest(c, "bookingId query parameter required")
		return
	}

	var req application.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid JSON payload: "+err.Error())
		return
	}

	result, err := h.service.UpdateStatus(c.Request.Context(), bookingID, userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"booking": result})
}

// ListMyBookings handles GET /api/v1/bookings?status=a,b for the caller's own
// bookings as booker.
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	var statuses []string
	if raw := c.Query("status"); raw != "" {
		statuses = strings.Split(raw, ",")
	}

	result, err := h.service.ListBookerBookings(c.Request.Context(), userID, statuses)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"bookings": result})
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), bookingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"booking": result})
}

// ListActivity handles GET /api/v1/bookings/:id/activity.
func (h *BookingHandler) ListActivity(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	result, err := h.service.ListActivity(c.Request.Context(), bookingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"activity": result})
}

// BookingStats handles GET /api/v1/ops/booking-stats.
func (h *BookingHandler) BookingStats(c *gin.Context) {
	if _, ok := middleware.GetUserID(c); !ok {
		response.Unauthorized(c)
		return
	}

	result, err := h.service.BookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
