package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/api/middleware"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/models"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/services"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/tasks"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/utils"
)

// RestBookingHandler handles booking REST endpoints.
type RestBookingHandler struct {
	bookingService services.IBookingService
	retreatService services.IRetreatService
	userService    services.IUserService
	taskClient     IAsynqClient
}

// NewRestBookingHandler creates a new RestBookingHandler.
func NewRestBookingHandler(bookingService services.IBookingService, retreatService services.IRetreatService, userService services.IUserService, taskClient IAsynqClient) *RestBookingHandler {
	return &RestBookingHandler{
		bookingService: bookingService,
		retreatService: retreatService,
		userService:    userService,
		taskClient:     taskClient,
	}
}

type createBookingRequest struct {
	RetreatID string    `json:"retreat_id" binding:"required"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
}

// CreateBooking handles POST /v1/booking
func (h *RestBookingHandler) CreateBooking(c *gin.Context) {
	customerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	retreatID, err := utils.ParseSixID(req.RetreatID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid retreat ID format"})
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), retreatID, customerID, req.StartDate, req.EndDate)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.notifyCustomer(c, booking, "Booking received",
		"We received your booking request. You will hear from us once the host confirms.")

	c.JSON(http.StatusCreated, booking)
}

// notifyCustomer enqueues a notification email for the booking's customer.
// Failures are logged, never surfaced; the booking itself already succeeded.
func (h *RestBookingHandler) notifyCustomer(c *gin.Context, booking *models.Booking, subject, message string) {
	user, err := h.userService.FindByID(c.Request.Context(), booking.CustomerID)
	if err != nil {
		log.Printf("Could not load customer %s for booking notification: %v", booking.CustomerID.String(), err)
		return
	}

	retreatTitle := booking.RetreatID.String()
	if retreat, err := h.retreatService.FindRetreatByID(c.Request.Context(), booking.RetreatID); err == nil {
		retreatTitle = retreat.Title
	}

	body := fmt.Sprintf("Hi %s,\n\n%s\n\nRetreat: %s\nDates: %s to %s\nTotal: %.2f %s\n",
		user.Name, message, retreatTitle,
		booking.StartDate.Format("2006-01-02"), booking.EndDate.Format("2006-01-02"),
		booking.TotalPrice.Amount, booking.TotalPrice.CurrencyCode)

	task, err := tasks.NewEmailDeliverTask(user.Email, subject, body)
	if err != nil {
		log.Printf("Could not build booking notification task: %v", err)
		return
	}
	if _, err := h.taskClient.EnqueueContext(c.Request.Context(), task); err != nil {
		log.Printf("Could not enqueue booking notification for %s: %v", user.Email, err)
	}
}

// ListMyBookings handles GET /v1/booking
func (h *RestBookingHandler) ListMyBookings(c *gin.Context) {
	customerID, ok := currentUserID(c)
	if !ok {
		return
	}

	bookings, err := h.bookingService.ListBookingsByCustomer(c.Request.Context(), customerID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list bookings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": bookings})
}

// ListRetreatBookings handles GET /v1/owner/retreat/:id/booking
func (h *RestBookingHandler) ListRetreatBookings(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}
	retreatID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid retreat ID format"})
		return
	}

	bookings, err := h.bookingService.ListBookingsByRetreat(c.Request.Context(), retreatID, ownerID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Retreat not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": bookings})
}

type transitionBookingRequest struct {
	Status models.BookingStatus `json:"status" binding:"required"`
}

// TransitionBooking handles POST /v1/booking/:id/status. Customers may cancel
// their own bookings; hosts confirm or cancel bookings on their retreats.
func (h *RestBookingHandler) TransitionBooking(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	bookingID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID format"})
		return
	}

	var req transitionBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	booking, err := h.bookingService.FindBookingByID(c.Request.Context(), bookingID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load booking"})
		return
	}

	role, _ := c.Get(middleware.ContextKeyRole)
	allowed := false
	switch role {
	case models.RoleCustomer:
		// Customers can only cancel their own bookings.
		allowed = booking.CustomerID == userID && req.Status == models.BookingStatusCancelled
	case models.RoleOwner:
		retreat, retreatErr := h.retreatService.FindRetreatByID(c.Request.Context(), booking.RetreatID)
		allowed = retreatErr == nil && retreat.HostID == userID
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to change this booking"})
		return
	}

	updated, err := h.bookingService.TransitionBooking(c.Request.Context(), bookingID, req.Status)
	if err != nil {
		if errors.Is(err, services.ErrIllegalTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update booking"})
		return
	}

	switch updated.Status {
	case models.BookingStatusConfirmed:
		h.notifyCustomer(c, updated, "Booking confirmed", "Your booking has been confirmed by the host. See you there!")
	case models.BookingStatusCancelled:
		h.notifyCustomer(c, updated, "Booking cancelled", "Your booking has been cancelled.")
	}

	c.JSON(http.StatusOK, updated)
}
