package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ekrukov/slotbooking/internal/domain"
	"github.com/ekrukov/slotbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	ServiceID int64     `json:"service_id"`
	StartTime time.Time `json:"start_time"`
}

type bookingResponse struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	ServiceID int64  `json:"service_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:        b.ID,
		UserID:    b.UserID,
		ServiceID: b.ServiceID,
		StartTime: b.StartTime.Format(time.RFC3339),
		EndTime:   b.EndTime.Format(time.RFC3339),
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
	}
}

func toBookingResponses(bookings []domain.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResponse(&bookings[i]))
	}
	return out
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

// Register wires booking routes: availability is public, transitions need a
// caller, complete needs an admin.
func (h *BookingHandler) Register(public, private, admin *gin.RouterGroup) {
	public.GET("/availability", h.availability)
	private.POST("", h.create)
	private.GET("/:id", h.get)
	private.GET("/my/upcoming", h.upcoming)
	private.GET("/my/history", h.history)
	private.PATCH("/:id/confirm", h.confirm)
	private.PATCH("/:id/cancel", h.cancel)
	admin.PATCH("/:id/complete", h.complete)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		UserID:    currentUserID(c),
		ServiceID: req.ServiceID,
		StartTime: req.StartTime,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if b.UserID != currentUserID(c) && !isAdmin(c) {
		respondError(c, domain.Errf(domain.KindUnauthorized, "booking belongs to another user"))
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) upcoming(c *gin.Context) {
	bookings, err := h.service.UpcomingBookings(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func (h *BookingHandler) history(c *gin.Context) {
	bookings, err := h.service.BookingHistory(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func (h *BookingHandler) confirm(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	b, err := h.service.ConfirmBooking(c.Request.Context(), id, booking.Actor{
		UserID: currentUserID(c),
		Admin:  isAdmin(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	b, err := h.service.CancelBooking(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) complete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	b, err := h.service.CompleteBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) availability(c *gin.Context) {
	serviceID, err := strconv.ParseInt(c.Query("service_id"), 10, 64)
	if err != nil {
		respondError(c, domain.Errf(domain.KindInvalidInput, "service_id must be an integer"))
		return
	}
	start, err := time.Parse(time.RFC3339, c.Query("start_time"))
	if err != nil {
		respondError(c, domain.Errf(domain.KindInvalidInput, "start_time must be RFC3339"))
		return
	}

	available, err := h.service.CheckAvailability(c.Request.Context(), serviceID, start)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service_id": serviceID, "start_time": start.UTC().Format(time.RFC3339), "available": available})
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, domain.Errf(domain.KindInvalidInput, "id must be an integer")
	}
	return id, nil
}
