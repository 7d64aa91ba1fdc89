package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ekrukov/slotbooking/internal/domain"
	"github.com/ekrukov/slotbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ConfirmBooking(ctx context.Context, bookingID int64, actor booking.Actor) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, bookingID, actorUserID int64) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, actorUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CompleteBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CheckAvailability(ctx context.Context, serviceID int64, start time.Time) (bool, error) {
	args := m.Called(ctx, serviceID, start)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) UpcomingBookings(ctx context.Context, userID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) BookingHistory(ctx context.Context, userID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CompleteElapsed(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

var testStart = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func testBooking(status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:        1,
		UserID:    7,
		ServiceID: 3,
		StartTime: testStart,
		EndTime:   testStart.Add(time.Hour),
		Status:    status,
	}
}

func TestBookingHandler_create(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(createBookingRequest{ServiceID: 3, StartTime: testStart})
	c.Request = httptest.NewRequest("POST", "/bookings", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(ctxUserIDKey, int64(7))

	input := booking.CreateBookingInput{UserID: 7, ServiceID: 3, StartTime: testStart}
	mockService.On("CreateBooking", c.Request.Context(), input).Return(testBooking(domain.BookingStatusPending), nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), response.ID)
	assert.Equal(t, string(domain.BookingStatusPending), response.Status)
	assert.Equal(t, testStart.Format(time.RFC3339), response.StartTime)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_create_conflict(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(createBookingRequest{ServiceID: 3, StartTime: testStart})
	c.Request = httptest.NewRequest("POST", "/bookings", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(ctxUserIDKey, int64(7))

	mockService.On("CreateBooking", c.Request.Context(), mock.Anything).
		Return(nil, domain.Errf(domain.KindConflict, "slot already booked"))

	handler.create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "slot already booked")
}

func TestBookingHandler_confirm(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("PATCH", "/bookings/1/confirm", nil)
	c.Set(ctxUserIDKey, int64(7))

	mockService.On("ConfirmBooking", c.Request.Context(), int64(1), booking.Actor{UserID: 7}).
		Return(testBooking(domain.BookingStatusConfirmed), nil)

	handler.confirm(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, string(domain.BookingStatusConfirmed), response.Status)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancel_withinWindow(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("PATCH", "/bookings/1/cancel", nil)
	c.Set(ctxUserIDKey, int64(7))

	mockService.On("CancelBooking", c.Request.Context(), int64(1), int64(7)).
		Return(nil, domain.Errf(domain.KindInvalidState, "booking starts in less than 24 hours"))

	handler.cancel(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBookingHandler_get_otherUser(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("GET", "/bookings/1", nil)
	c.Set(ctxUserIDKey, int64(99))

	mockService.On("GetBooking", c.Request.Context(), int64(1)).Return(testBooking(domain.BookingStatusPending), nil)

	handler.get(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBookingHandler_get_adminSeesAny(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("GET", "/bookings/1", nil)
	c.Set(ctxUserIDKey, int64(99))
	c.Set(ctxUserRoleKey, string(domain.UserRoleAdmin))

	mockService.On("GetBooking", c.Request.Context(), int64(1)).Return(testBooking(domain.BookingStatusPending), nil)

	handler.get(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBookingHandler_get_badID(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Request = httptest.NewRequest("GET", "/bookings/abc", nil)

	handler.get(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "GetBooking")
}

func TestBookingHandler_availability(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("GET", "/bookings/availability?service_id=3&start_time=2025-06-02T10:00:00Z", nil)

	mockService.On("CheckAvailability", c.Request.Context(), int64(3), testStart).Return(true, nil)

	handler.availability(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, true, response["available"])

	mockService.AssertExpectations(t)
}

func TestBookingHandler_availability_badQuery(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("GET", "/bookings/availability?service_id=3&start_time=tomorrow", nil)

	handler.availability(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "CheckAvailability")
}

func TestBookingHandler_history(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("GET", "/bookings/my/history", nil)
	c.Set(ctxUserIDKey, int64(7))

	mockService.On("BookingHistory", c.Request.Context(), int64(7)).
		Return([]domain.Booking{*testBooking(domain.BookingStatusCompleted)}, nil)

	handler.history(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response []bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Len(t, response, 1)
	assert.Equal(t, string(domain.BookingStatusCompleted), response[0].Status)
}
