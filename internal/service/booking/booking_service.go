package booking

import (
	"context"
	"time"

	"github.com/ekrukov/slotbooking/internal/domain"
	"github.com/ekrukov/slotbooking/internal/kafka"
	"github.com/ekrukov/slotbooking/internal/repository"
	"go.uber.org/zap"
)

// cancellationWindow is the minimum lead time before start for a cancel.
const cancellationWindow = 24 * time.Hour

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID int64, actor Actor) (*domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID, actorUserID int64) (*domain.Booking, error)
	CompleteBooking(ctx context.Context, bookingID int64) (*domain.Booking, error)
	CheckAvailability(ctx context.Context, serviceID int64, start time.Time) (bool, error)
	GetBooking(ctx context.Context, bookingID int64) (*domain.Booking, error)
	UpcomingBookings(ctx context.Context, userID int64) ([]domain.Booking, error)
	BookingHistory(ctx context.Context, userID int64) ([]domain.Booking, error)
	CompleteElapsed(ctx context.Context) ([]domain.Booking, error)
}

// Actor identifies the caller of a transition. Admin bypasses the ownership
// check on confirm.
type Actor struct {
	UserID int64
	Admin  bool
}

// UserDirectory resolves user ids; existence is all the engine needs.
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// ServiceCatalog resolves service ids to the active flag and duration.
type ServiceCatalog interface {
	GetByID(ctx context.Context, id int64) (*domain.Service, error)
}

type Cache interface {
	AcquireSlotLock(ctx context.Context, serviceID int64, start time.Time, ttl time.Duration) (bool, error)
	ReleaseSlotLock(ctx context.Context, serviceID int64, start time.Time) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	users              UserDirectory
	catalog            ServiceCatalog
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	holdTTL            time.Duration
	now                func() time.Time
	log                *zap.Logger
}

type CreateBookingInput struct {
	UserID    int64     `json:"user_id"`
	ServiceID int64     `json:"service_id"`
	StartTime time.Time `json:"start_time"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

// WithClock overrides the engine clock. The clock must return UTC times.
func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func WithLogger(log *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.log = log
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	users UserDirectory,
	catalog ServiceCatalog,
	cache Cache,
	producer Producer,
	bookingTopic string,
	holdTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		users:        users,
		catalog:      catalog,
		cache:        cache,
		producer:     producer,
		bookingTopic: bookingTopic,
		holdTTL:      holdTTL,
		now:          func() time.Time { return time.Now().UTC() },
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking validates the caller, the service and the requested slot,
// then persists a pending booking. Preconditions are checked in order and
// the first failure wins; nothing is written before all of them pass.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if _, err := s.users.GetByID(ctx, input.UserID); err != nil {
		return nil, err
	}
	svc, err := s.catalog.GetByID(ctx, input.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive {
		return nil, domain.Errf(domain.KindInvalidState, "service unavailable")
	}

	now := s.now()
	start := input.StartTime.UTC().Truncate(time.Second)
	if !start.After(now) {
		return nil, domain.Errf(domain.KindInvalidInput, "start time must be in the future")
	}
	end := start.Add(svc.Duration())

	locked := false
	if s.cache != nil {
		ok, err := s.cache.AcquireSlotLock(ctx, input.ServiceID, start, s.holdTTL)
		if err != nil {
			return nil, domain.WrapErr(domain.KindUnavailable, err, "acquire slot lock")
		}
		if !ok {
			return nil, domain.Errf(domain.KindConflict, "slot already booked")
		}
		locked = true
	}
	releaseLock := func() {
		if locked {
			_ = s.cache.ReleaseSlotLock(ctx, input.ServiceID, start)
		}
	}

	conflicts, err := s.bookings.FindConflicts(ctx, input.ServiceID, start, end)
	if err != nil {
		releaseLock()
		return nil, err
	}
	if len(conflicts) > 0 {
		releaseLock()
		return nil, domain.Errf(domain.KindConflict, "slot already booked")
	}

	booking := &domain.Booking{
		UserID:    input.UserID,
		ServiceID: input.ServiceID,
		StartTime: start,
		EndTime:   end,
	}
	if err := s.bookings.Insert(ctx, booking); err != nil {
		releaseLock()
		return nil, err
	}
	// The row is committed, the store guards the slot from here on.
	releaseLock()

	s.publish(ctx, "booking_created", booking)
	return booking, nil
}

func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID int64, actor Actor) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && current.UserID != actor.UserID {
		return nil, domain.Errf(domain.KindUnauthorized, "booking belongs to another user")
	}
	if current.Status != domain.BookingStatusPending {
		return nil, domain.Errf(domain.KindInvalidState, "only pending bookings can be confirmed")
	}
	if !current.StartTime.After(s.now()) {
		return nil, domain.Errf(domain.KindInvalidState, "cannot confirm past booking")
	}

	updated, err := s.bookings.UpdateStatus(ctx, bookingID, domain.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "booking_confirmed", updated)
	return updated, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorUserID int64) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.UserID != actorUserID {
		return nil, domain.Errf(domain.KindUnauthorized, "booking belongs to another user")
	}
	if current.Status.IsTerminal() {
		return nil, domain.Errf(domain.KindInvalidState, "booking is already %s", current.Status)
	}
	if current.StartTime.Sub(s.now()) < cancellationWindow {
		return nil, domain.Errf(domain.KindInvalidState, "cannot cancel within 24 hours of start")
	}

	updated, err := s.bookings.UpdateStatus(ctx, bookingID, domain.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "booking_cancelled", updated)
	return updated, nil
}

// CompleteBooking marks a confirmed booking whose slot has elapsed as
// completed. Authorization is enforced by the caller.
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.BookingStatusConfirmed {
		return nil, domain.Errf(domain.KindInvalidState, "only confirmed bookings can be completed")
	}
	if s.now().Before(current.EndTime) {
		return nil, domain.Errf(domain.KindInvalidState, "cannot complete before end time")
	}

	updated, err := s.bookings.UpdateStatus(ctx, bookingID, domain.BookingStatusCompleted)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "booking_completed", updated)
	return updated, nil
}

// CheckAvailability reports whether the slot starting at start is free. A
// missing or inactive service yields false without an error.
func (s *BookingService) CheckAvailability(ctx context.Context, serviceID int64, start time.Time) (bool, error) {
	svc, err := s.catalog.GetByID(ctx, serviceID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	if !svc.IsActive {
		return false, nil
	}

	from := start.UTC().Truncate(time.Second)
	conflicts, err := s.bookings.FindConflicts(ctx, serviceID, from, from.Add(svc.Duration()))
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

// UpcomingBookings filters the user's bookings down to active ones that have
// not started yet.
func (s *BookingService) UpcomingBookings(ctx context.Context, userID int64) ([]domain.Booking, error) {
	all, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	upcoming := make([]domain.Booking, 0)
	for _, b := range all {
		if b.StartTime.After(now) && b.Status.IsActive() {
			upcoming = append(upcoming, b)
		}
	}
	return upcoming, nil
}

// BookingHistory filters the user's bookings down to elapsed or terminal
// ones. The predicate is independent of UpcomingBookings: a confirmed
// booking past its end time but not yet completed shows up here by time.
func (s *BookingService) BookingHistory(ctx context.Context, userID int64) ([]domain.Booking, error) {
	all, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	history := make([]domain.Booking, 0)
	for _, b := range all {
		if !b.EndTime.After(now) || b.Status.IsTerminal() {
			history = append(history, b)
		}
	}
	return history, nil
}

// CompleteElapsed sweeps confirmed bookings whose end time has passed,
// applying the same rule as CompleteBooking in bulk.
func (s *BookingService) CompleteElapsed(ctx context.Context) ([]domain.Booking, error) {
	completed, err := s.bookings.CompleteConfirmedBefore(ctx, s.now())
	if err != nil {
		return nil, err
	}
	for i := range completed {
		s.publish(ctx, "booking_completed", &completed[i])
	}
	return completed, nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:      eventType,
		BookingID: booking.ID,
		UserID:    booking.UserID,
		ServiceID: booking.ServiceID,
		StartTime: booking.StartTime,
		EndTime:   booking.EndTime,
		Status:    string(booking.Status),
	}
	key := kafka.BookingKey(booking.ID)
	if err := s.producer.Publish(ctx, s.bookingTopic, key, event); err != nil {
		s.log.Warn("publish booking event failed",
			zap.String("type", eventType), zap.Int64("booking_id", booking.ID), zap.Error(err))
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, key, event); err != nil {
			s.log.Warn("publish notification event failed",
				zap.String("type", eventType), zap.Int64("booking_id", booking.ID), zap.Error(err))
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
