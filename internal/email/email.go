package email

import (
	"context"

	"github.com/ekrukov/slotbooking/internal/kafka"
	"go.uber.org/zap"
)

// Sender delivers booking notifications. The transport is a stub; only the
// routing of events to users is wired.
type Sender struct {
	log *zap.Logger
}

func NewSender(log *zap.Logger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	s.log.Info("send booking notification",
		zap.String("type", event.Type),
		zap.Int64("booking_id", event.BookingID),
		zap.Int64("user_id", event.UserID),
		zap.Int64("service_id", event.ServiceID),
		zap.Time("start_time", event.StartTime),
	)
	return nil
}
