package domain

import "time"

// Review is feedback left by a user for a completed booking. At most one
// review exists per booking.
type Review struct {
	ID        int64
	BookingID int64
	Rating    int // 1..5
	Comment   string
	CreatedAt time.Time
}
