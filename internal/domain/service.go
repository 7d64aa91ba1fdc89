package domain

import "time"

// Service is a bookable catalog entry. The booking engine only reads it.
type Service struct {
	ID              int64
	Title           string
	Description     string
	PriceCents      int64
	DurationMinutes int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Duration returns the slot length a booking of this service occupies.
func (s *Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}
