package reviews

import (
	"context"
	"math"
	"strings"

	"github.com/ekrukov/slotbooking/internal/domain"
	"github.com/ekrukov/slotbooking/internal/repository"
)

const maxRecentLimit = 50

type ReviewUseCase interface {
	Create(ctx context.Context, input CreateReviewInput) (*domain.Review, error)
	GetByID(ctx context.Context, id int64) (*domain.Review, error)
	ListByService(ctx context.Context, serviceID int64) ([]domain.Review, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Review, error)
	Update(ctx context.Context, id, actorUserID int64, update repository.ReviewUpdate) (*domain.Review, error)
	Delete(ctx context.Context, id, actorUserID int64) error
	ServiceStats(ctx context.Context, serviceID int64) (*RatingStats, error)
	Recent(ctx context.Context, serviceID int64, limit int) ([]domain.Review, error)
}

type CreateReviewInput struct {
	BookingID int64  `json:"booking_id"`
	UserID    int64  `json:"-"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// RatingStats aggregates reviews of one service.
type RatingStats struct {
	TotalReviews  int         `json:"total_reviews"`
	AverageRating float64     `json:"average_rating"`
	Distribution  map[int]int `json:"rating_distribution"`
}

type ReviewService struct {
	reviews  repository.ReviewRepository
	bookings repository.BookingRepository
}

func NewReviewService(reviews repository.ReviewRepository, bookings repository.BookingRepository) *ReviewService {
	return &ReviewService{reviews: reviews, bookings: bookings}
}

// Create records a review for the caller's own completed booking. One
// review per booking.
func (s *ReviewService) Create(ctx context.Context, input CreateReviewInput) (*domain.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, domain.Errf(domain.KindInvalidInput, "rating must be between 1 and 5")
	}

	booking, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != input.UserID {
		return nil, domain.Errf(domain.KindUnauthorized, "booking belongs to another user")
	}
	if booking.Status != domain.BookingStatusCompleted {
		return nil, domain.Errf(domain.KindInvalidState, "can only review completed bookings")
	}

	if _, err := s.reviews.GetByBookingID(ctx, input.BookingID); err == nil {
		return nil, domain.Errf(domain.KindConflict, "review already exists for this booking")
	} else if !domain.IsKind(err, domain.KindNotFound) {
		return nil, err
	}

	review := &domain.Review{
		BookingID: input.BookingID,
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	return s.reviews.GetByID(ctx, id)
}

func (s *ReviewService) ListByService(ctx context.Context, serviceID int64) ([]domain.Review, error) {
	return s.reviews.ListByService(ctx, serviceID)
}

func (s *ReviewService) ListByUser(ctx context.Context, userID int64) ([]domain.Review, error) {
	return s.reviews.ListByUser(ctx, userID)
}

func (s *ReviewService) Update(ctx context.Context, id, actorUserID int64, update repository.ReviewUpdate) (*domain.Review, error) {
	if update.Rating != nil && (*update.Rating < 1 || *update.Rating > 5) {
		return nil, domain.Errf(domain.KindInvalidInput, "rating must be between 1 and 5")
	}
	if update.Comment != nil {
		trimmed := strings.TrimSpace(*update.Comment)
		update.Comment = &trimmed
	}

	if err := s.authorize(ctx, id, actorUserID); err != nil {
		return nil, err
	}
	return s.reviews.Update(ctx, id, update)
}

func (s *ReviewService) Delete(ctx context.Context, id, actorUserID int64) error {
	if err := s.authorize(ctx, id, actorUserID); err != nil {
		return err
	}
	return s.reviews.Delete(ctx, id)
}

func (s *ReviewService) ServiceStats(ctx context.Context, serviceID int64) (*RatingStats, error) {
	reviews, err := s.reviews.ListByService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	stats := &RatingStats{Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	if len(reviews) == 0 {
		return stats, nil
	}

	total := 0
	for _, rv := range reviews {
		total += rv.Rating
		stats.Distribution[rv.Rating]++
	}
	stats.TotalReviews = len(reviews)
	stats.AverageRating = math.Round(float64(total)/float64(len(reviews))*100) / 100
	return stats, nil
}

// Recent returns the newest reviews for a service, capped at maxRecentLimit.
func (s *ReviewService) Recent(ctx context.Context, serviceID int64, limit int) ([]domain.Review, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > maxRecentLimit {
		return nil, domain.Errf(domain.KindInvalidInput, "limit cannot exceed %d", maxRecentLimit)
	}

	reviews, err := s.reviews.ListByService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if len(reviews) > limit {
		reviews = reviews[:limit]
	}
	return reviews, nil
}

func (s *ReviewService) authorize(ctx context.Context, reviewID, actorUserID int64) error {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	booking, err := s.bookings.GetByID(ctx, review.BookingID)
	if err != nil {
		return err
	}
	if booking.UserID != actorUserID {
		return domain.Errf(domain.KindUnauthorized, "review belongs to another user")
	}
	return nil
}

var _ ReviewUseCase = (*ReviewService)(nil)
