package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ekrukov/slotbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReviewUpdate lists the mutable review fields. Nil means "leave as is".
type ReviewUpdate struct {
	Rating  *int
	Comment *string
}

type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, id int64) (*domain.Review, error)
	GetByBookingID(ctx context.Context, bookingID int64) (*domain.Review, error)
	ListByService(ctx context.Context, serviceID int64) ([]domain.Review, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Review, error)
	Update(ctx context.Context, id int64, update ReviewUpdate) (*domain.Review, error)
	Delete(ctx context.Context, id int64) error
}

type PGReviewRepository struct {
	db *pgxpool.Pool
}

func NewReviewRepository(db *pgxpool.Pool) ReviewRepository {
	return &PGReviewRepository{db: db}
}

const reviewColumns = `id, booking_id, rating, comment, created_at`

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rv domain.Review
	if err := row.Scan(&rv.ID, &rv.BookingID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *PGReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	id, err := nextSequence(ctx, r.db, SeqReviewID)
	if err != nil {
		return err
	}
	review.ID = id
	if err := r.db.QueryRow(ctx, `INSERT INTO reviews (id, booking_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		review.ID, review.BookingID, review.Rating, review.Comment).
		Scan(&review.CreatedAt); err != nil {
		return domain.WrapErr(domain.KindUnavailable, err, "insert review")
	}
	return nil
}

func (r *PGReviewRepository) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	rv, err := scanReview(r.db.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Errf(domain.KindNotFound, "review not found")
		}
		return nil, domain.WrapErr(domain.KindUnavailable, err, "get review")
	}
	return rv, nil
}

func (r *PGReviewRepository) GetByBookingID(ctx context.Context, bookingID int64) (*domain.Review, error) {
	rv, err := scanReview(r.db.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE booking_id=$1`, bookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Errf(domain.KindNotFound, "review not found")
		}
		return nil, domain.WrapErr(domain.KindUnavailable, err, "get review by booking")
	}
	return rv, nil
}

func (r *PGReviewRepository) ListByService(ctx context.Context, serviceID int64) ([]domain.Review, error) {
	return r.list(ctx, `SELECT r.id, r.booking_id, r.rating, r.comment, r.created_at
		FROM reviews r JOIN bookings b ON b.id = r.booking_id
		WHERE b.service_id = $1
		ORDER BY r.created_at DESC`, serviceID)
}

func (r *PGReviewRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Review, error) {
	return r.list(ctx, `SELECT r.id, r.booking_id, r.rating, r.comment, r.created_at
		FROM reviews r JOIN bookings b ON b.id = r.booking_id
		WHERE b.user_id = $1
		ORDER BY r.created_at DESC`, userID)
}

func (r *PGReviewRepository) Update(ctx context.Context, id int64, update ReviewUpdate) (*domain.Review, error) {
	set := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if update.Rating != nil {
		args = append(args, *update.Rating)
		set = append(set, fmt.Sprintf("rating=$%d", len(args)))
	}
	if update.Comment != nil {
		args = append(args, *update.Comment)
		set = append(set, fmt.Sprintf("comment=$%d", len(args)))
	}
	if len(set) == 0 {
		return nil, domain.Errf(domain.KindInvalidInput, "no fields to update")
	}

	args = append(args, id)
	sql := fmt.Sprintf(`UPDATE reviews SET %s WHERE id=$%d RETURNING %s`,
		strings.Join(set, ", "), len(args), reviewColumns)
	rv, err := scanReview(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Errf(domain.KindNotFound, "review not found")
		}
		return nil, domain.WrapErr(domain.KindUnavailable, err, "update review")
	}
	return rv, nil
}

func (r *PGReviewRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id=$1`, id)
	if err != nil {
		return domain.WrapErr(domain.KindUnavailable, err, "delete review")
	}
	if cmd.RowsAffected() == 0 {
		return domain.Errf(domain.KindNotFound, "review not found")
	}
	return nil
}

func (r *PGReviewRepository) list(ctx context.Context, sql string, args ...any) ([]domain.Review, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.WrapErr(domain.KindUnavailable, err, "query reviews")
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.BookingID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, domain.WrapErr(domain.KindUnavailable, err, "scan review")
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapErr(domain.KindUnavailable, err, "iterate reviews")
	}
	return reviews, nil
}

var _ ReviewRepository = (*PGReviewRepository)(nil)
