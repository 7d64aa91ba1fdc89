package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ekrukov/slotbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// advisory lock class for per-service slot serialization.
const slotLockClass = 3301

type BookingRepository interface {
	Insert(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error)
	ListByService(ctx context.Context, serviceID int64) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error)
	FindConflicts(ctx context.Context, serviceID int64, start, end time.Time) ([]domain.Booking, error)
	CompleteConfirmedBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, user_id, service_id, start_time, end_time, status, created_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.UserID, &b.ServiceID, &b.StartTime, &b.EndTime, &b.Status, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// Insert persists a new pending booking. The conflict re-check, the id
// allocation and the insert run in one transaction under a per-service
// advisory lock, so two racing creates for overlapping windows cannot both
// commit.
func (r *PGBookingRepository) Insert(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.WrapErr(domain.KindUnavailable, err, "begin booking insert")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2::int)`, slotLockClass, booking.ServiceID); err != nil {
		return domain.WrapErr(domain.KindUnavailable, err, "lock service slots")
	}

	var clashes int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM bookings
		WHERE service_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $2 AND end_time > $3`,
		booking.ServiceID, booking.EndTime, booking.StartTime).Scan(&clashes); err != nil {
		return domain.WrapErr(domain.KindUnavailable, err, "check slot conflicts")
	}
	if clashes > 0 {
		return domain.Errf(domain.KindConflict, "slot already booked")
	}

	id, err := nextSequence(ctx, tx, SeqBookingID)
	if err != nil {
		return err
	}

	booking.ID = id
	booking.Status = domain.BookingStatusPending
	if err := tx.QueryRow(ctx, `INSERT INTO bookings (id, user_id, service_id, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		booking.ID, booking.UserID, booking.ServiceID, booking.StartTime, booking.EndTime, booking.Status).
		Scan(&booking.CreatedAt); err != nil {
		return domain.WrapErr(domain.KindUnavailable, err, "insert booking")
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.WrapErr(domain.KindUnavailable, err, "commit booking insert")
	}
	return nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Errf(domain.KindNotFound, "booking not found")
		}
		return nil, domain.WrapErr(domain.KindUnavailable, err, "get booking")
	}
	return b, nil
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY start_time`, userID)
}

func (r *PGBookingRepository) ListByService(ctx context.Context, serviceID int64) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE service_id=$1 ORDER BY start_time`, serviceID)
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings SET status=$1 WHERE id=$2 RETURNING `+bookingColumns, status, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Errf(domain.KindNotFound, "booking not found")
		}
		return nil, domain.WrapErr(domain.KindUnavailable, err, "update booking status")
	}
	return b, nil
}

// FindConflicts returns active bookings for the service whose slot overlaps
// [start, end).
func (r *PGBookingRepository) FindConflicts(ctx context.Context, serviceID int64, start, end time.Time) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE service_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $2 AND end_time > $3
		ORDER BY start_time`, serviceID, end, start)
}

// CompleteConfirmedBefore marks confirmed bookings whose end time has passed
// as completed and returns them.
func (r *PGBookingRepository) CompleteConfirmedBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	return r.list(ctx, `UPDATE bookings SET status=$1
		WHERE status=$2 AND end_time <= $3
		RETURNING `+bookingColumns,
		domain.BookingStatusCompleted, domain.BookingStatusConfirmed, deadline)
}

func (r *PGBookingRepository) list(ctx context.Context, sql string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.WrapErr(domain.KindUnavailable, err, "query bookings")
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.ServiceID, &b.StartTime, &b.EndTime, &b.Status, &b.CreatedAt); err != nil {
			return nil, domain.WrapErr(domain.KindUnavailable, err, "scan booking")
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapErr(domain.KindUnavailable, err, "iterate bookings")
	}
	return bookings, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
