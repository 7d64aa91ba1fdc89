package repository

import (
	"context"

	"github.com/ekrukov/slotbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sequence names handed to the allocator.
const (
	SeqBookingID = "booking_id"
	SeqUserID    = "user_id"
	SeqServiceID = "service_id"
	SeqReviewID  = "review_id"
)

// SequenceAllocator hands out monotonically increasing ids per named
// sequence. Concurrent callers never receive the same value.
type SequenceAllocator interface {
	Next(ctx context.Context, name string) (int64, error)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so a sequence can
// be advanced inside an open transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PGSequenceRepository struct {
	db *pgxpool.Pool
}

func NewSequenceRepository(db *pgxpool.Pool) *PGSequenceRepository {
	return &PGSequenceRepository{db: db}
}

func (r *PGSequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	return nextSequence(ctx, r.db, name)
}

// nextSequence is a single atomic increment-and-fetch: the first call for a
// name yields 1.
func nextSequence(ctx context.Context, q querier, name string) (int64, error) {
	var value int64
	err := q.QueryRow(ctx, `INSERT INTO counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value`, name).Scan(&value)
	if err != nil {
		return 0, domain.WrapErr(domain.KindUnavailable, err, "advance sequence "+name)
	}
	return value, nil
}

var _ SequenceAllocator = (*PGSequenceRepository)(nil)
