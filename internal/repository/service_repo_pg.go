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

// ServiceUpdate lists the mutable catalog fields. Nil means "leave as is".
type ServiceUpdate struct {
	Title           *string
	Description     *string
	PriceCents      *int64
	DurationMinutes *int
	IsActive        *bool
}

type ServiceRepository interface {
	Create(ctx context.Context, service *domain.Service) error
	GetByID(ctx context.Context, id int64) (*domain.Service, error)
	ListActive(ctx context.Context) ([]domain.Service, error)
	Update(ctx context.Context, id int64, update ServiceUpdate) (*domain.Service, error)
}

type PGServiceRepository struct {
	db *pgxpool.Pool
}

func NewServiceRepository(db *pgxpool.Pool) ServiceRepository {
	return &PGServiceRepository{db: db}
}

const serviceColumns = `id, title, description, price_cents, duration_minutes, is_active, created_at, updated_at`

func scanService(row pgx.Row) (*domain.Service, error) {
	var s domain.Service
	if err := row.Scan(&s.ID, &s.Title, &s.Description, &s.PriceCents, &s.DurationMinutes, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PGServiceRepository) Create(ctx context.Context, service *domain.Service) error {
	id, err := nextSequence(ctx, r.db, SeqServiceID)
	if err != nil {
		return err
	}
	service.ID = id
	if err := r.db.QueryRow(ctx, `INSERT INTO services (id, title, description, price_cents, duration_minutes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		service.ID, service.Title, service.Description, service.PriceCents, service.DurationMinutes, service.IsActive).
		Scan(&service.CreatedAt, &service.UpdatedAt); err != nil {
		return domain.WrapErr(domain.KindUnavailable, err, "insert service")
	}
	return nil
}

func (r *PGServiceRepository) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	s, err := scanService(r.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Errf(domain.KindNotFound, "service not found")
		}
		return nil, domain.WrapErr(domain.KindUnavailable, err, "get service")
	}
	return s, nil
}

func (r *PGServiceRepository) ListActive(ctx context.Context) ([]domain.Service, error) {
	rows, err := r.db.Query(ctx, `SELECT `+serviceColumns+` FROM services WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, domain.WrapErr(domain.KindUnavailable, err, "list services")
	}
	defer rows.Close()

	services := make([]domain.Service, 0)
	for rows.Next() {
		var s domain.Service
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.PriceCents, &s.DurationMinutes, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, domain.WrapErr(domain.KindUnavailable, err, "scan service")
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapErr(domain.KindUnavailable, err, "iterate services")
	}
	return services, nil
}

func (r *PGServiceRepository) Update(ctx context.Context, id int64, update ServiceUpdate) (*domain.Service, error) {
	set := make([]string, 0, 5)
	args := make([]any, 0, 6)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.PriceCents != nil {
		add("price_cents", *update.PriceCents)
	}
	if update.DurationMinutes != nil {
		add("duration_minutes", *update.DurationMinutes)
	}
	if update.IsActive != nil {
		add("is_active", *update.IsActive)
	}
	if len(set) == 0 {
		return nil, domain.Errf(domain.KindInvalidInput, "no fields to update")
	}

	args = append(args, id)
	sql := fmt.Sprintf(`UPDATE services SET %s, updated_at=now() WHERE id=$%d RETURNING %s`,
		strings.Join(set, ", "), len(args), serviceColumns)
	s, err := scanService(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Errf(domain.KindNotFound, "service not found")
		}
		return nil, domain.WrapErr(domain.KindUnavailable, err, "update service")
	}
	return s, nil
}

var _ ServiceRepository = (*PGServiceRepository)(nil)
