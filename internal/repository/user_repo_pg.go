package repository

import (
	"context"
	"errors"

	"github.com/ekrukov/slotbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

type PGUserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &PGUserRepository{db: db}
}

const userColumns = `id, name, email, password_hash, role, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PGUserRepository) Create(ctx context.Context, user *domain.User) error {
	id, err := nextSequence(ctx, r.db, SeqUserID)
	if err != nil {
		return err
	}
	user.ID = id
	if err := r.db.QueryRow(ctx, `INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role).
		Scan(&user.CreatedAt); err != nil {
		return domain.WrapErr(domain.KindUnavailable, err, "insert user")
	}
	return nil
}

func (r *PGUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Errf(domain.KindNotFound, "user not found")
		}
		return nil, domain.WrapErr(domain.KindUnavailable, err, "get user")
	}
	return u, nil
}

func (r *PGUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Errf(domain.KindNotFound, "user not found")
		}
		return nil, domain.WrapErr(domain.KindUnavailable, err, "get user by email")
	}
	return u, nil
}

func (r *PGUserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, hash, id)
	if err != nil {
		return domain.WrapErr(domain.KindUnavailable, err, "update password")
	}
	if cmd.RowsAffected() == 0 {
		return domain.Errf(domain.KindNotFound, "user not found")
	}
	return nil
}

var _ UserRepository = (*PGUserRepository)(nil)
