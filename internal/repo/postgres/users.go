package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/eventloop/internal/domain/user"
	"github.com/geocoder89/eventloop/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, name, image, password_hash, role, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var role string

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Image,
		&u.PasswordHash,
		&role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return user.User{}, err
	}

	u.Role = user.ParseRole(role)
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	var err error

	err = r.prom.ObserveDB("users.get_by_email", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			user.NormalizeEmail(email),
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if !validID(id) {
		return user.User{}, user.ErrNotFound
	}

	var u user.User
	var err error

	err = r.prom.ObserveDB("users.get_by_id", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, p user.CreateParams) (user.User, error) {
	u := user.New(p)

	err := r.prom.ObserveDB("users.create", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO users (id, email, name, image, password_hash, role, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, u.ID, u.Email, u.Name, u.Image, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt)
		return err
	})

	if err != nil {
		if isConstraintViolation(err, constraintUsersEmail) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}
	return u, nil
}

// Upsert inserts or refreshes name, password hash and role for the email.
func (r *UsersRepo) Upsert(ctx context.Context, p user.CreateParams) (user.User, error) {
	fresh := user.New(p)

	var u user.User
	var err error

	err = r.prom.ObserveDB("users.upsert", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx, `
			INSERT INTO users (id, email, name, image, password_hash, role, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (email) DO UPDATE
			SET name = EXCLUDED.name,
			    password_hash = EXCLUDED.password_hash,
			    role = EXCLUDED.role,
			    updated_at = NOW()
			RETURNING `+userColumns,
			fresh.ID, fresh.Email, fresh.Name, fresh.Image, fresh.PasswordHash, string(fresh.Role), fresh.CreatedAt, fresh.UpdatedAt,
		))
		return err
	})

	if err != nil {
		return user.User{}, err
	}
	return u, nil
}
