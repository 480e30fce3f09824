package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Copilot/internal/domain/models"
	domrepo "Copilot/internal/domain/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserSchema creates the account tables. Only one verified row may exist per
// lower-cased address.
var UserSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          BIGSERIAL PRIMARY KEY,
		username    VARCHAR(150) NOT NULL UNIQUE,
		email       VARCHAR(254) NOT NULL DEFAULT '',
		password    VARCHAR(128) NOT NULL,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		date_joined TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_login  TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS email_addresses (
		id       BIGSERIAL PRIMARY KEY,
		user_id  BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		email    VARCHAR(254) NOT NULL,
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		"primary" BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (user_id, email)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS email_addresses_verified_uniq
		ON email_addresses (LOWER(email)) WHERE verified`,
	`CREATE INDEX IF NOT EXISTS users_email_lower_idx ON users (LOWER(email))`,
}

const uniqueViolation = "23505"

// UserRepo stores accounts in PostgreSQL.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, username, email, password, is_active, date_joined, last_login`

func (r *UserRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	joined := u.DateJoined
	if joined.IsZero() {
		joined = time.Now().UTC()
	}
	row := tx.QueryRow(ctx,
		`INSERT INTO users (username, email, password, is_active, date_joined)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+userColumns,
		u.Username, u.Email, u.PasswordHash, u.IsActive, joined,
	)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domrepo.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if u.Email != "" {
		if _, err := tx.Exec(ctx,
			`INSERT INTO email_addresses (user_id, email, verified, "primary") VALUES ($1, $2, FALSE, TRUE)`,
			created.ID, u.Email,
		); err != nil {
			return nil, fmt.Errorf("insert email: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return notFound(scanUser(row))
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return notFound(scanUser(row))
}

func (r *UserRepo) ListByEmail(ctx context.Context, email string) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1) AND is_active ORDER BY id`,
		strings.TrimSpace(email),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	// email_addresses rows go with ON DELETE CASCADE.
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domrepo.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domrepo.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	return err
}

func (r *UserRepo) PrimaryEmail(ctx context.Context, userID int64) (*models.EmailAddress, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, email, verified, "primary" FROM email_addresses
		 WHERE user_id = $1 ORDER BY "primary" DESC, id ASC LIMIT 1`,
		userID,
	)
	var e models.EmailAddress
	if err := row.Scan(&e.ID, &e.UserID, &e.Email, &e.Verified, &e.Primary); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domrepo.ErrUserNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *UserRepo) IsEmailVerified(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM email_addresses WHERE LOWER(email) = LOWER($1) AND verified)`,
		strings.TrimSpace(email),
	).Scan(&exists)
	return exists, err
}

func (r *UserRepo) MarkEmailVerified(ctx context.Context, userID int64, email string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE email_addresses SET verified = TRUE WHERE user_id = $1 AND LOWER(email) = LOWER($2)`,
		userID, email,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domrepo.ErrEmailTaken
		}
		return fmt.Errorf("verify email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domrepo.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.DateJoined, &u.LastLogin); err != nil {
		return nil, err
	}
	return &u, nil
}

func notFound(u *models.User, err error) (*models.User, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domrepo.ErrUserNotFound
	}
	return u, err
}
