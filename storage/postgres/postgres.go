// Package postgres implements storage.UserRepository backed by PostgreSQL.
//
// Email uniqueness is enforced by a unique index on lower(email), so a
// concurrent duplicate insert surfaces as a unique violation that is mapped
// to storage.ErrDuplicateEmail.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcleod/gatehouse/storage"
)

// DB is the subset of *pgxpool.Pool the store uses. pgxmock pools satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements storage.UserRepository backed by PostgreSQL.
type Store struct {
	db   DB
	pool *pgxpool.Pool
}

var _ storage.UserRepository = (*Store)(nil)

// NewRepository returns a Store that issues queries against db.
func NewRepository(db DB) *Store {
	s := &Store{db: db}
	if pool, ok := db.(*pgxpool.Pool); ok {
		s.pool = pool
	}
	return s
}

// NewRepositoryFromDSN creates a connection pool from a DSN string, applies
// pending migrations, and returns a new Store.
func NewRepositoryFromDSN(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return NewRepository(pool), nil
}

// Close closes the underlying connection pool, if the store owns one.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const selectUser = `SELECT id, name, email, password_hash, created_at FROM users`

func scanUser(row pgx.Row, what string) (*storage.User, error) {
	var u storage.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", what, storage.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*storage.User, error) {
	row := s.db.QueryRow(ctx, selectUser+` WHERE lower(email) = $1`, storage.EmailKey(email))
	return scanUser(row, fmt.Sprintf("email %q", email))
}

func (s *Store) GetByID(ctx context.Context, id int64) (*storage.User, error) {
	row := s.db.QueryRow(ctx, selectUser+` WHERE id = $1`, id)
	return scanUser(row, fmt.Sprintf("id %d", id))
}

func (s *Store) Create(ctx context.Context, user *storage.User) error {
	email := storage.NormalizeEmail(user.Email)
	var (
		id  int64
		err error
	)
	if user.CreatedAt.IsZero() {
		err = s.db.QueryRow(ctx,
			`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3)
			 RETURNING id, created_at`,
			user.Name, email, user.PasswordHash).Scan(&id, &user.CreatedAt)
	} else {
		err = s.db.QueryRow(ctx,
			`INSERT INTO users (name, email, password_hash, created_at) VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			user.Name, email, user.PasswordHash, user.CreatedAt).Scan(&id)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return storage.ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	user.ID = id
	user.Email = email
	return nil
}

func (s *Store) UpdateName(ctx context.Context, id int64, name string) error {
	return s.exec(ctx, id, `UPDATE users SET name = $2 WHERE id = $1`, name)
}

func (s *Store) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return s.exec(ctx, id, `UPDATE users SET password_hash = $2 WHERE id = $1`, passwordHash)
}

func (s *Store) exec(ctx context.Context, id int64, sql string, value string) error {
	tag, err := s.db.Exec(ctx, sql, id, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("id %d: %w", id, storage.ErrNotFound)
	}
	return nil
}
