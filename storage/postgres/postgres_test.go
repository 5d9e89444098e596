package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/gatehouse/storage"
)

var userColumns = []string{"id", "name", "email", "password_hash", "created_at"}

func TestStore_GetByEmail(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      *storage.User
		wantErr   error
		errMsg    string
	}{
		{
			name: "found by lowercased key",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT id, name, email, password_hash, created_at FROM users WHERE lower\(email\) = \$1`).
					WithArgs("alice@example.com").
					WillReturnRows(pgxmock.NewRows(userColumns).
						AddRow(int64(7), "Alice", "Alice@example.com", "hash", created))
			},
			want: &storage.User{ID: 7, Name: "Alice", Email: "Alice@example.com", PasswordHash: "hash", CreatedAt: created},
		},
		{
			name: "no rows",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE lower\(email\)`).
					WithArgs("alice@example.com").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: storage.ErrNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE lower\(email\)`).
					WithArgs("alice@example.com").
					WillReturnError(errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			got, err := NewRepository(mock).GetByEmail(context.Background(), " Alice@Example.com")
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestStore_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Now().UTC()
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow(int64(3), "Bob", "bob@example.com", "h", created))
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(int64(4)).
		WillReturnError(pgx.ErrNoRows)

	s := NewRepository(mock)
	u, err := s.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Bob", u.Name)

	_, err = s.GetByID(context.Background(), 4)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Create(t *testing.T) {
	created := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantID    int64
		wantErr   error
		errMsg    string
	}{
		{
			name: "insert returns id",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users \(name, email, password_hash\)`).
					WithArgs("Alice", "alice@example.com", "hash").
					WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))
			},
			wantID: 42,
		},
		{
			name: "unique violation maps to duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("Alice", "alice@example.com", "hash").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr: storage.ErrDuplicateEmail,
		},
		{
			name: "other errors are wrapped",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("Alice", "alice@example.com", "hash").
					WillReturnError(errors.New("disk full"))
			},
			errMsg: "inserting user: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setupMock(mock)

			u := &storage.User{Name: "Alice", Email: " alice@example.com ", PasswordHash: "hash"}
			err = NewRepository(mock).Create(context.Background(), u)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, u.ID)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, u.ID)
				assert.Equal(t, "alice@example.com", u.Email)
				assert.Equal(t, created, u.CreatedAt)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestStore_Updates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE users SET name = \$2 WHERE id = \$1`).
		WithArgs(int64(1), "New Name").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET password_hash = \$2 WHERE id = \$1`).
		WithArgs(int64(1), "newhash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET name`).
		WithArgs(int64(99), "Ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	s := NewRepository(mock)
	ctx := context.Background()
	require.NoError(t, s.UpdateName(ctx, 1, "New Name"))
	require.NoError(t, s.UpdatePassword(ctx, 1, "newhash"))
	assert.ErrorIs(t, s.UpdateName(ctx, 99, "Ghost"), storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations(t *testing.T) {
	origUp, origReset := gooseUp, gooseReset
	defer func() { gooseUp, gooseReset = origUp, origReset }()

	var calls []string
	gooseUp = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		calls = append(calls, "up:"+dir)
		return nil
	}
	gooseReset = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		calls = append(calls, "reset:"+dir)
		return errors.New("boom")
	}

	ctx := context.Background()
	require.NoError(t, runMigrations(ctx, nil, Up))
	require.EqualError(t, runMigrations(ctx, nil, Down), "boom")
	require.Error(t, runMigrations(ctx, nil, Direction("sideways")))
	assert.Equal(t, []string{"up:migrations", "reset:migrations"}, calls)
}

func TestMigrationsEmbedded(t *testing.T) {
	data, err := migrationsFS.ReadFile("migrations/00001_create_users.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "-- +goose Up")
	assert.Contains(t, string(data), "lower(email)")
}

// TestPostgresStorage runs against a live database when
// GATEHOUSE_TEST_POSTGRES_DSN is set.
func TestPostgresStorage(t *testing.T) {
	dsn := os.Getenv("GATEHOUSE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GATEHOUSE_TEST_POSTGRES_DSN not set; skipping PostgreSQL tests")
	}

	ctx := context.Background()
	s, err := NewRepositoryFromDSN(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()

	// Clean tables for test isolation.
	s.db.Exec(ctx, "DELETE FROM users") //nolint:errcheck
	defer s.db.Exec(ctx, "DELETE FROM users") //nolint:errcheck

	u := &storage.User{Name: "Live", Email: "Live@Example.com", PasswordHash: "h"}
	require.NoError(t, s.Create(ctx, u))
	assert.NotZero(t, u.ID)

	err = s.Create(ctx, &storage.User{Name: "Dup", Email: "live@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, storage.ErrDuplicateEmail)

	got, err := s.GetByEmail(ctx, "LIVE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, s.UpdateName(ctx, u.ID, "Renamed"))
	got, err = s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}
