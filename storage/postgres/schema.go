package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Seams for testing the goose calls without a database.
var (
	gooseUp = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return goose.UpContext(ctx, db, dir, opts...)
	}
	gooseReset = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return goose.ResetContext(ctx, db, dir, opts...)
	}
)

// Direction selects which way Migrate moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// EnsureSchema applies every pending migration. It is safe to call on every
// startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return Migrate(ctx, pool, Up)
}

// Migrate runs the embedded goose migrations against the pool. Down rolls
// every migration back.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dir Direction) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return runMigrations(ctx, db, dir)
}

func runMigrations(ctx context.Context, db *sql.DB, dir Direction) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	switch dir {
	case Up:
		return gooseUp(ctx, db, migrationsDir)
	case Down:
		return gooseReset(ctx, db, migrationsDir)
	default:
		return fmt.Errorf("unknown migration direction %q", dir)
	}
}
