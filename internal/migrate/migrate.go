// Package migrate applies the embedded schema migrations. The sql files
// ship inside the binary, so a deployed bot needs no migration directory
// next to it.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed sql/*.sql
var schemaFS embed.FS

// Apply brings the database up to the latest embedded schema version.
// An already current database is not an error.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	src, err := iofs.New(schemaFS, "sql")
	if err != nil {
		return fmt.Errorf("read embedded schema: %w", err)
	}

	// golang-migrate wants a database/sql handle, so open a separate
	// stdlib connection from the pool's DSN rather than reusing pgxpool.
	conn, err := sql.Open("pgx", pool.Config().ConnString())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping migration connection: %w", err)
	}

	driver, err := postgres.WithInstance(conn, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("init postgres driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx", driver)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
