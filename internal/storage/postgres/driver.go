package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/skybi/ticketdesk/internal/session"
	"github.com/skybi/ticketdesk/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Driver represents the PostgreSQL storage driver implementation
type Driver struct {
	dsn      string
	db       *pgxpool.Pool
	sessions *SessionRepository
}

var _ storage.Driver = (*Driver)(nil)

// New creates a new empty PostgreSQL storage driver.
// Use Initialize to open the database connection and initialize the repository implementations.
func New(dsn string) *Driver {
	return &Driver{
		dsn: dsn,
	}
}

// Initialize opens the database connection, migrates the database and initializes the repository implementations
func (driver *Driver) Initialize(ctx context.Context) error {
	// Perform SQL migrations
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	migrator, err := migrate.NewWithSourceInstance("iofs", source, driver.dsn)
	if err != nil {
		return err
	}
	defer migrator.Close()
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating the session schema: %w", err)
	}
	if version, dirty, err := migrator.Version(); err == nil {
		log.Debug().Uint("version", version).Bool("dirty", dirty).Msg("session schema is up to date")
	}

	pool, err := pgxpool.Connect(ctx, driver.dsn)
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging the session database: %w", err)
	}
	driver.db = pool
	driver.sessions = &SessionRepository{db: pool}
	return nil
}

// Sessions provides the PostgreSQL session repository implementation
func (driver *Driver) Sessions() session.Repository {
	return driver.sessions
}

// Close discards the repository implementations and closes the database connection
func (driver *Driver) Close() {
	driver.sessions = nil
	if driver.db != nil {
		driver.db.Close()
		driver.db = nil
	}
}
