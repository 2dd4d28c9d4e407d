package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	iofs "github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campusmarket/marketplace/services/messaging-api/migrations"
)

const migrationsTable = "messaging_schema_migrations"

// Migrator applies the embedded SQL migrations over a dedicated connection.
type Migrator struct {
	migrate *migrate.Migrate
	log     zerolog.Logger
}

// NewMigrator acquires a connection from the pool and prepares golang-migrate.
// Callers must Close the migrator.
func NewMigrator(ctx context.Context, gormDB *gorm.DB, log zerolog.Logger) (*Migrator, error) {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("retrieve sql db: %w", err)
	}

	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire dedicated connection: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{
		MigrationsTable: migrationsTable,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize postgres driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = source.Close()
		_ = driver.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return &Migrator{
		migrate: m,
		log:     log.With().Str("component", "migrator").Logger(),
	}, nil
}

// Up applies all pending migrations, clearing a dirty state left by a failed run first.
func (m *Migrator) Up() error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		m.log.Warn().Uint("version", version).Msg("database is in dirty state, forcing version")
		if err := m.migrate.Force(int(version)); err != nil {
			return fmt.Errorf("force version %d to clear dirty state: %w", version, err)
		}
	}

	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.log.Info().Msg("no new migrations to apply")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	if final, _, err := m.Version(); err == nil {
		m.log.Info().Uint("version", final).Msg("migrations applied")
	}
	return nil
}

// Down rolls back the given number of migrations.
func (m *Migrator) Down(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive")
	}
	if err := m.migrate.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("roll back migrations: %w", err)
	}
	return nil
}

// Version reports the current schema version. A fresh database reports 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Close releases the migration source and connection.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}

// AutoMigrate applies all pending SQL migrations bundled with the service.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) (err error) {
	migrator, err := NewMigrator(ctx, db, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close migrator: %w", closeErr)
		}
	}()
	return migrator.Up()
}
