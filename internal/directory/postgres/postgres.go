// Package postgres implements a directory.Store on PostgreSQL. The schema is
// migrated on open using the migrations embedded in internal/db.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/philanthrohub/directory/internal/config"
	"github.com/philanthrohub/directory/internal/db"
	"github.com/philanthrohub/directory/internal/db/models"
	"github.com/philanthrohub/directory/internal/db/repositories"
	"github.com/philanthrohub/directory/internal/directory"
	"github.com/philanthrohub/directory/internal/telemetry"
)

func init() {
	directory.Register("postgres", func(cfg *config.Config) (directory.Store, error) {
		return Open(cfg.Database)
	})
}

// Store is a directory.Store backed by the organizations table.
type Store struct {
	db     *sql.DB
	repo   *repositories.OrganizationRepository
	cancel context.CancelFunc
}

// Open connects, applies pending migrations and starts the pool stats collector.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	database, err := db.Connect(cfg.GetDSN(), cfg.MaxConnections, cfg.MinIdleConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(database, "up"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if version, dirty, err := db.GetMigrationVersion(database); err != nil {
		slog.Warn("failed to get migration version", "error", err)
	} else {
		slog.Info("database schema ready", "version", version, "dirty", dirty)
	}

	ctx, cancel := context.WithCancel(context.Background())
	telemetry.StartDBStatsCollector(ctx, database)

	return New(database, cancel), nil
}

// New wraps an already-migrated connection. cancel, when non-nil, is called on Close.
func New(database *sql.DB, cancel context.CancelFunc) *Store {
	return &Store{
		db:     database,
		repo:   repositories.NewOrganizationRepository(sqlx.NewDb(database, "postgres")),
		cancel: cancel,
	}
}

// List returns every organization, newest first.
func (s *Store) List(ctx context.Context) ([]models.Organization, error) {
	return s.repo.List(ctx)
}

// Prepend assigns the next ID and inserts org at the head of the listing.
func (s *Store) Prepend(ctx context.Context, org models.Organization) (models.Organization, error) {
	return s.repo.Prepend(ctx, org, directory.NextID)
}

// Count returns the number of stored organizations.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Seed loads orgs when the table is empty.
func (s *Store) Seed(ctx context.Context, orgs []models.Organization) (int, error) {
	if err := directory.CheckSeedIDs(orgs); err != nil {
		return 0, err
	}
	return s.repo.SeedIfEmpty(ctx, orgs)
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close stops the stats collector and closes the pool.
func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.db.Close()
}
