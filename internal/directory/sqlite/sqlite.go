// Package sqlite implements a directory.Store in a single SQLite file using
// the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/philanthrohub/directory/internal/config"
	"github.com/philanthrohub/directory/internal/db/models"
	"github.com/philanthrohub/directory/internal/directory"
)

func init() {
	directory.Register("sqlite", func(cfg *config.Config) (directory.Store, error) {
		return Open(cfg.Directory.SQLitePath)
	})
}

const schema = `
CREATE TABLE IF NOT EXISTS organizations (
	id          TEXT PRIMARY KEY,
	position    INTEGER NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL,
	tags        TEXT NOT NULL DEFAULT '[]',
	country     TEXT NOT NULL DEFAULT '',
	website     TEXT NOT NULL DEFAULT '',
	image       TEXT NOT NULL DEFAULT '',
	verified    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS organizations_position_idx ON organizations (position);
`

// row mirrors the organizations table; tags are stored as a JSON array.
type row struct {
	ID          string `db:"id"`
	Position    int64  `db:"position"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Category    string `db:"category"`
	Tags        string `db:"tags"`
	Country     string `db:"country"`
	Website     string `db:"website"`
	Image       string `db:"image"`
	Verified    bool   `db:"verified"`
}

func (r row) organization() (models.Organization, error) {
	tags := []string{}
	if err := json.Unmarshal([]byte(r.Tags), &tags); err != nil {
		return models.Organization{}, fmt.Errorf("decode tags of %s: %w", r.ID, err)
	}
	return models.Organization{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Tags:        tags,
		Country:     r.Country,
		Website:     r.Website,
		Image:       r.Image,
		Verified:    r.Verified,
	}, nil
}

func newRow(org models.Organization, position int64) (row, error) {
	tags := org.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return row{}, fmt.Errorf("encode tags: %w", err)
	}
	return row{
		ID:          org.ID,
		Position:    position,
		Name:        org.Name,
		Description: org.Description,
		Category:    org.Category,
		Tags:        string(encoded),
		Country:     org.Country,
		Website:     org.Website,
		Image:       org.Image,
		Verified:    org.Verified,
	}, nil
}

const insertQuery = `
	INSERT INTO organizations (id, position, name, description, category, tags, country, website, image, verified)
	VALUES (:id, :position, :name, :description, :category, :tags, :country, :website, :image, :verified)
`

// Store is a directory.Store backed by SQLite. The listing is ordered by the
// position column ascending; new records take a position below the current minimum.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer connection avoids SQLITE_BUSY between the pool's connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create organizations table: %w", err)
	}
	return &Store{db: db}, nil
}

// List returns every organization ordered by position.
func (s *Store) List(ctx context.Context) ([]models.Organization, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, position, name, description, category, tags, country, website, image, verified
		FROM organizations
		ORDER BY position ASC
	`); err != nil {
		return nil, fmt.Errorf("select organizations: %w", err)
	}

	orgs := make([]models.Organization, 0, len(rows))
	for _, r := range rows {
		org, err := r.organization()
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, nil
}

// Prepend assigns the next ID and stores org ahead of every existing record.
func (s *Store) Prepend(ctx context.Context, org models.Organization) (_ models.Organization, retErr error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Organization{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	var stats struct {
		Count       int   `db:"count"`
		MinPosition int64 `db:"min_position"`
	}
	if err := tx.GetContext(ctx, &stats,
		`SELECT COUNT(*) AS count, COALESCE(MIN(position), 0) AS min_position FROM organizations`); err != nil {
		return models.Organization{}, fmt.Errorf("read listing head: %w", err)
	}

	org = org.Clone()
	org.ID = directory.NextID(stats.Count)
	r, err := newRow(org, stats.MinPosition-1)
	if err != nil {
		return models.Organization{}, err
	}
	if _, err := tx.NamedExecContext(ctx, insertQuery, r); err != nil {
		return models.Organization{}, fmt.Errorf("insert organization: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Organization{}, fmt.Errorf("commit: %w", err)
	}
	if org.Tags == nil {
		org.Tags = []string{}
	}
	return org, nil
}

// Count returns the number of stored organizations.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM organizations`); err != nil {
		return 0, fmt.Errorf("count organizations: %w", err)
	}
	return n, nil
}

// Seed inserts orgs at positions 0..n-1 when the table is empty.
func (s *Store) Seed(ctx context.Context, orgs []models.Organization) (_ int, retErr error) {
	if err := directory.CheckSeedIDs(orgs); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM organizations`); err != nil {
		return 0, fmt.Errorf("count organizations: %w", err)
	}
	if n > 0 {
		return 0, tx.Rollback()
	}

	for i, org := range orgs {
		r, err := newRow(org, int64(i))
		if err != nil {
			return 0, err
		}
		if _, err := tx.NamedExecContext(ctx, insertQuery, r); err != nil {
			return 0, fmt.Errorf("insert seed %s: %w", org.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(orgs), nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
