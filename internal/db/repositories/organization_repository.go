// organization_repository.go implements OrganizationRepository, the PostgreSQL
// queries behind the directory listing.
package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/philanthrohub/directory/internal/db/models"
)

// organizationRow mirrors the organizations table.
type organizationRow struct {
	ID          string         `db:"id"`
	Position    int64          `db:"position"`
	Name        string         `db:"name"`
	Description string         `db:"description"`
	Category    string         `db:"category"`
	Tags        pq.StringArray `db:"tags"`
	Country     string         `db:"country"`
	Website     string         `db:"website"`
	Image       string         `db:"image"`
	Verified    bool           `db:"verified"`
}

func (r organizationRow) toModel() models.Organization {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
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
	}
}

const insertOrganizationQuery = `
	INSERT INTO organizations (id, position, name, description, category, tags, country, website, image, verified)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// OrganizationRepository handles database operations for directory organizations
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// List returns every organization, head of the listing first
func (r *OrganizationRepository) List(ctx context.Context) ([]models.Organization, error) {
	query := `
		SELECT id, position, name, description, category, tags, country, website, image, verified
		FROM organizations
		ORDER BY position ASC
	`

	var rows []organizationRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	orgs := make([]models.Organization, 0, len(rows))
	for _, row := range rows {
		orgs = append(orgs, row.toModel())
	}
	return orgs, nil
}

// Count returns the number of listed organizations
func (r *OrganizationRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM organizations`); err != nil {
		return 0, fmt.Errorf("failed to count organizations: %w", err)
	}
	return n, nil
}

// Prepend assigns the next ID to org and inserts it ahead of every existing
// record. The table is locked for the duration so concurrent creates cannot
// draw the same ID.
func (r *OrganizationRepository) Prepend(ctx context.Context, org models.Organization, nextID func(count int) string) (_ models.Organization, retErr error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Organization{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `LOCK TABLE organizations IN EXCLUSIVE MODE`); err != nil {
		return models.Organization{}, fmt.Errorf("failed to lock organizations: %w", err)
	}

	var head struct {
		Count       int   `db:"count"`
		MinPosition int64 `db:"min_position"`
	}
	if err := tx.GetContext(ctx, &head,
		`SELECT COUNT(*) AS count, COALESCE(MIN(position), 0) AS min_position FROM organizations`); err != nil {
		return models.Organization{}, fmt.Errorf("failed to read listing head: %w", err)
	}

	org = org.Clone()
	org.ID = nextID(head.Count)
	if org.Tags == nil {
		org.Tags = []string{}
	}
	if err := insertOrganization(ctx, tx, org, head.MinPosition-1); err != nil {
		return models.Organization{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Organization{}, fmt.Errorf("failed to commit organization: %w", err)
	}
	return org, nil
}

// SeedIfEmpty inserts orgs at positions 0..n-1 when the table is empty and
// returns how many rows were written.
func (r *OrganizationRepository) SeedIfEmpty(ctx context.Context, orgs []models.Organization) (_ int, retErr error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM organizations`); err != nil {
		return 0, fmt.Errorf("failed to count organizations: %w", err)
	}
	if n > 0 {
		return 0, tx.Rollback()
	}

	for i, org := range orgs {
		if err := insertOrganization(ctx, tx, org, int64(i)); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed: %w", err)
	}
	return len(orgs), nil
}

func insertOrganization(ctx context.Context, tx *sqlx.Tx, org models.Organization, position int64) error {
	tags := org.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := tx.ExecContext(ctx, insertOrganizationQuery,
		org.ID,
		position,
		org.Name,
		org.Description,
		org.Category,
		pq.StringArray(tags),
		org.Country,
		org.Website,
		org.Image,
		org.Verified,
	)
	if err != nil {
		return fmt.Errorf("failed to insert organization %s: %w", org.ID, err)
	}
	return nil
}
