package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/philanthrohub/directory/internal/config"
	"github.com/philanthrohub/directory/internal/db/models"
	"github.com/philanthrohub/directory/internal/filter"
	"github.com/philanthrohub/directory/internal/telemetry"
	"github.com/philanthrohub/directory/internal/validation"
)

// CreateRequest is the body accepted by the direct create endpoint.
type CreateRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Website     string `json:"website"`
	Country     string `json:"country"`
}

// SearchResult is a filtered view of the directory together with the full
// category universe, so a caller can render picker and results from one call.
type SearchResult struct {
	Organizations []models.Organization `json:"organizations"`
	Categories    []string              `json:"categories"`
	// Matched is len(Organizations).
	Matched int `json:"matched"`
	// Total is the size of the unfiltered directory.
	Total int `json:"total"`
}

// Service applies the directory's creation rules on top of a Store.
//
// The two creation paths deliberately differ: a direct create is tagged
// "Verified" and gets the direct image, while a wizard submission is tagged
// "Pending Verification", keeps its country and gets the submission image.
// Both are stored with verified=false.
type Service struct {
	store           Store
	validator       *validation.SubmissionValidator
	directImage     string
	submissionImage string
}

// NewService wires a Service to store using the image defaults from cfg.
func NewService(store Store, cfg config.DirectoryConfig) *Service {
	direct := cfg.DirectImage
	if direct == "" {
		direct = config.DefaultDirectImage
	}
	submission := cfg.SubmissionImage
	if submission == "" {
		submission = config.DefaultSubmissionImage
	}
	return &Service{
		store:           store,
		validator:       validation.NewSubmissionValidator(),
		directImage:     direct,
		submissionImage: submission,
	}
}

// List returns the whole directory, newest first.
func (s *Service) List(ctx context.Context) ([]models.Organization, error) {
	orgs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	telemetry.DirectoryOrganizations.Set(float64(len(orgs)))
	return orgs, nil
}

// Create adds an organization through the direct path. Name and category must
// be non-empty; nothing else is checked.
func (s *Service) Create(ctx context.Context, req CreateRequest) (models.Organization, error) {
	if req.Name == "" || req.Category == "" {
		telemetry.OrganizationCreationsTotal.WithLabelValues(telemetry.CreationPathDirect, telemetry.OutcomeRejected).Inc()
		return models.Organization{}, &ValidationError{Message: ErrNameAndCategoryRequired}
	}

	org := models.Organization{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Tags:        []string{req.Category, models.TagVerified},
		Country:     req.Country,
		Website:     req.Website,
		Image:       s.directImage,
		Verified:    false,
	}
	return s.insert(ctx, telemetry.CreationPathDirect, org)
}

// Submit adds an organization from a completed application wizard. Every field
// is validated and all failures are reported together.
func (s *Service) Submit(ctx context.Context, sub models.Submission) (models.Organization, error) {
	if err := s.validator.Validate(sub); err != nil {
		telemetry.OrganizationCreationsTotal.WithLabelValues(telemetry.CreationPathSubmission, telemetry.OutcomeRejected).Inc()
		var fields validation.FieldErrors
		if errors.As(err, &fields) {
			return models.Organization{}, newFieldValidationError(fields)
		}
		return models.Organization{}, err
	}

	category := sub.ResolvedCategory()
	org := models.Organization{
		Name:        sub.Name,
		Description: sub.Description,
		Category:    category,
		Tags:        []string{category, models.TagPendingVerification},
		Country:     sub.Country,
		Website:     sub.Website,
		Image:       s.submissionImage,
		Verified:    false,
	}
	return s.insert(ctx, telemetry.CreationPathSubmission, org)
}

func (s *Service) insert(ctx context.Context, path string, org models.Organization) (models.Organization, error) {
	created, err := s.store.Prepend(ctx, org)
	if err != nil {
		telemetry.OrganizationCreationsTotal.WithLabelValues(path, telemetry.OutcomeFailed).Inc()
		return models.Organization{}, fmt.Errorf("failed to create organization: %w", err)
	}
	telemetry.OrganizationCreationsTotal.WithLabelValues(path, telemetry.OutcomeCreated).Inc()
	if n, err := s.store.Count(ctx); err == nil {
		telemetry.DirectoryOrganizations.Set(float64(n))
	}

	slog.InfoContext(ctx, "organization created",
		"id", created.ID, "category", created.Category, "path", path)
	return created, nil
}

// Search filters the directory by query and selected categories.
func (s *Service) Search(ctx context.Context, query string, selected []string) (SearchResult, error) {
	orgs, err := s.List(ctx)
	if err != nil {
		return SearchResult{}, err
	}
	visible := filter.Filter(orgs, query, selected)
	return SearchResult{
		Organizations: visible,
		Categories:    filter.Categories(orgs),
		Matched:       len(visible),
		Total:         len(orgs),
	}, nil
}

// Categories returns the category universe, narrowed by search when non-empty.
func (s *Service) Categories(ctx context.Context, search string) ([]string, error) {
	orgs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return filter.MatchCategories(filter.Categories(orgs), search), nil
}

// Ping checks the underlying store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
