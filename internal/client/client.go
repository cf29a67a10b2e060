// Package client is the Data Access Client for the directory service: a thin
// HTTP client for the organization endpoints plus a polling,
// stale-while-revalidate Cache over the listing.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/philanthrohub/directory/internal/config"
	"github.com/philanthrohub/directory/internal/db/models"
	"github.com/philanthrohub/directory/internal/directory"
)

const (
	organizationsPath = "/api/organizations"
	submissionsPath   = "/api/submissions"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Client talks to the directory service
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a new client for the service at baseURL
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewFromConfig creates a client from the client section of the configuration.
func NewFromConfig(cfg config.ClientConfig) *Client {
	return New(cfg.BaseURL, cfg.Timeout)
}

// errorResponse is the service's error body.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ListOrganizations fetches the whole directory. Every failure is reported as
// a *TransientFetchError.
func (c *Client) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+organizationsPath, nil)
	if err != nil {
		return nil, &TransientFetchError{Err: fmt.Errorf("failed to create list request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &TransientFetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransientFetchError{
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(body))),
		}
	}

	var orgs []models.Organization
	if err := json.NewDecoder(resp.Body).Decode(&orgs); err != nil {
		return nil, &TransientFetchError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to decode organizations: %w", err),
		}
	}
	return orgs, nil
}

// CreateOrganization posts a direct create. A 400 is returned as a
// *ValidationError and any other failure as a *SubmissionError.
func (c *Client) CreateOrganization(ctx context.Context, req directory.CreateRequest) (models.Organization, error) {
	return c.post(ctx, organizationsPath, req)
}

// SubmitOrganization posts a completed application wizard. Field errors are
// returned in ValidationError.Fields.
func (c *Client) SubmitOrganization(ctx context.Context, sub models.Submission) (models.Organization, error) {
	return c.post(ctx, submissionsPath, sub)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (models.Organization, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return models.Organization{}, &SubmissionError{Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return models.Organization{}, &SubmissionError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return models.Organization{}, &SubmissionError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
		var org models.Organization
		if err := json.NewDecoder(resp.Body).Decode(&org); err != nil {
			return models.Organization{}, &SubmissionError{
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("failed to decode organization: %w", err),
			}
		}
		return org, nil

	case resp.StatusCode == http.StatusBadRequest:
		var er errorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&er); err != nil || er.Error == "" {
			return models.Organization{}, &ValidationError{Message: http.StatusText(resp.StatusCode)}
		}
		return models.Organization{}, &ValidationError{Message: er.Error, Fields: er.Fields}

	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(raw))
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		return models.Organization{}, &SubmissionError{StatusCode: resp.StatusCode, Message: msg}
	}
}
