// Package memory implements an in-process directory.Store. Contents are lost
// when the process exits.
package memory

import (
	"context"
	"sync"

	"github.com/philanthrohub/directory/internal/config"
	"github.com/philanthrohub/directory/internal/db/models"
	"github.com/philanthrohub/directory/internal/directory"
)

func init() {
	directory.Register("memory", func(_ *config.Config) (directory.Store, error) {
		return New(), nil
	})
}

// Store keeps the listing in a slice, head first.
type Store struct {
	mu   sync.RWMutex
	orgs []models.Organization
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// List returns a deep copy of the listing.
func (s *Store) List(_ context.Context) ([]models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := models.CloneAll(s.orgs)
	if out == nil {
		out = []models.Organization{}
	}
	return out, nil
}

// Prepend assigns the next ID and inserts org at the head of the listing.
func (s *Store) Prepend(_ context.Context, org models.Organization) (models.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org = org.Clone()
	org.ID = directory.NextID(len(s.orgs))

	s.orgs = append(s.orgs, models.Organization{})
	copy(s.orgs[1:], s.orgs)
	s.orgs[0] = org

	return org.Clone(), nil
}

// Count returns the listing size.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orgs), nil
}

// Seed loads orgs when the store is empty.
func (s *Store) Seed(_ context.Context, orgs []models.Organization) (int, error) {
	if err := directory.CheckSeedIDs(orgs); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.orgs) > 0 {
		return 0, nil
	}
	s.orgs = models.CloneAll(orgs)
	return len(orgs), nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }
