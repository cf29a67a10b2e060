// Package directory owns the canonical list of organizations: the Store
// abstraction with its pluggable backends, the embedded seed data, and the
// Service that applies the creation rules on top of a Store.
//
// Backends register themselves from an init() function in their own package
// and are selected by directory.backend:
//
//	func init() {
//	    directory.Register("mybackend", func(cfg *config.Config) (directory.Store, error) {
//	        return New(cfg)
//	    })
//	}
//
// The server blank-imports every backend package to trigger registration.
package directory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/philanthrohub/directory/internal/config"
	"github.com/philanthrohub/directory/internal/db/models"
)

// Store holds the directory listing. Records are only ever added; there is no
// update or delete.
type Store interface {
	// List returns every organization, newest first.
	List(ctx context.Context) ([]models.Organization, error)

	// Prepend assigns the next ID to org, places it at the head of the listing
	// and returns the stored record.
	Prepend(ctx context.Context, org models.Organization) (models.Organization, error)

	// Count returns the number of stored organizations.
	Count(ctx context.Context) (int, error)

	// Seed loads orgs in listing order when the store is empty and reports how
	// many were inserted. A non-empty store is left untouched.
	Seed(ctx context.Context, orgs []models.Organization) (int, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// FactoryFunc builds a Store from configuration.
type FactoryFunc func(*config.Config) (Store, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]FactoryFunc)
)

// Register registers a store backend factory under name.
func Register(name string, factory FactoryFunc) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// Backends lists the registered backend names, sorted.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewStore creates the store selected by cfg.Directory.Backend.
func NewStore(cfg *config.Config) (Store, error) {
	factoriesMu.RLock()
	factory, ok := factories[cfg.Directory.Backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported directory backend: %s (registered: %s)",
			cfg.Directory.Backend, strings.Join(Backends(), ", "))
	}
	return factory(cfg)
}

// NextID is the ID scheme shared by every backend: the listing size plus one.
// IDs stay unique because nothing is ever removed.
func NextID(count int) string {
	return fmt.Sprintf("%d", count+1)
}

// CheckSeedIDs reports an error unless the IDs of orgs are exactly "1".."n" in
// any order. NextID hands out count+1, so a seed holding any other ID would
// let a later create reuse it.
func CheckSeedIDs(orgs []models.Organization) error {
	seen := make([]bool, len(orgs)+1)
	for i, org := range orgs {
		n, err := strconv.Atoi(org.ID)
		if err != nil || n < 1 || n > len(orgs) || strconv.Itoa(n) != org.ID {
			return fmt.Errorf("seed entry %d: id %q must be a number from 1 to %d", i+1, org.ID, len(orgs))
		}
		if seen[n] {
			return fmt.Errorf("seed entry %d: id %q is used twice", i+1, org.ID)
		}
		seen[n] = true
	}
	return nil
}
