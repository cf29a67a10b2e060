// Package search holds the Search/Filter State: the free-text query and the
// ordered category selection a visitor is browsing with.
package search

import (
	"sync"

	"github.com/philanthrohub/directory/internal/db/models"
	"github.com/philanthrohub/directory/internal/filter"
)

// Snapshot is an immutable copy of a State at one point in time.
type Snapshot struct {
	SearchQuery        string   `json:"searchQuery"`
	SelectedCategories []string `json:"selectedCategories"`
}

// HasActiveFilters reports whether the snapshot narrows the listing at all.
func (s Snapshot) HasActiveFilters() bool {
	return s.SearchQuery != "" || len(s.SelectedCategories) > 0
}

// Apply runs the filter with the snapshot's query and selection.
func (s Snapshot) Apply(orgs []models.Organization) []models.Organization {
	return filter.Filter(orgs, s.SearchQuery, s.SelectedCategories)
}

// State is a mutable search/filter container. The zero value is ready to use
// and equivalent to a freshly reset state. A State must not be copied after
// first use.
type State struct {
	mu       sync.RWMutex
	query    string
	selected []string
}

// NewState returns an empty state.
func NewState() *State {
	return &State{}
}

// SetSearchQuery replaces the query unconditionally.
func (s *State) SetSearchQuery(q string) {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()
}

// SetSelectedCategories replaces the whole selection. Duplicates are dropped,
// keeping the first occurrence, so the selection stays a set.
func (s *State) SetSelectedCategories(categories []string) {
	next := make([]string, 0, len(categories))
	seen := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		next = append(next, c)
	}

	s.mu.Lock()
	s.selected = next
	s.mu.Unlock()
}

// ToggleCategory removes c when it is selected and appends it otherwise.
func (s *State) ToggleCategory(c string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.selected {
		if existing == c {
			s.selected = append(s.selected[:i:i], s.selected[i+1:]...)
			return
		}
	}
	s.selected = append(s.selected, c)
}

// Reset clears both the query and the selection.
func (s *State) Reset() {
	s.mu.Lock()
	s.query = ""
	s.selected = nil
	s.mu.Unlock()
}

// SearchQuery returns the current query.
func (s *State) SearchQuery() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// SelectedCategories returns a copy of the selection in insertion order.
func (s *State) SelectedCategories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.selected...)
}

// Snapshot captures the current query and selection.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		SearchQuery:        s.query,
		SelectedCategories: append([]string{}, s.selected...),
	}
}

// Apply filters orgs with the state as it is at the time of the call.
func (s *State) Apply(orgs []models.Organization) []models.Organization {
	return s.Snapshot().Apply(orgs)
}
