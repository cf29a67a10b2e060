// Package session keeps one search/filter state per browser session. States
// live in a bounded LRU whose entries expire after the configured TTL of
// inactivity.
package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/philanthrohub/directory/internal/search"
	"github.com/philanthrohub/directory/internal/telemetry"
)

// Registry maps session IDs to their search/filter state.
type Registry struct {
	states *expirable.LRU[string, *search.State]
}

// NewRegistry creates a registry holding at most maxEntries sessions, each
// dropped after ttl without a request.
func NewRegistry(maxEntries int, ttl time.Duration) *Registry {
	onEvict := func(string, *search.State) {
		telemetry.SessionsActive.Dec()
	}
	return &Registry{
		states: expirable.NewLRU[string, *search.State](maxEntries, onEvict, ttl),
	}
}

// Resolve returns the state for id, creating a fresh session when id is
// unknown, expired or malformed. The returned ID is the one the caller must
// hand back to the client; created reports whether it is new.
func (r *Registry) Resolve(id string) (string, *search.State, bool) {
	if _, err := uuid.Parse(id); err == nil {
		if state, ok := r.states.Get(id); ok {
			// Re-adding renews the entry's expiry.
			r.states.Add(id, state)
			return id, state, false
		}
	}

	id = uuid.New().String()
	state := search.NewState()
	r.states.Add(id, state)
	telemetry.SessionsActive.Inc()
	return id, state, true
}
