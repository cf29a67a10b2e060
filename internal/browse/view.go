// Package browse is the directory's presentation layer. Build combines a cache
// snapshot with a search/filter state into a View whose Status says which of
// the four listing states to render; Renderer draws it for a terminal.
package browse

import (
	"time"

	"github.com/philanthrohub/directory/internal/client"
	"github.com/philanthrohub/directory/internal/db/models"
	"github.com/philanthrohub/directory/internal/filter"
	"github.com/philanthrohub/directory/internal/search"
)

// Status is the listing state a View is in.
type Status int

const (
	// StatusLoading means no fetch has resolved yet.
	StatusLoading Status = iota
	// StatusError means the latest fetch failed.
	StatusError
	// StatusEmpty means the directory loaded but nothing matches the filters.
	StatusEmpty
	// StatusResults means at least one organization is visible.
	StatusResults
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusEmpty:
		return "empty"
	case StatusResults:
		return "results"
	default:
		return "unknown"
	}
}

// Messages shown for the non-result states.
const (
	LoadingMessage = "Loading organizations..."
	ErrorMessage   = "Failed to load organizations. Please try again later."
	EmptyHint      = "Try adjusting your search terms."
)

// View is everything needed to draw one frame of the listing.
type View struct {
	Status Status
	// Organizations is the filtered listing. In StatusError it holds the
	// last-known listing filtered the same way, which may be empty.
	Organizations []models.Organization
	// Categories is the category universe of the unfiltered listing.
	Categories []string
	Filters    search.Snapshot
	// Total is the size of the unfiltered listing, as in
	// directory.SearchResult. The matched count is len(Organizations).
	Total     int
	Err       error
	FetchedAt time.Time
}

// Build derives the view for snap under filters. Nothing is cached between
// calls; the filter runs on every build.
func Build(snap client.Snapshot, filters search.Snapshot) View {
	v := View{
		Filters:   filters,
		Err:       snap.Err,
		FetchedAt: snap.FetchedAt,
		Total:     len(snap.Organizations),
	}

	if !snap.Loaded() && snap.Err == nil {
		v.Status = StatusLoading
		return v
	}

	v.Categories = filter.Categories(snap.Organizations)
	v.Organizations = filters.Apply(snap.Organizations)

	switch {
	case snap.Err != nil:
		v.Status = StatusError
	case len(v.Organizations) == 0:
		v.Status = StatusEmpty
	default:
		v.Status = StatusResults
	}
	return v
}

// EmptyMessage is the headline shown in StatusEmpty.
func (v View) EmptyMessage() string {
	return `No organizations found matching "` + v.Filters.SearchQuery + `"`
}
