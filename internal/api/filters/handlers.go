// Package filters serves the per-session search/filter state and the listing
// it selects.
package filters

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/philanthrohub/directory/internal/db/models"
	"github.com/philanthrohub/directory/internal/directory"
	"github.com/philanthrohub/directory/internal/filter"
	"github.com/philanthrohub/directory/internal/middleware"
	"github.com/philanthrohub/directory/internal/search"
	"github.com/philanthrohub/directory/internal/telemetry"
)

// SearchSource labels session result reads in SearchRequestsTotal.
const SearchSource = "session"

// ToggleRequest is the body of POST /api/session/filters/toggle.
type ToggleRequest struct {
	Category string `json:"category" binding:"required"`
}

// Handlers serves the session filter endpoints. Every route must run behind
// middleware.SessionMiddleware.
type Handlers struct {
	svc *directory.Service
}

// NewHandlers creates a new Handlers instance
func NewHandlers(svc *directory.Service) *Handlers {
	return &Handlers{svc: svc}
}

// GetHandler returns the session's current query and selection
// GET /api/session/filters
func (h *Handlers) GetHandler() gin.HandlerFunc {
	return withState(func(c *gin.Context, state *search.State) {
		c.JSON(http.StatusOK, snapshotJSON(state))
	})
}

// ReplaceHandler overwrites both the query and the selection
// PUT /api/session/filters
func (h *Handlers) ReplaceHandler() gin.HandlerFunc {
	return withState(func(c *gin.Context, state *search.State) {
		var req search.Snapshot
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})
			return
		}
		state.SetSearchQuery(req.SearchQuery)
		state.SetSelectedCategories(req.SelectedCategories)
		c.JSON(http.StatusOK, snapshotJSON(state))
	})
}

// ResetHandler clears the query and the selection
// DELETE /api/session/filters
func (h *Handlers) ResetHandler() gin.HandlerFunc {
	return withState(func(c *gin.Context, state *search.State) {
		state.Reset()
		c.JSON(http.StatusOK, snapshotJSON(state))
	})
}

// ToggleHandler adds the category to the selection, or removes it when present
// POST /api/session/filters/toggle
func (h *Handlers) ToggleHandler() gin.HandlerFunc {
	return withState(func(c *gin.Context, state *search.State) {
		var req ToggleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "category is required",
			})
			return
		}
		state.ToggleCategory(req.Category)
		c.JSON(http.StatusOK, snapshotJSON(state))
	})
}

// ResultsHandler returns the directory filtered by the session state
// GET /api/session/results
func (h *Handlers) ResultsHandler() gin.HandlerFunc {
	return withState(func(c *gin.Context, state *search.State) {
		orgs, err := h.svc.List(c.Request.Context())
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "failed to list organizations", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list organizations",
			})
			return
		}

		snap := state.Snapshot()
		visible := snap.Apply(orgs)
		if visible == nil {
			visible = []models.Organization{}
		}
		categories := filter.Categories(orgs)
		if categories == nil {
			categories = []string{}
		}

		telemetry.SearchRequestsTotal.WithLabelValues(SearchSource, strconv.FormatBool(snap.HasActiveFilters())).Inc()

		c.JSON(http.StatusOK, gin.H{
			"organizations": visible,
			"categories":    categories,
			"matched":       len(visible),
			"total":         len(orgs),
			"filters":       normalize(snap),
		})
	})
}

func withState(fn func(*gin.Context, *search.State)) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := middleware.SessionState(c)
		if state == nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Session unavailable",
			})
			return
		}
		fn(c, state)
	}
}

func snapshotJSON(state *search.State) search.Snapshot {
	return normalize(state.Snapshot())
}

func normalize(s search.Snapshot) search.Snapshot {
	if s.SelectedCategories == nil {
		s.SelectedCategories = []string{}
	}
	return s
}
