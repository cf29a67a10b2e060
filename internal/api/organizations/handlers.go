// Package organizations implements the directory's listing, creation, wizard
// submission, search and category endpoints.
package organizations

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/philanthrohub/directory/internal/db/models"
	"github.com/philanthrohub/directory/internal/directory"
	"github.com/philanthrohub/directory/internal/telemetry"
)

// SearchSource labels server-side searches in SearchRequestsTotal.
const SearchSource = "search"

// Handlers serves the directory endpoints
type Handlers struct {
	svc *directory.Service
}

// NewHandlers creates a new Handlers instance
func NewHandlers(svc *directory.Service) *Handlers {
	return &Handlers{svc: svc}
}

// @Summary      List organizations
// @Description  Returns every organization in the directory, newest first.
// @Tags         Organizations
// @Produce      json
// @Success      200  {array}   models.Organization
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/organizations [get]
// ListHandler lists the whole directory
// GET /api/organizations
func (h *Handlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgs, err := h.svc.List(c.Request.Context())
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "failed to list organizations", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list organizations",
			})
			return
		}
		if orgs == nil {
			orgs = []models.Organization{}
		}
		c.JSON(http.StatusOK, orgs)
	}
}

// @Summary      Create organization
// @Description  Adds an organization through the direct path. Only name and category are required.
// @Tags         Organizations
// @Accept       json
// @Produce      json
// @Param        body  body      directory.CreateRequest  true  "Organization"
// @Success      201   {object}  models.Organization
// @Failure      400   {object}  map[string]interface{}  "Name and category are required"
// @Failure      500   {object}  map[string]interface{}  "Failed to create organization"
// @Router       /api/organizations [post]
// CreateHandler adds an organization tagged with its category and "Verified"
// POST /api/organizations
func (h *Handlers) CreateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req directory.CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})
			return
		}

		org, err := h.svc.Create(c.Request.Context(), req)
		if err != nil {
			writeCreateError(c, err)
			return
		}
		c.JSON(http.StatusCreated, org)
	}
}

// SubmitHandler accepts a completed application wizard. Every field is
// validated and all failing fields are returned together.
// POST /api/submissions
func (h *Handlers) SubmitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sub models.Submission
		if err := c.ShouldBindJSON(&sub); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})
			return
		}

		org, err := h.svc.Submit(c.Request.Context(), sub)
		if err != nil {
			writeCreateError(c, err)
			return
		}
		c.JSON(http.StatusCreated, org)
	}
}

func writeCreateError(c *gin.Context, err error) {
	var ve *directory.ValidationError
	if errors.As(err, &ve) {
		body := gin.H{"error": ve.Message}
		if len(ve.Fields) > 0 {
			body["fields"] = ve.Fields
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}

	slog.ErrorContext(c.Request.Context(), "failed to create organization", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Failed to create organization",
	})
}

// @Summary      Search organizations
// @Description  Filters the directory by a case-insensitive query over name, category and tags, and by exact category membership.
// @Tags         Organizations
// @Produce      json
// @Param        q         query  string  false  "Search text"
// @Param        category  query  []string  false  "Selected categories (repeatable)"
// @Success      200  {object}  directory.SearchResult
// @Router       /api/organizations/search [get]
// SearchHandler runs the filter server-side
// GET /api/organizations/search?q=red&category=Health&category=Education
func (h *Handlers) SearchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("q")
		selected := c.QueryArray("category")

		result, err := h.svc.Search(c.Request.Context(), query, selected)
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "failed to search organizations", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to search organizations",
			})
			return
		}

		filtered := query != "" || len(selected) > 0
		telemetry.SearchRequestsTotal.WithLabelValues(SearchSource, strconv.FormatBool(filtered)).Inc()

		c.JSON(http.StatusOK, normalize(result))
	}
}

// CategoriesHandler returns the category universe, narrowed by search
// GET /api/categories?search=edu
func (h *Handlers) CategoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := h.svc.Categories(c.Request.Context(), c.Query("search"))
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "failed to list categories", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list categories",
			})
			return
		}
		if categories == nil {
			categories = []string{}
		}
		c.JSON(http.StatusOK, gin.H{
			"categories": categories,
		})
	}
}

// normalize replaces nil slices so they encode as [] rather than null.
func normalize(r directory.SearchResult) directory.SearchResult {
	if r.Organizations == nil {
		r.Organizations = []models.Organization{}
	}
	if r.Categories == nil {
		r.Categories = []string{}
	}
	return r
}
