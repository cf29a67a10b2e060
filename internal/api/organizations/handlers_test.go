package organizations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philanthrohub/directory/internal/config"
	"github.com/philanthrohub/directory/internal/db/models"
	"github.com/philanthrohub/directory/internal/directory"
	"github.com/philanthrohub/directory/internal/directory/memory"
	"github.com/philanthrohub/directory/internal/telemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func seedOrgs() []models.Organization {
	return []models.Organization{
		{ID: "1", Name: "Red Cross", Category: "Disaster Relief", Tags: []string{"Relief", "Verified"}, Verified: true},
		{ID: "2", Name: "EduFund", Category: "Education", Tags: []string{"Education", "Verified"}, Verified: true},
		{ID: "3", Name: "Green Earth", Category: "Environment", Tags: []string{"Climate"}},
	}
}

// failingStore is a directory.Store whose every call fails.
type failingStore struct{ err error }

func (f *failingStore) List(context.Context) ([]models.Organization, error) { return nil, f.err }
func (f *failingStore) Prepend(context.Context, models.Organization) (models.Organization, error) {
	return models.Organization{}, f.err
}
func (f *failingStore) Count(context.Context) (int, error) { return 0, f.err }
func (f *failingStore) Seed(context.Context, []models.Organization) (int, error) {
	return 0, f.err
}
func (f *failingStore) Ping(context.Context) error { return f.err }
func (f *failingStore) Close() error { return nil }

func newRouter(t *testing.T, store directory.Store) *gin.Engine {
	t.Helper()
	h := NewHandlers(directory.NewService(store, config.DirectoryConfig{}))

	r := gin.New()
	r.GET("/api/organizations", h.ListHandler())
	r.POST("/api/organizations", h.CreateHandler())
	r.POST("/api/submissions", h.SubmitHandler())
	r.GET("/api/organizations/search", h.SearchHandler())
	r.GET("/api/categories", h.CategoriesHandler())
	return r
}

func newSeededRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	store := memory.New()
	_, err := store.Seed(context.Background(), seedOrgs())
	require.NoError(t, err)
	return newRouter(t, store), store
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

// ---------------------------------------------------------------------------
// ListHandler
// ---------------------------------------------------------------------------

func TestListHandler_ReturnsStoreOrder(t *testing.T) {
	r, _ := newSeededRouter(t)

	w := doJSON(r, http.MethodGet, "/api/organizations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	orgs := decode[[]models.Organization](t, w)
	require.Len(t, orgs, 3)
	assert.Equal(t, "Red Cross", orgs[0].Name)
	assert.Equal(t, "Green Earth", orgs[2].Name)
}

func TestListHandler_EmptyDirectoryIsArray(t *testing.T) {
	r := newRouter(t, memory.New())

	w := doJSON(r, http.MethodGet, "/api/organizations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListHandler_StoreError(t *testing.T) {
	r := newRouter(t, &failingStore{err: errors.New("boom")})

	w := doJSON(r, http.MethodGet, "/api/organizations", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// ---------------------------------------------------------------------------
// CreateHandler
// ---------------------------------------------------------------------------

func TestCreateHandler_Success(t *testing.T) {
	r, _ := newSeededRouter(t)

	w := doJSON(r, http.MethodPost, "/api/organizations", gin.H{"name": "A", "category": "Health"})
	require.Equal(t, http.StatusCreated, w.Code)

	created := decode[models.Organization](t, w)
	assert.Equal(t, "4", created.ID)
	assert.False(t, created.Verified)
	assert.Equal(t, []string{"Health", "Verified"}, created.Tags)
	assert.Equal(t, config.DefaultDirectImage, created.Image)

	w = doJSON(r, http.MethodGet, "/api/organizations", nil)
	orgs := decode[[]models.Organization](t, w)
	require.Len(t, orgs, 4)
	assert.Equal(t, "A", orgs[0].Name)
}

func TestCreateHandler_MissingCategory(t *testing.T) {
	r, store := newSeededRouter(t)

	w := doJSON(r, http.MethodPost, "/api/organizations", gin.H{"name": "A"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Name and category are required"}`, w.Body.String())

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCreateHandler_InvalidJSON(t *testing.T) {
	r, _ := newSeededRouter(t)

	w := doJSON(r, http.MethodPost, "/api/organizations", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateHandler_StoreError(t *testing.T) {
	r := newRouter(t, &failingStore{err: errors.New("disk full")})

	w := doJSON(r, http.MethodPost, "/api/organizations", gin.H{"name": "A", "category": "Health"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to create organization"}`, w.Body.String())
}

// ---------------------------------------------------------------------------
// SubmitHandler
// ---------------------------------------------------------------------------

func validSubmission() gin.H {
	return gin.H{
		"name":          "Ocean Guardians",
		"website":       "https://oceanguardians.org",
		"country":       "India",
		"category":      "Other",
		"otherCategory": "Marine Conservation",
		"description":   "Protecting coastal ecosystems through community action.",
		"compliance":    gin.H{"fcra": true},
		"contactEmail":  "hello@oceanguardians.org",
	}
}

func TestSubmitHandler_Success(t *testing.T) {
	r, _ := newSeededRouter(t)

	w := doJSON(r, http.MethodPost, "/api/submissions", validSubmission())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decode[models.Organization](t, w)
	assert.Equal(t, "Marine Conservation", created.Category)
	assert.Equal(t, []string{"Marine Conservation", "Pending Verification"}, created.Tags)
	assert.Equal(t, "India", created.Country)
	assert.Equal(t, config.DefaultSubmissionImage, created.Image)
	assert.False(t, created.Verified)
}

func TestSubmitHandler_ReportsEveryInvalidField(t *testing.T) {
	r, store := newSeededRouter(t)

	sub := validSubmission()
	sub["name"] = "ab"
	sub["contactEmail"] = "not-an-email"
	sub["compliance"] = gin.H{}

	w := doJSON(r, http.MethodPost, "/api/submissions", sub)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decode[struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}](t, w)
	assert.NotEmpty(t, body.Error)
	assert.Contains(t, body.Fields, "name")
	assert.Contains(t, body.Fields, "contactEmail")
	assert.Contains(t, body.Fields, "compliance")
	assert.NotContains(t, body.Fields, "website")

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

// ---------------------------------------------------------------------------
// SearchHandler / CategoriesHandler
// ---------------------------------------------------------------------------

func TestSearchHandler(t *testing.T) {
	r, _ := newSeededRouter(t)

	tests := []struct {
		name      string
		path      string
		wantNames []string
	}{
		{"no filters", "/api/organizations/search", []string{"Red Cross", "EduFund", "Green Earth"}},
		{"query matches name", "/api/organizations/search?q=red", []string{"Red Cross"}},
		{"query matches tag", "/api/organizations/search?q=climate", []string{"Green Earth"}},
		{"category filter", "/api/organizations/search?category=Education", []string{"EduFund"}},
		{"multiple categories", "/api/organizations/search?category=Education&category=Environment", []string{"EduFund", "Green Earth"}},
		{"query and category", "/api/organizations/search?q=red&category=Education", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodGet, tt.path, nil)
			require.Equal(t, http.StatusOK, w.Code)

			result := decode[directory.SearchResult](t, w)
			names := make([]string, 0, len(result.Organizations))
			for _, o := range result.Organizations {
				names = append(names, o.Name)
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, len(tt.wantNames), result.Matched)
			assert.Equal(t, 3, result.Total)
			assert.Equal(t, []string{"Disaster Relief", "Education", "Environment"}, result.Categories)
		})
	}
}

func TestSearchHandler_CountsFilteredRequests(t *testing.T) {
	r, _ := newSeededRouter(t)
	labels := prometheus.Labels{"source": SearchSource, "filtered": "true"}
	before := telemetry.CounterValue(telemetry.SearchRequestsTotal, labels)

	doJSON(r, http.MethodGet, "/api/organizations/search?q=edu", nil)

	assert.Equal(t, before+1, telemetry.CounterValue(telemetry.SearchRequestsTotal, labels))
}

func TestCategoriesHandler(t *testing.T) {
	r, _ := newSeededRouter(t)

	w := doJSON(r, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"categories":["Disaster Relief","Education","Environment"]}`, w.Body.String())

	w = doJSON(r, http.MethodGet, "/api/categories?search=EN", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"categories":["Environment"]}`, w.Body.String())

	w = doJSON(r, http.MethodGet, "/api/categories?search=zzz", nil)
	assert.JSONEq(t, `{"categories":[]}`, w.Body.String())
}
