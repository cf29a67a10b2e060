package directory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philanthrohub/directory/internal/config"
	"github.com/philanthrohub/directory/internal/db/models"
	"github.com/philanthrohub/directory/internal/filter"
)

func TestLoadSeed_Embedded(t *testing.T) {
	orgs, err := LoadSeed("")
	require.NoError(t, err)
	require.NotEmpty(t, orgs)

	assert.Equal(t, "Red Cross", orgs[0].Name)
	assert.Equal(t, "1", orgs[0].ID)
	for _, o := range orgs {
		assert.NotEmpty(t, o.Category, "seed %s has no category", o.ID)
	}
	assert.Contains(t, filter.Categories(orgs), "Education")
}

func TestLoadSeed_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- name: Alpha
  category: Education
- name: Beta
  category: Healthcare
  tags: [Clinics]
`), 0o600))

	orgs, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	assert.Equal(t, "1", orgs[0].ID)
	assert.Equal(t, "2", orgs[1].ID)
	assert.Equal(t, []string{}, orgs[0].Tags)
	assert.Equal(t, []string{"Clinics"}, orgs[1].Tags)
}

func TestLoadSeed_MissingFile(t *testing.T) {
	_, err := LoadSeed(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read seed file")
}

func TestParseSeed_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing category", "- name: Alpha\n", "category is required"},
		{"missing name", "- category: Education\n", "name is required"},
		{"duplicate id", "- {id: \"1\", name: A, category: X}\n- {id: \"1\", name: B, category: Y}\n", "already used"},
		{"id past count", "- id: \"2\"\n  name: A\n  category: Health\n", "must be a number from 1 to 1"},
		{"non-numeric id", "- {id: red-cross, name: A, category: X}\n", "must be a number from 1 to 1"},
		{"padded id", "- {id: \"01\", name: A, category: X}\n", "must be a number from 1 to 1"},
		{"explicit id collides with position", "- {id: \"2\", name: A, category: X}\n- {name: B, category: Y}\n", "already used"},
		{"not a list", "name: Alpha\n", "failed to parse seed data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeed([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseSeed_ExplicitIDsInAnyOrder(t *testing.T) {
	orgs, err := ParseSeed([]byte("- {id: \"2\", name: A, category: X}\n- {id: \"1\", name: B, category: Y}\n"))
	require.NoError(t, err)
	assert.Equal(t, "2", orgs[0].ID)
	assert.Equal(t, "1", orgs[1].ID)
}

func TestCheckSeedIDs(t *testing.T) {
	assert.NoError(t, CheckSeedIDs(nil))
	assert.NoError(t, CheckSeedIDs([]models.Organization{{ID: "3"}, {ID: "1"}, {ID: "2"}}))
	assert.ErrorContains(t, CheckSeedIDs([]models.Organization{{ID: "1"}, {ID: "1"}}), `id "1" is used twice`)
	assert.ErrorContains(t, CheckSeedIDs([]models.Organization{{ID: "0"}}), "must be a number from 1 to 1")
	assert.ErrorContains(t, CheckSeedIDs([]models.Organization{{ID: ""}}), "must be a number from 1 to 1")
}

func TestNextID(t *testing.T) {
	assert.Equal(t, "1", NextID(0))
	assert.Equal(t, "7", NextID(6))
}

func TestNewStore_UnknownBackend(t *testing.T) {
	_, err := NewStore(&config.Config{Directory: config.DirectoryConfig{Backend: "mongo"}})
	assert.ErrorContains(t, err, "unsupported directory backend: mongo")
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, ErrNameAndCategoryRequired, (&ValidationError{Message: ErrNameAndCategoryRequired}).Error())

	ve := newFieldValidationError(map[string]string{"website": "bad", "name": "short"})
	assert.Equal(t, "Invalid submission: name, website", ve.Message)
	assert.Equal(t, "Invalid submission: name, website: name: short; website: bad", ve.Error())
}
