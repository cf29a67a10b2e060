package directory

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/philanthrohub/directory/internal/db/models"
)

//go:embed seed/organizations.yaml
var embeddedSeed []byte

// LoadSeed reads the seed listing from path, or the embedded list when path is
// empty. Entries without an ID are numbered by position.
func LoadSeed(path string) ([]models.Organization, error) {
	data := embeddedSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}
		data = b
	}
	return ParseSeed(data)
}

// ParseSeed decodes a YAML seed listing and checks its invariants. IDs must
// come out as "1".."n" so that ids handed out later never collide.
func ParseSeed(data []byte) ([]models.Organization, error) {
	var orgs []models.Organization
	if err := yaml.Unmarshal(data, &orgs); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}

	seen := make(map[string]int, len(orgs))
	for i := range orgs {
		if orgs[i].ID == "" {
			orgs[i].ID = NextID(i)
		}
		if orgs[i].Name == "" {
			return nil, fmt.Errorf("seed entry %d: name is required", i+1)
		}
		if orgs[i].Category == "" {
			return nil, fmt.Errorf("seed entry %d (%s): category is required", i+1, orgs[i].Name)
		}
		if prev, dup := seen[orgs[i].ID]; dup {
			return nil, fmt.Errorf("seed entry %d: id %q already used by entry %d", i+1, orgs[i].ID, prev+1)
		}
		seen[orgs[i].ID] = i
		if orgs[i].Tags == nil {
			orgs[i].Tags = []string{}
		}
	}
	if err := CheckSeedIDs(orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}
