package competency

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goliatone/go-star/pkg/types"
)

//go:embed catalogue.yaml
var defaultCatalogue []byte

// CatalogueEntry is one seedable competency definition.
type CatalogueEntry struct {
	Name         string         `yaml:"name"`
	Description  string         `yaml:"description"`
	Category     string         `yaml:"category"`
	Level        int            `yaml:"level"`
	Expectations map[string]any `yaml:"expectations"`
}

// Input converts the entry into a create payload.
func (e CatalogueEntry) Input() types.CompetencyInput {
	return types.CompetencyInput{
		Name:         e.Name,
		Description:  e.Description,
		Category:     e.Category,
		Level:        e.Level,
		Expectations: e.Expectations,
	}
}

// DefaultCatalogue returns the bundled competency catalogue.
func DefaultCatalogue() ([]CatalogueEntry, error) {
	return ParseCatalogue(defaultCatalogue)
}

// ParseCatalogue decodes a YAML list of competencies. Entries without a name
// or description are rejected.
func ParseCatalogue(data []byte) ([]CatalogueEntry, error) {
	var entries []CatalogueEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("competency: parse catalogue: %w", err)
	}
	for i, entry := range entries {
		if strings.TrimSpace(entry.Name) == "" || strings.TrimSpace(entry.Description) == "" {
			return nil, fmt.Errorf("competency: catalogue entry %d requires name and description", i)
		}
	}
	return entries, nil
}
