package loader

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

type manifestFile struct {
	Sources []entities.SeedEntry `yaml:"sources"`
}

// LoadManifest reads the YAML list of scripture files to seed.
func LoadManifest(path string) ([]entities.SeedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m manifestFile
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	for i, e := range m.Sources {
		if strings.TrimSpace(e.File) == "" {
			return nil, fmt.Errorf("manifest %s: entry %d has no file", path, i)
		}
		if e.SourceID == "" {
			m.Sources[i].SourceID = e.File
		}
	}
	return m.Sources, nil
}
