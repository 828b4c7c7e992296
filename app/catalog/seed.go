package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Courses []Course `yaml:"courses"`
}

// LoadSeed reads a YAML list of courses used to pre-populate the catalog.
// A missing file yields no courses.
func LoadSeed(path string) ([]Course, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed YAML: %w", err)
	}

	for i := range seed.Courses {
		Normalize(&seed.Courses[i])
		if err := Validate(seed.Courses[i]); err != nil {
			return nil, fmt.Errorf("seed course at index %d: %w", i, err)
		}
	}

	return seed.Courses, nil
}
