package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/wolfeidau/tsbundle/internal/variants"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the project file looked up when no path is given.
const DefaultPath = "tsbundle.yaml"

// ErrNotFound is returned when the project file does not exist.
var ErrNotFound = errors.New("config file not found")

// File is the project file describing what to build.
type File struct {
	Name    string           `yaml:"name"`
	Entry   string           `yaml:"entry"`
	Options variants.Options `yaml:"options"`
}

// Load reads and parses the YAML project file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
	}

	return &file, nil
}
