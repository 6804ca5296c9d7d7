package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a dictionary from a YAML document whose top level is a
// mapping.
func LoadYAML(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	return ParseYAML(data)
}

// ParseYAML reads a dictionary from YAML bytes.
func ParseYAML(data []byte) (Map, error) {
	m := Map{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return m, nil
}
