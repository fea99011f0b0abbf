package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AndreyAkinshin/testyl/internal/schema"
)

// Load reads and parses a profile configuration file. The format is chosen
// by extension: .json, or .yaml/.yml. Unknown fields fail the load.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSON(data)
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported config format %q (expected .json, .yaml, or .yml)", filepath.Ext(path))
	}
}

// LoadAndValidate reads a config file and runs semantic validation.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseJSON validates the document against the embedded JSON schema, then
// decodes it. Schema validation runs first so that error messages name the
// offending field rather than a decoder position.
func parseJSON(data []byte) (*Config, error) {
	if err := schema.ValidateProfiles(data); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// parseYAML decodes a YAML document with strict field checking, the YAML
// counterpart of the fail-closed unknown-field rule.
func parseYAML(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}
