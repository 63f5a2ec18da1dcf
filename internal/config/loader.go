package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration file, choosing the format from
// the file extension (.yaml/.yml or .toml). Environment variables in the
// format ${VAR_NAME} are expanded before parsing.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}

	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", cerr)
		}
	}()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return LoadTOML(file)
	default:
		return LoadYAML(file)
	}
}

// LoadYAML parses YAML configuration from an io.Reader.
// Environment variables in the format ${VAR_NAME} are expanded first.
func LoadYAML(r io.Reader) (*Config, error) {
	expanded, err := expand(r)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return &cfg, nil
}

// LoadTOML parses TOML configuration from an io.Reader.
// Environment variables in the format ${VAR_NAME} are expanded first.
func LoadTOML(r io.Reader) (*Config, error) {
	expanded, err := expand(r)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config TOML: %w", err)
	}
	return &cfg, nil
}

func expand(r io.Reader) ([]byte, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return []byte(os.ExpandEnv(string(content))), nil
}
