package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"citychat/models"
	"citychat/providers"
	"citychat/routing"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// RosterFile is the on-disk description of the model roster and the request
// shape sent upstream.
type RosterFile struct {
	Models       []string       `yaml:"models" toml:"models"`
	SystemPrompt string         `yaml:"system_prompt" toml:"system_prompt"`
	Params       routing.Params `yaml:"params" toml:"params"`
}

// Default returns the built-in roster configuration.
func Default() *RosterFile {
	return &RosterFile{
		Models:       append([]string(nil), models.DefaultModels...),
		SystemPrompt: routing.DefaultSystemPrompt,
		Params:       routing.DefaultParams(),
	}
}

// LoadRosterFile reads a YAML (.yaml, .yml) or TOML (.toml) roster file.
// Fields missing from the file keep their defaults.
func LoadRosterFile(path string) (*RosterFile, error) {
	cfg := Default()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := loadYAMLFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported roster file format %q (want .yaml, .yml or .toml)", ext)
	}

	expandEnvVars(cfg)
	return cfg, nil
}

// loadYAMLFile loads a YAML file into a structure
func loadYAMLFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

// expandEnvVars expands environment variables in configuration
func expandEnvVars(cfg *RosterFile) {
	for i, id := range cfg.Models {
		cfg.Models[i] = expandEnv(id)
	}
	cfg.SystemPrompt = expandEnv(cfg.SystemPrompt)
}

// expandEnv expands environment variables in a string
func expandEnv(s string) string {
	if strings.Contains(s, "${") {
		return os.Expand(s, func(key string) string {
			// Handle default values like ${VAR:-default}
			parts := strings.SplitN(key, ":-", 2)
			value := os.Getenv(parts[0])
			if value == "" && len(parts) > 1 {
				return parts[1]
			}
			return value
		})
	}
	return s
}

// BuildRouter creates a router from configuration
func BuildRouter(cfg *RosterFile, provider providers.Provider) (*routing.Router, error) {
	roster, err := models.NewRoster(cfg.Models)
	if err != nil {
		return nil, fmt.Errorf("invalid roster: %w", err)
	}
	if cfg.Params.MaxTokens <= 0 {
		return nil, fmt.Errorf("params.max_tokens must be positive, got %d", cfg.Params.MaxTokens)
	}

	return routing.NewRouter(roster, provider,
		routing.WithSystemPrompt(cfg.SystemPrompt),
		routing.WithParams(cfg.Params),
	), nil
}
