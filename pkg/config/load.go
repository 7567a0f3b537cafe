package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file, layers it over the defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse layers YAML bytes over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks a configuration against its struct tags plus the
// cross-field rules the tags cannot express.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		if invalid, ok := err.(*validator.InvalidValidationError); ok {
			return invalid
		}
		errs := err.(validator.ValidationErrors)
		return fmt.Errorf("config validation failed: %s", errs.Error())
	}

	for name, w := range cfg.Fitness.Weights {
		if w < 0 {
			return fmt.Errorf("config validation failed: fitness weight for %q is negative", name)
		}
	}
	if len(cfg.Emitters.Schedule) == 0 {
		return fmt.Errorf("config validation failed: emitter schedule is empty")
	}
	return nil
}
