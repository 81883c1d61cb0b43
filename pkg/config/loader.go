package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/recordstore/pkg/stores"
)

// Environment variables that override file values.
const (
	EnvDriver   = "RECORDSTORE_DRIVER"
	EnvPath     = "RECORDSTORE_PATH"
	EnvLogLevel = "RECORDSTORE_LOG_LEVEL"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validateStoreConfig, StoreConfig{})
	return v
}

// validateStoreConfig rejects combinations the engines cannot serve.
func validateStoreConfig(sl validator.StructLevel) {
	sc := sl.Current().Interface().(StoreConfig)
	if sc.Driver == string(stores.DriverBolt) && sc.Path == stores.MemoryPath {
		sl.ReportError(sc.Path, "Path", "path", "bolt_on_disk", "")
	}
}

// Load reads path, or returns defaults when path is empty. Environment
// overrides are applied before validation.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		applyEnv(cfg)
		return cfg, Validate(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults, applies environment overrides,
// and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags and telemetry invariants.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid telemetry config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDriver); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv(EnvPath); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Telemetry.Logging.Level = v
	}
}
