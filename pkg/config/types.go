package config

import (
	"time"

	"github.com/openfroyo/recordstore/pkg/stores"
	"github.com/openfroyo/recordstore/pkg/telemetry"
)

// Config is the top-level configuration file.
type Config struct {
	Store     StoreConfig      `yaml:"store"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// StoreConfig selects and tunes the embedded engine.
type StoreConfig struct {
	// Driver is the engine name (sqlite, bolt).
	Driver string `yaml:"driver" validate:"required,oneof=sqlite bolt"`

	// Path is the database location; ":memory:" is sqlite only.
	Path string `yaml:"path" validate:"required"`

	MaxOpenConns    int           `yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" validate:"gte=0"`

	// OpenTimeout bounds how long bolt waits for its file lock.
	OpenTimeout time.Duration `yaml:"open_timeout" validate:"gte=0"`
}

// StoreOptions converts the file section into stores.Config.
func (s StoreConfig) StoreOptions() stores.Config {
	return stores.Config{
		Driver:          stores.Driver(s.Driver),
		Path:            s.Path,
		MaxOpenConns:    s.MaxOpenConns,
		MaxIdleConns:    s.MaxIdleConns,
		ConnMaxLifetime: s.ConnMaxLifetime,
		OpenTimeout:     s.OpenTimeout,
	}
}

// Default returns the configuration used when no file is given: a private
// in-memory SQLite store with console logging.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: string(stores.DriverSQLite),
			Path:   stores.MemoryPath,
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}
