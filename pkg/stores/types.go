package stores

import (
	"context"
	"time"
)

// Driver names an embedded engine backing a Store.
type Driver string

const (
	DriverSQLite Driver = "sqlite"
	DriverBolt   Driver = "bolt"
)

// MemoryPath selects a private in-memory SQLite database.
const MemoryPath = ":memory:"

// Record is a single (id, value) row.
type Record struct {
	ID    int64  `json:"id" yaml:"id"`
	Value string `json:"value" yaml:"value"`
}

// Config holds store configuration.
type Config struct {
	// Driver selects the embedded engine. Empty means sqlite.
	Driver Driver

	// Path is the database location. ":memory:" is only valid for sqlite.
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// OpenTimeout bounds how long bolt waits for its file lock.
	OpenTimeout time.Duration
}

// Store defines CRUD access to records backed by an embedded engine.
//
// Every operation is its own implicit transaction. A missing id is never an
// error: Read and Get report absence, Update and Delete report that nothing
// was affected.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error

	// Record operations
	Insert(ctx context.Context, id int64, value string) error
	Read(ctx context.Context, id int64) (string, bool, error)
	Update(ctx context.Context, id int64, value string) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)

	Get(ctx context.Context, id int64) (*Record, error)
	List(ctx context.Context, limit, offset int) ([]*Record, error)
	Count(ctx context.Context) (int64, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
