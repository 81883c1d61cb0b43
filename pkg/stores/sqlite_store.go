package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, invalidConfig("database path is required")
	}

	// A private in-memory database lives exactly as long as its connection,
	// so the pool is pinned to a single connection that never expires.
	if cfg.Path == MemoryPath {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
		return &SQLiteStore{cfg: cfg}, nil
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{cfg: cfg}, nil
}

// dsn builds the driver connection string with per-connection pragmas.
func (s *SQLiteStore) dsn() string {
	if s.cfg.Path == MemoryPath {
		return MemoryPath + "?_pragma=foreign_keys(1)"
	}
	return fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate", s.cfg.Path)
}

// Init opens the database connection and verifies it.
func (s *SQLiteStore) Init(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.dsn())
	if err != nil {
		return unavailable("init", fmt.Errorf("failed to open database: %w", err))
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return unavailable("init", fmt.Errorf("failed to ping database: %w", err))
	}

	s.db = db
	return nil
}

// Close closes the database connection. It is safe to call more than once.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	if err := db.Close(); err != nil {
		return unavailable("close", err)
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return unavailable("migrate", errClosed)
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return unavailable("migrate", fmt.Errorf("failed to create migration source: %w", err))
	}

	// Create database driver
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return unavailable("migrate", fmt.Errorf("failed to create database driver: %w", err))
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return unavailable("migrate", fmt.Errorf("failed to create migration instance: %w", err))
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return unavailable("migrate", fmt.Errorf("failed to run migrations: %w", err))
	}

	return nil
}

// Insert creates a new record. An existing id yields ErrDuplicateID.
func (s *SQLiteStore) Insert(ctx context.Context, id int64, value string) error {
	if s.db == nil {
		return unavailableID("insert", id, errClosed)
	}

	query := `INSERT INTO records (id, value) VALUES (?, ?)`

	if _, err := s.db.ExecContext(ctx, query, id, value); err != nil {
		if isConstraintViolation(err) {
			return duplicateID(id, err)
		}
		return unavailableID("insert", id, fmt.Errorf("failed to insert record: %w", err))
	}

	return nil
}

// Read returns the value stored for id. found is false when no record exists.
func (s *SQLiteStore) Read(ctx context.Context, id int64) (string, bool, error) {
	if s.db == nil {
		return "", false, unavailableID("read", id, errClosed)
	}

	query := `SELECT value FROM records WHERE id = ?`

	var value string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailableID("read", id, fmt.Errorf("failed to read record: %w", err))
	}

	return value, true, nil
}

// Get returns the record for id, or nil when it does not exist.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Record, error) {
	value, found, err := s.Read(ctx, id)
	if err != nil || !found {
		return nil, err
	}
	return &Record{ID: id, Value: value}, nil
}

// Update replaces the value of an existing record. A missing id affects
// nothing and is reported as updated=false.
func (s *SQLiteStore) Update(ctx context.Context, id int64, value string) (bool, error) {
	if s.db == nil {
		return false, unavailableID("update", id, errClosed)
	}

	query := `UPDATE records SET value = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return false, unavailableID("update", id, fmt.Errorf("failed to update record: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, unavailableID("update", id, fmt.Errorf("failed to get rows affected: %w", err))
	}

	return rows > 0, nil
}

// Delete removes the record for id. A missing id is reported as deleted=false.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) (bool, error) {
	if s.db == nil {
		return false, unavailableID("delete", id, errClosed)
	}

	query := `DELETE FROM records WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, unavailableID("delete", id, fmt.Errorf("failed to delete record: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, unavailableID("delete", id, fmt.Errorf("failed to get rows affected: %w", err))
	}

	return rows > 0, nil
}

// List lists records ordered by id with pagination. A non-positive limit
// returns every record after offset.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	if s.db == nil {
		return nil, unavailable("list", errClosed)
	}
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, value
		FROM records
		ORDER BY id ASC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, unavailable("list", fmt.Errorf("failed to list records: %w", err))
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(&rec.ID, &rec.Value); err != nil {
			return nil, unavailable("list", fmt.Errorf("failed to scan record: %w", err))
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable("list", fmt.Errorf("error iterating records: %w", err))
	}

	return records, nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, unavailable("count", errClosed)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, unavailable("count", fmt.Errorf("failed to count records: %w", err))
	}
	return n, nil
}

// HealthCheck verifies the database connection is alive.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return unavailable("health", errClosed)
	}
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("health", fmt.Errorf("database ping failed: %w", err))
	}
	return nil
}

// isConstraintViolation reports whether err is a SQLite constraint failure.
func isConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	// Primary result code lives in the low byte of extended codes.
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
