// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/metrics"
	"github.com/tomtom215/recserve/internal/recommend"
	"github.com/tomtom215/recserve/internal/resilience"
)

// backendName labels metrics and retry counters.
const backendName = "duckdb"

// Config contains DuckDB settings.
type Config struct {
	// Path is the database file. An empty path opens an in-memory database.
	Path string `koanf:"path"`

	// Threads is the DuckDB worker count. Zero uses the CPU count.
	Threads int `koanf:"threads"`

	// MaxMemory is the DuckDB memory limit, for example "1GB".
	MaxMemory string `koanf:"max_memory"`

	// QueryTimeout bounds each query when the caller has no deadline.
	QueryTimeout time.Duration `koanf:"query_timeout"`

	// Retry configures retries of failed reads.
	Retry resilience.RetryConfig `koanf:"retry"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Path:         "/data/recserve.duckdb",
		MaxMemory:    "1GB",
		QueryTimeout: 5 * time.Second,
		Retry:        resilience.DefaultRetryConfig(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Threads < 0 {
		return fmt.Errorf("duckdb.threads must be non-negative, got %d", c.Threads)
	}
	if c.MaxMemory == "" {
		return fmt.Errorf("duckdb.max_memory is required")
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("duckdb.query_timeout must be positive, got %v", c.QueryTimeout)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("duckdb: %w", err)
	}
	return nil
}

// DB wraps the DuckDB connection and provides the engine's data access
// methods.
type DB struct {
	conn   *sql.DB
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
}

// New opens the database, creates the schema and applies pending
// migrations.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg Config, logger zerolog.Logger) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure the parent directory exists for the database file.
	// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
	if cfg.Path != "" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	// Auto-install is disabled so startup never blocks on the network.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:   conn,
		cfg:    cfg,
		logger: logger.With().Str("component", "database").Logger(),
		now:    time.Now,
	}
	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	db.logger.Info().Str("path", cfg.Path).Int("threads", numThreads).Msg("DuckDB store ready")
	return db, nil
}

// Conn returns the underlying SQL connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Checkpoint(ctx); err != nil {
		db.logger.Warn().Err(err).Msg("Checkpoint before close failed")
	}
	return db.conn.Close()
}

// Checkpoint flushes the WAL into the database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// initialize creates tables and indexes and applies migrations.
func (db *DB) initialize() error {
	if err := db.createTables(); err != nil {
		return err
	}
	if err := db.runVersionedMigrations(); err != nil {
		return err
	}
	if err := db.createIndexes(); err != nil {
		return err
	}
	return nil
}

// configureConnectionPool sets connection pool parameters
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// ensureContext applies the configured query timeout when ctx has no
// deadline of its own.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, db.cfg.QueryTimeout)
}

// read runs op under the retry policy and records metrics. Not-found
// results are returned without retrying; connection failures are reported
// as recommend.ErrStoreUnavailable.
func (db *DB) read(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	err := resilience.Retry(ctx, db.cfg.Retry, backendName, func() error {
		err := op(ctx)
		if errors.Is(err, recommend.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
			return resilience.Permanent(err)
		}
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		err = recommend.ErrNotFound
	}

	recorded := err
	if errors.Is(err, recommend.ErrNotFound) {
		recorded = nil
	}
	metrics.RecordDBQuery(backendName, operation, time.Since(start), recorded)

	if recorded != nil && isConnectionError(recorded) {
		return fmt.Errorf("%s: %w: %w", operation, recommend.ErrStoreUnavailable, err)
	}
	if recorded != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return err
}

// write runs op once and records metrics.
func (db *DB) write(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	err := op(ctx)
	metrics.RecordDBQuery(backendName, operation, time.Since(start), err)
	if err != nil {
		if isConnectionError(err) {
			return fmt.Errorf("%s: %w: %w", operation, recommend.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

// builder returns a squirrel statement builder using DuckDB's ? placeholders.
func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

var (
	_ recommend.EmbeddingStore   = (*DB)(nil)
	_ recommend.ArticleStore     = (*DB)(nil)
	_ recommend.PreferenceStore  = (*DB)(nil)
	_ recommend.InteractionStore = (*DB)(nil)
)
