// ABOUTME: DuckDB connection establishment for local, cloud, and hybrid modes
// ABOUTME: Handles MotherDuck pre-creation, reachability probing, and local fallback

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// dialFunc opens a live database handle for a DSN. Injected so that
// connection establishment is deterministic under test.
type dialFunc func(dsn string) (*sql.DB, error)

// attachFunc attaches the MotherDuck catalog to a primary handle.
type attachFunc func(conn *sql.DB, token string) error

// duckdbDial opens a DuckDB handle and forces the connection immediately;
// sql.Open alone is lazy and would defer failures past the fallback logic.
func duckdbDial(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// DB wraps a DuckDB connection in one of the three connection modes.
//
// The embedded engine's connection is not safe for unsynchronized concurrent
// use, so every operation serializes on an internal mutex. The handle is
// exclusively owned by the DB that created it.
type DB struct {
	mu     sync.Mutex
	conn   *sql.DB
	cfg    Config
	state  ConnectionState
	dial   dialFunc
	attach attachFunc
	logger *slog.Logger
}

// Open validates cfg, establishes a connection according to its mode, and
// ensures the schema exists. Validation failures and local open failures are
// fatal; cloud-side failures degrade to local-only operation and are recorded
// in the ConnectionState instead of being raised.
//
// The caller must Close the returned DB.
func Open(cfg Config, logger *slog.Logger) (*DB, error) {
	return open(cfg, duckdbDial, attachCatalog, logger)
}

func open(cfg Config, dial dialFunc, attach attachFunc, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db := &DB{
		cfg:    cfg,
		dial:   dial,
		attach: attach,
		logger: logger.With("component", "store"),
	}

	// All validation completes before any file or network I/O.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Mode != ModeCloud && cfg.Path != MemoryPath {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	conn, state, err := db.connect()
	if err != nil {
		return nil, err
	}
	db.conn = conn
	db.state = state

	if err := db.createTables(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db.logger.Info("database initialized",
		"requested_mode", state.RequestedMode,
		"effective_mode", state.EffectiveMode,
		"cloud_connected", state.CloudConnected,
	)
	return db, nil
}

// connect runs the per-mode establishment state machine and returns a ready
// handle together with a fully formed ConnectionState.
func (db *DB) connect() (*sql.DB, ConnectionState, error) {
	switch db.cfg.Mode {
	case ModeLocal:
		return db.connectLocal()
	case ModeCloud:
		return db.connectCloud()
	case ModeHybrid:
		return db.connectHybrid()
	}
	return nil, ConnectionState{}, fmt.Errorf("%w: %q", ErrInvalidMode, string(db.cfg.Mode))
}

// connectLocal opens the local file or in-memory database. There is no
// fallback for local mode because it is the fallback target.
func (db *DB) connectLocal() (*sql.DB, ConnectionState, error) {
	conn, err := db.openHandle(db.cfg.localDSN())
	if err != nil {
		return nil, ConnectionState{}, fmt.Errorf("opening local database: %w", err)
	}
	db.logger.Info("connected to local database", "path", db.cfg.Path)
	return conn, ConnectionState{
		RequestedMode: ModeLocal,
		EffectiveMode: ModeLocal,
		Info:          map[string]string{"primary": "local"},
	}, nil
}

// connectCloud connects directly to MotherDuck, falling back to the local
// path if the cloud is unreachable. On double failure the local error is the
// one propagated.
func (db *DB) connectCloud() (*sql.DB, ConnectionState, error) {
	db.ensureCloudDatabase()

	conn, err := db.openHandle(db.cfg.cloudDSN())
	if err != nil {
		db.logger.Warn("motherduck connection failed, falling back to local-only", "error", err)
		local, lerr := db.openHandle(db.cfg.localDSN())
		if lerr != nil {
			db.logger.Error("local fallback also failed", "error", lerr)
			return nil, ConnectionState{}, fmt.Errorf("local fallback failed: %w", lerr)
		}
		db.logger.Warn("connected in local-only mode", "requested_mode", ModeCloud)
		return local, ConnectionState{
			RequestedMode: ModeCloud,
			EffectiveMode: ModeLocal,
			Fallback:      true,
			Info: map[string]string{
				"primary":        "local",
				"fallback":       "true",
				"requested_mode": string(ModeCloud),
			},
		}, nil
	}

	name, _ := db.cfg.databaseName()
	db.logger.Info("connected to motherduck database", "database", name)
	return conn, ConnectionState{
		RequestedMode:  ModeCloud,
		EffectiveMode:  ModeCloud,
		CloudConnected: true,
		Info:           map[string]string{"primary": "cloud"},
	}, nil
}

// connectHybrid opens the local primary, then probes the cloud with a
// throwaway connection and attempts catalog attachment. Cloud reachability
// and catalog usability are tracked independently: a reachable cloud with a
// failed attachment still supports the direct-connection sync path.
func (db *DB) connectHybrid() (*sql.DB, ConnectionState, error) {
	db.ensureCloudDatabase()

	conn, err := db.openHandle(db.cfg.localDSN())
	if err != nil {
		return nil, ConnectionState{}, fmt.Errorf("opening local database: %w", err)
	}

	state := ConnectionState{
		RequestedMode: ModeHybrid,
		EffectiveMode: ModeHybrid,
		Info:          map[string]string{"primary": "local"},
	}

	probe, err := db.dial(db.cfg.cloudDSN())
	if err != nil {
		db.logger.Warn("motherduck not reachable in hybrid mode, continuing local-only", "error", err)
		state.Info["cloud_available"] = "false"
		return conn, state, nil
	}
	_ = probe.Close()

	state.CloudConnected = true
	state.Info["cloud_available"] = "true"

	if err := db.attach(conn, db.cfg.Token); err != nil {
		db.logger.Warn("motherduck catalog attachment failed, sync uses direct connections only", "error", err)
		state.Info["catalog_attached"] = "false"
		return conn, state, nil
	}
	state.CatalogAttached = true
	state.Info["catalog_attached"] = "true"

	name, _ := db.cfg.databaseName()
	db.logger.Info("motherduck database accessible for hybrid operations", "database", name)
	return conn, state, nil
}

// openHandle dials a DSN and applies the shared post-connect session
// settings that every returned handle carries.
func (db *DB) openHandle(dsn string) (*sql.DB, error) {
	conn, err := db.dial(dsn)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec("SET TimeZone='UTC'"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("applying session settings: %w", err)
	}
	return conn, nil
}

// ensureCloudDatabase creates the MotherDuck database if it does not exist,
// via a throwaway connection that names no database. Failure here is logged
// and never fatal; the main connection logic handles the fallback.
func (db *DB) ensureCloudDatabase() {
	name, _ := db.cfg.databaseName()
	conn, err := db.dial(db.cfg.bootstrapDSN())
	if err != nil {
		db.logger.Warn("cannot reach motherduck for database pre-creation", "database", name, "error", err)
		return
	}
	defer conn.Close()

	// name is already validated against databaseNameRe, so it is safe to
	// interpolate; CREATE DATABASE takes no bind parameters.
	if _, err := conn.Exec("CREATE DATABASE IF NOT EXISTS " + name); err != nil {
		db.logger.Warn("motherduck database pre-creation failed", "database", name, "error", err)
		return
	}
	db.logger.Info("motherduck database created or verified", "database", name)
}

// attachCatalog installs and loads the motherduck extension on the primary
// handle and sets the credential. No validation query follows: schema-level
// test queries are unreliable across catalog boundaries, and the SET already
// exercises the token.
func attachCatalog(conn *sql.DB, token string) error {
	for _, stmt := range []string{"INSTALL motherduck", "LOAD motherduck"} {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", strings.ToLower(stmt), err)
		}
	}
	escaped := strings.ReplaceAll(token, "'", "''")
	if _, err := conn.Exec("SET motherduck_token='" + escaped + "'"); err != nil {
		return fmt.Errorf("setting motherduck token: %w", err)
	}
	return nil
}

// createTables creates the envelopes and transactions tables and their id
// sequences if they do not exist. Idempotent.
func (db *DB) createTables() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS envelopes (
			id INTEGER PRIMARY KEY,
			category VARCHAR NOT NULL UNIQUE,
			budgeted_amount DOUBLE NOT NULL,
			starting_balance DOUBLE NOT NULL,
			description VARCHAR
		)`,
		`CREATE SEQUENCE IF NOT EXISTS envelopes_id_seq`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY,
			envelope_id INTEGER NOT NULL,
			amount DOUBLE NOT NULL,
			description VARCHAR,
			date DATE NOT NULL,
			type VARCHAR NOT NULL,
			FOREIGN KEY (envelope_id) REFERENCES envelopes(id)
		)`,
		`CREATE SEQUENCE IF NOT EXISTS transactions_id_seq`,
	}
	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// State returns a copy of the connection state.
func (db *DB) State() ConnectionState {
	state := db.state
	state.Info = make(map[string]string, len(db.state.Info))
	for k, v := range db.state.Info {
		state.Info[k] = v
	}
	return state
}

// ConnectionStatus reports the current connection mode and diagnostics. When
// a fallback occurred the Warning field tells operators they are running
// degraded even though construction succeeded.
func (db *DB) ConnectionStatus() ConnectionStatus {
	state := db.State()
	status := ConnectionStatus{
		Mode:           state.EffectiveMode,
		CloudConnected: state.CloudConnected,
		ConnectionInfo: state.Info,
	}
	if name, err := db.cfg.databaseName(); err == nil && db.cfg.Mode.RequiresToken() {
		status.Database = name
	}
	if state.Fallback {
		status.Warning = fmt.Sprintf("requested %s mode but fell back to local-only connection", state.RequestedMode)
	}
	return status
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.conn == nil {
		return nil
	}
	err := db.conn.Close()
	db.conn = nil
	if err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	db.logger.Info("database connection closed")
	return nil
}
