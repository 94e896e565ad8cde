// ABOUTME: Bidirectional sync between the local database and MotherDuck
// ABOUTME: Short-lived cloud connections, idempotent upserts, per-table error isolation

package store

import (
	"database/sql"
	"fmt"
)

// cloudSchema mirrors the local tables without foreign keys or sequences:
// synced rows arrive with their ids already assigned, and upserts must never
// trip ordering constraints on the cloud side.
var cloudSchema = []string{
	`CREATE TABLE IF NOT EXISTS envelopes (
		id INTEGER PRIMARY KEY,
		category VARCHAR NOT NULL UNIQUE,
		budgeted_amount DOUBLE NOT NULL,
		starting_balance DOUBLE NOT NULL,
		description VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY,
		envelope_id INTEGER NOT NULL,
		amount DOUBLE NOT NULL,
		description VARCHAR,
		date DATE NOT NULL,
		type VARCHAR NOT NULL
	)`,
}

const (
	upsertEnvelope = `INSERT INTO envelopes (id, category, budgeted_amount, starting_balance, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			category = EXCLUDED.category,
			budgeted_amount = EXCLUDED.budgeted_amount,
			starting_balance = EXCLUDED.starting_balance,
			description = EXCLUDED.description`

	upsertTransaction = `INSERT INTO transactions (id, envelope_id, amount, description, date, type)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			envelope_id = EXCLUDED.envelope_id,
			amount = EXCLUDED.amount,
			description = EXCLUDED.description,
			date = EXCLUDED.date,
			type = EXCLUDED.type`
)

// openCloud dials a short-lived direct connection for one sync operation and
// ensures the cloud schema exists. Callers must close the returned handle.
func (db *DB) openCloud() (*sql.DB, error) {
	conn, err := db.dial(db.cfg.cloudDSN())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCloudUnavailable, err)
	}
	for _, stmt := range cloudSchema {
		if _, err := conn.Exec(stmt); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("creating cloud schema: %w", err)
		}
	}
	return conn, nil
}

// syncPreflight enforces the mode preconditions shared by both directions.
func (db *DB) syncPreflight() error {
	if db.state.EffectiveMode == ModeCloud {
		return ErrNotApplicable
	}
	if !db.state.CloudConnected {
		return ErrCloudUnavailable
	}
	return nil
}

// SyncToCloud pushes every local envelope and transaction to MotherDuck via
// idempotent upserts. The two tables sync independently: a failure in one is
// recorded in the result's Errors and never blocks the other.
func (db *DB) SyncToCloud() (SyncResult, error) {
	if err := db.syncPreflight(); err != nil {
		return SyncResult{}, err
	}

	cloud, err := db.openCloud()
	if err != nil {
		return SyncResult{}, err
	}
	defer cloud.Close()

	db.mu.Lock()
	defer db.mu.Unlock()

	var result SyncResult

	n, err := pushEnvelopes(db.conn, cloud)
	result.EnvelopesSynced = n
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("envelopes: %v", err))
	}

	n, err = pushTransactions(db.conn, cloud)
	result.TransactionsSynced = n
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("transactions: %v", err))
	}

	db.logger.Info("sync to cloud finished",
		"envelopes", result.EnvelopesSynced,
		"transactions", result.TransactionsSynced,
		"errors", len(result.Errors),
	)
	return result, nil
}

// SyncFromCloud pulls every cloud envelope and transaction into the local
// database via idempotent upserts. Envelopes land first so the local foreign
// key is satisfied for incoming transactions.
func (db *DB) SyncFromCloud() (SyncResult, error) {
	if err := db.syncPreflight(); err != nil {
		return SyncResult{}, err
	}

	cloud, err := db.openCloud()
	if err != nil {
		return SyncResult{}, err
	}
	defer cloud.Close()

	db.mu.Lock()
	defer db.mu.Unlock()

	var result SyncResult

	n, err := pushEnvelopes(cloud, db.conn)
	result.EnvelopesSynced = n
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("envelopes: %v", err))
	}

	n, err = pushTransactions(cloud, db.conn)
	result.TransactionsSynced = n
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("transactions: %v", err))
	}

	db.logger.Info("sync from cloud finished",
		"envelopes", result.EnvelopesSynced,
		"transactions", result.TransactionsSynced,
		"errors", len(result.Errors),
	)
	return result, nil
}

// pushEnvelopes copies all envelope rows from src to dst, returning the
// number of rows upserted before any failure.
func pushEnvelopes(src, dst *sql.DB) (int, error) {
	rows, err := src.Query("SELECT " + envelopeCols + " FROM envelopes")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var envelopes []Envelope
	for rows.Next() {
		var e Envelope
		if err := rows.Scan(&e.ID, &e.Category, &e.BudgetedAmount, &e.StartingBalance, &e.Description); err != nil {
			return 0, err
		}
		envelopes = append(envelopes, e)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for i, e := range envelopes {
		if _, err := dst.Exec(upsertEnvelope, e.ID, e.Category, e.BudgetedAmount, e.StartingBalance, e.Description); err != nil {
			return i, err
		}
	}
	return len(envelopes), nil
}

// pushTransactions copies all transaction rows from src to dst, returning
// the number of rows upserted before any failure.
func pushTransactions(src, dst *sql.DB) (int, error) {
	rows, err := src.Query("SELECT " + transactionCols + " FROM transactions")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.EnvelopeID, &t.Amount, &t.Description, &t.Date, &t.Type); err != nil {
			return 0, err
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for i, t := range txns {
		if _, err := dst.Exec(upsertTransaction, t.ID, t.EnvelopeID, t.Amount, t.Description, dateArg(t.Date), t.Type); err != nil {
			return i, err
		}
	}
	return len(txns), nil
}

// SyncStatus compares local and cloud row counts. An unreachable cloud is
// reported in the status rather than raised, so callers can render a
// degraded-but-healthy view.
func (db *DB) SyncStatus() (SyncStatus, error) {
	if db.state.EffectiveMode == ModeCloud {
		return SyncStatus{
			CloudAvailable: true,
			Mode:           ModeCloud,
			Message:        "operating in cloud-only mode; nothing to sync",
		}, nil
	}

	db.mu.Lock()
	local, err := tableCounts(db.conn)
	db.mu.Unlock()
	if err != nil {
		return SyncStatus{}, fmt.Errorf("counting local rows: %w", err)
	}

	status := SyncStatus{
		Mode:        db.state.EffectiveMode,
		LocalCounts: local,
	}

	if !db.state.CloudConnected {
		status.Message = "cloud connection not available"
		return status, nil
	}

	cloud, err := db.openCloud()
	if err != nil {
		status.Message = "cloud not reachable"
		return status, nil
	}
	defer cloud.Close()

	remote, err := tableCounts(cloud)
	if err != nil {
		status.Message = fmt.Sprintf("counting cloud rows: %v", err)
		return status, nil
	}

	status.CloudAvailable = true
	status.CloudCounts = remote
	status.SyncNeeded = local != remote
	return status, nil
}

func tableCounts(conn *sql.DB) (Counts, error) {
	var c Counts
	if err := conn.QueryRow("SELECT COUNT(*) FROM envelopes").Scan(&c.Envelopes); err != nil {
		return Counts{}, err
	}
	if err := conn.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&c.Transactions); err != nil {
		return Counts{}, err
	}
	return c, nil
}
