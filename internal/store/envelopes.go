// ABOUTME: Envelope CRUD against the store's primary DuckDB handle
// ABOUTME: Sequence-driven inserts, sparse updates, and derived balance queries

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const envelopeCols = "id, category, budgeted_amount, starting_balance, description"

// CreateEnvelope inserts a new envelope and returns it with its assigned id.
// A category collision returns ErrDuplicateCategory.
func (db *DB) CreateEnvelope(category string, budgeted, starting float64, description string) (Envelope, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var id int64
	err := db.conn.QueryRow(
		`INSERT INTO envelopes (id, category, budgeted_amount, starting_balance, description)
		 VALUES (nextval('envelopes_id_seq'), ?, ?, ?, ?) RETURNING id`,
		category, budgeted, starting, description,
	).Scan(&id)
	if err != nil {
		return Envelope{}, fmt.Errorf("creating envelope: %w", classifyConstraintError(err))
	}
	return Envelope{
		ID:              id,
		Category:        category,
		BudgetedAmount:  budgeted,
		StartingBalance: starting,
		Description:     description,
	}, nil
}

// GetEnvelope returns one envelope by id, or ErrNotFound.
func (db *DB) GetEnvelope(id int64) (Envelope, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.getEnvelopeLocked(id)
}

func (db *DB) getEnvelopeLocked(id int64) (Envelope, error) {
	var e Envelope
	err := db.conn.QueryRow(
		"SELECT "+envelopeCols+" FROM envelopes WHERE id = ?", id,
	).Scan(&e.ID, &e.Category, &e.BudgetedAmount, &e.StartingBalance, &e.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return Envelope{}, fmt.Errorf("envelope %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Envelope{}, fmt.Errorf("getting envelope: %w", err)
	}
	return e, nil
}

// GetEnvelopeByCategory returns the envelope with the given category, or
// ErrNotFound.
func (db *DB) GetEnvelopeByCategory(category string) (Envelope, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var e Envelope
	err := db.conn.QueryRow(
		"SELECT "+envelopeCols+" FROM envelopes WHERE category = ?", category,
	).Scan(&e.ID, &e.Category, &e.BudgetedAmount, &e.StartingBalance, &e.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return Envelope{}, fmt.Errorf("envelope %q: %w", category, ErrNotFound)
	}
	if err != nil {
		return Envelope{}, fmt.Errorf("getting envelope: %w", err)
	}
	return e, nil
}

// ListEnvelopes returns all envelopes ordered by category.
func (db *DB) ListEnvelopes() ([]Envelope, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query("SELECT " + envelopeCols + " FROM envelopes ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("listing envelopes: %w", err)
	}
	defer rows.Close()

	var envelopes []Envelope
	for rows.Next() {
		var e Envelope
		if err := rows.Scan(&e.ID, &e.Category, &e.BudgetedAmount, &e.StartingBalance, &e.Description); err != nil {
			return nil, fmt.Errorf("scanning envelope: %w", err)
		}
		envelopes = append(envelopes, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing envelopes: %w", err)
	}
	return envelopes, nil
}

// UpdateEnvelope applies the non-nil fields of upd to the envelope. It
// returns false with a nil error when upd names no fields; renaming onto an
// existing category returns ErrDuplicateCategory.
func (db *DB) UpdateEnvelope(id int64, upd EnvelopeUpdate) (bool, error) {
	var sets []string
	var args []any
	if upd.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *upd.Category)
	}
	if upd.BudgetedAmount != nil {
		sets = append(sets, "budgeted_amount = ?")
		args = append(args, *upd.BudgetedAmount)
	}
	if upd.StartingBalance != nil {
		sets = append(sets, "starting_balance = ?")
		args = append(args, *upd.StartingBalance)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if len(sets) == 0 {
		return false, nil
	}
	args = append(args, id)

	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec(
		"UPDATE envelopes SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...,
	)
	if err != nil {
		return false, fmt.Errorf("updating envelope: %w", classifyConstraintError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating envelope: %w", err)
	}
	if n == 0 {
		return false, fmt.Errorf("envelope %d: %w", id, ErrNotFound)
	}
	return true, nil
}

// DeleteEnvelope removes an envelope and all its transactions. Deleting an
// absent envelope is not an error; the return reports whether a row existed.
func (db *DB) DeleteEnvelope(id int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	// Children first so the foreign key never blocks the delete.
	if _, err := db.conn.Exec("DELETE FROM transactions WHERE envelope_id = ?", id); err != nil {
		return false, fmt.Errorf("deleting envelope transactions: %w", err)
	}
	res, err := db.conn.Exec("DELETE FROM envelopes WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("deleting envelope: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting envelope: %w", err)
	}
	return n > 0, nil
}

// CurrentBalance computes an envelope's balance: starting balance plus income
// minus expenses across all its transactions.
func (db *DB) CurrentBalance(id int64) (float64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	e, err := db.getEnvelopeLocked(id)
	if err != nil {
		return 0, err
	}

	var delta sql.NullFloat64
	err = db.conn.QueryRow(
		`SELECT SUM(CASE WHEN type = ? THEN amount ELSE -amount END)
		 FROM transactions WHERE envelope_id = ?`,
		TypeIncome, id,
	).Scan(&delta)
	if err != nil {
		return 0, fmt.Errorf("computing balance: %w", err)
	}
	return e.StartingBalance + delta.Float64, nil
}
