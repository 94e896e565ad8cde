// ABOUTME: Transaction CRUD against the store's primary DuckDB handle
// ABOUTME: Dates bind as ISO strings and rely on DuckDB's VARCHAR-to-DATE cast

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const transactionCols = "id, envelope_id, amount, description, date, type"

// dateArg formats a time for binding against a DATE column.
func dateArg(t time.Time) string {
	return t.Format("2006-01-02")
}

// CreateTransaction inserts a new transaction and returns it with its
// assigned id. Referencing a missing envelope returns ErrUnknownEnvelope.
func (db *DB) CreateTransaction(envelopeID int64, amount float64, description string, date time.Time, txType string) (Transaction, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var id int64
	err := db.conn.QueryRow(
		`INSERT INTO transactions (id, envelope_id, amount, description, date, type)
		 VALUES (nextval('transactions_id_seq'), ?, ?, ?, ?, ?) RETURNING id`,
		envelopeID, amount, description, dateArg(date), txType,
	).Scan(&id)
	if err != nil {
		return Transaction{}, fmt.Errorf("creating transaction: %w", classifyConstraintError(err))
	}
	return Transaction{
		ID:          id,
		EnvelopeID:  envelopeID,
		Amount:      amount,
		Description: description,
		Date:        date,
		Type:        txType,
	}, nil
}

// GetTransaction returns one transaction by id, or ErrNotFound.
func (db *DB) GetTransaction(id int64) (Transaction, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var t Transaction
	err := db.conn.QueryRow(
		"SELECT "+transactionCols+" FROM transactions WHERE id = ?", id,
	).Scan(&t.ID, &t.EnvelopeID, &t.Amount, &t.Description, &t.Date, &t.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return Transaction{}, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("getting transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns all transactions, newest first.
func (db *DB) ListTransactions() ([]Transaction, error) {
	return db.queryTransactions(
		"SELECT " + transactionCols + " FROM transactions ORDER BY date DESC, id DESC",
	)
}

// TransactionsForEnvelope returns one envelope's transactions, newest first.
func (db *DB) TransactionsForEnvelope(envelopeID int64) ([]Transaction, error) {
	return db.queryTransactions(
		"SELECT "+transactionCols+" FROM transactions WHERE envelope_id = ? ORDER BY date DESC, id DESC",
		envelopeID,
	)
}

func (db *DB) queryTransactions(query string, args ...any) ([]Transaction, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.EnvelopeID, &t.Amount, &t.Description, &t.Date, &t.Type); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return txns, nil
}

// UpdateTransaction applies the non-nil fields of upd to the transaction. It
// returns false with a nil error when upd names no fields; re-pointing at a
// missing envelope returns ErrUnknownEnvelope.
func (db *DB) UpdateTransaction(id int64, upd TransactionUpdate) (bool, error) {
	var sets []string
	var args []any
	if upd.EnvelopeID != nil {
		sets = append(sets, "envelope_id = ?")
		args = append(args, *upd.EnvelopeID)
	}
	if upd.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, *upd.Amount)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, dateArg(*upd.Date))
	}
	if upd.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, *upd.Type)
	}
	if len(sets) == 0 {
		return false, nil
	}
	args = append(args, id)

	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec(
		"UPDATE transactions SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...,
	)
	if err != nil {
		return false, fmt.Errorf("updating transaction: %w", classifyConstraintError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating transaction: %w", err)
	}
	if n == 0 {
		return false, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	return true, nil
}

// DeleteTransaction removes a transaction. Deleting an absent transaction is
// not an error; the return reports whether a row existed.
func (db *DB) DeleteTransaction(id int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec("DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("deleting transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting transaction: %w", err)
	}
	return n > 0, nil
}
