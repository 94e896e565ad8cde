// ABOUTME: Tests for transaction CRUD, ordering, and referential integrity
// ABOUTME: Runs against an in-memory local database

package store

import (
	"errors"
	"testing"
	"time"
)

func TestCreateAndGetTransaction(t *testing.T) {
	db := newLocalDB(t)
	env := mustEnvelope(t, db, "Groceries", 500, 0)

	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	created, err := db.CreateTransaction(env.ID, 42.5, "weekly shop", date, TypeExpense)
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if created.ID == 0 {
		t.Error("created transaction has no id")
	}

	got, err := db.GetTransaction(created.ID)
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if got.EnvelopeID != env.ID || got.Amount != 42.5 || got.Type != TypeExpense {
		t.Errorf("GetTransaction = %+v", got)
	}
	if !got.Date.Equal(date) {
		t.Errorf("Date = %v, want %v", got.Date, date)
	}
}

func TestCreateTransaction_UnknownEnvelope(t *testing.T) {
	db := newLocalDB(t)

	_, err := db.CreateTransaction(9999, 10, "", time.Now(), TypeExpense)
	if !errors.Is(err, ErrUnknownEnvelope) {
		t.Errorf("error = %v, want ErrUnknownEnvelope", err)
	}
}

func TestGetTransaction_NotFound(t *testing.T) {
	db := newLocalDB(t)
	if _, err := db.GetTransaction(9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListTransactions_NewestFirst(t *testing.T) {
	db := newLocalDB(t)
	env := mustEnvelope(t, db, "Groceries", 500, 0)

	oldest := mustTransaction(t, db, env.ID, 10, "2026-01-01", TypeExpense)
	newest := mustTransaction(t, db, env.ID, 20, "2026-03-01", TypeExpense)
	middle := mustTransaction(t, db, env.ID, 30, "2026-02-01", TypeIncome)

	txns, err := db.ListTransactions()
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txns))
	}
	for i, want := range []int64{newest.ID, middle.ID, oldest.ID} {
		if txns[i].ID != want {
			t.Errorf("txns[%d].ID = %d, want %d", i, txns[i].ID, want)
		}
	}
}

func TestTransactionsForEnvelope(t *testing.T) {
	db := newLocalDB(t)
	groceries := mustEnvelope(t, db, "Groceries", 500, 0)
	rent := mustEnvelope(t, db, "Rent", 1200, 0)

	mustTransaction(t, db, groceries.ID, 10, "2026-01-01", TypeExpense)
	mustTransaction(t, db, rent.ID, 1200, "2026-01-01", TypeExpense)
	mustTransaction(t, db, groceries.ID, 20, "2026-01-02", TypeExpense)

	txns, err := db.TransactionsForEnvelope(groceries.ID)
	if err != nil {
		t.Fatalf("TransactionsForEnvelope failed: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txns))
	}
	for _, txn := range txns {
		if txn.EnvelopeID != groceries.ID {
			t.Errorf("transaction %d belongs to envelope %d", txn.ID, txn.EnvelopeID)
		}
	}
}

func TestUpdateTransaction_Sparse(t *testing.T) {
	db := newLocalDB(t)
	env := mustEnvelope(t, db, "Groceries", 500, 0)
	txn := mustTransaction(t, db, env.ID, 40, "2026-01-15", TypeExpense)

	amount := 45.0
	txType := TypeIncome
	ok, err := db.UpdateTransaction(txn.ID, TransactionUpdate{Amount: &amount, Type: &txType})
	if err != nil || !ok {
		t.Fatalf("UpdateTransaction = %v, %v", ok, err)
	}

	got, err := db.GetTransaction(txn.ID)
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if got.Amount != 45 || got.Type != TypeIncome {
		t.Errorf("updated transaction = %+v", got)
	}
	if got.EnvelopeID != env.ID {
		t.Errorf("EnvelopeID changed to %d", got.EnvelopeID)
	}
}

func TestUpdateTransaction_NoFields(t *testing.T) {
	db := newLocalDB(t)
	env := mustEnvelope(t, db, "Groceries", 500, 0)
	txn := mustTransaction(t, db, env.ID, 40, "2026-01-15", TypeExpense)

	ok, err := db.UpdateTransaction(txn.ID, TransactionUpdate{})
	if err != nil {
		t.Fatalf("empty update errored: %v", err)
	}
	if ok {
		t.Error("empty update reported a change")
	}
}

func TestUpdateTransaction_UnknownEnvelope(t *testing.T) {
	db := newLocalDB(t)
	env := mustEnvelope(t, db, "Groceries", 500, 0)
	txn := mustTransaction(t, db, env.ID, 40, "2026-01-15", TypeExpense)

	missing := int64(9999)
	if _, err := db.UpdateTransaction(txn.ID, TransactionUpdate{EnvelopeID: &missing}); !errors.Is(err, ErrUnknownEnvelope) {
		t.Errorf("error = %v, want ErrUnknownEnvelope", err)
	}
}

func TestDeleteTransaction(t *testing.T) {
	db := newLocalDB(t)
	env := mustEnvelope(t, db, "Groceries", 500, 0)
	txn := mustTransaction(t, db, env.ID, 40, "2026-01-15", TypeExpense)

	existed, err := db.DeleteTransaction(txn.ID)
	if err != nil {
		t.Fatalf("DeleteTransaction failed: %v", err)
	}
	if !existed {
		t.Error("DeleteTransaction reported no row for an existing transaction")
	}

	existed, err = db.DeleteTransaction(txn.ID)
	if err != nil {
		t.Fatalf("repeat DeleteTransaction failed: %v", err)
	}
	if existed {
		t.Error("repeat delete reported a row")
	}
}
