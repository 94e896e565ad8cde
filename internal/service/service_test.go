// ABOUTME: Tests for service-layer validation and the budget summary
// ABOUTME: Runs against a real in-memory store

package service

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetd/envelopes/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := store.Open(store.Config{Path: store.MemoryPath, Mode: store.ModeLocal}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, logger)
}

func TestCreateEnvelope_Validation(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		name string
		in   EnvelopeInput
	}{
		{"empty category", EnvelopeInput{Category: "", BudgetedAmount: 100}},
		{"whitespace category", EnvelopeInput{Category: "   ", BudgetedAmount: 100}},
		{"negative budget", EnvelopeInput{Category: "Groceries", BudgetedAmount: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateEnvelope(tc.in)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestCreateEnvelope_TrimsCategory(t *testing.T) {
	svc := newTestService(t)

	env, err := svc.CreateEnvelope(EnvelopeInput{Category: "  Groceries  ", BudgetedAmount: 500})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", env.Category)
}

func TestGetEnvelope_IncludesBalance(t *testing.T) {
	svc := newTestService(t)

	env, err := svc.CreateEnvelope(EnvelopeInput{Category: "Groceries", BudgetedAmount: 500, StartingBalance: 100})
	require.NoError(t, err)

	_, err = svc.CreateTransaction(TransactionInput{
		EnvelopeID: env.ID, Amount: 40, Date: "2026-01-15", Type: store.TypeExpense,
	})
	require.NoError(t, err)

	got, err := svc.GetEnvelope(env.ID)
	require.NoError(t, err)
	assert.Equal(t, 60.0, got.CurrentBalance)
}

func TestCreateTransaction_Validation(t *testing.T) {
	svc := newTestService(t)
	env, err := svc.CreateEnvelope(EnvelopeInput{Category: "Groceries", BudgetedAmount: 500})
	require.NoError(t, err)

	cases := []struct {
		name string
		in   TransactionInput
		want error
	}{
		{"zero amount", TransactionInput{EnvelopeID: env.ID, Amount: 0, Date: "2026-01-15", Type: "expense"}, ErrInvalid},
		{"negative amount", TransactionInput{EnvelopeID: env.ID, Amount: -5, Date: "2026-01-15", Type: "expense"}, ErrInvalid},
		{"bad type", TransactionInput{EnvelopeID: env.ID, Amount: 5, Date: "2026-01-15", Type: "transfer"}, ErrInvalid},
		{"bad date", TransactionInput{EnvelopeID: env.ID, Amount: 5, Date: "15/01/2026", Type: "expense"}, ErrInvalid},
		{"missing envelope", TransactionInput{EnvelopeID: 9999, Amount: 5, Date: "2026-01-15", Type: "expense"}, store.ErrUnknownEnvelope},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUpdateEnvelope_NoFields(t *testing.T) {
	svc := newTestService(t)
	env, err := svc.CreateEnvelope(EnvelopeInput{Category: "Groceries", BudgetedAmount: 500})
	require.NoError(t, err)

	_, err = svc.UpdateEnvelope(env.ID, EnvelopePatch{})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestUpdateEnvelope_RejectsBadPatch(t *testing.T) {
	svc := newTestService(t)
	env, err := svc.CreateEnvelope(EnvelopeInput{Category: "Groceries", BudgetedAmount: 500})
	require.NoError(t, err)

	empty := "  "
	_, err = svc.UpdateEnvelope(env.ID, EnvelopePatch{Category: &empty})
	assert.ErrorIs(t, err, ErrInvalid)

	negative := -10.0
	_, err = svc.UpdateEnvelope(env.ID, EnvelopePatch{BudgetedAmount: &negative})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestUpdateTransaction_RetargetsEnvelope(t *testing.T) {
	svc := newTestService(t)
	groceries, err := svc.CreateEnvelope(EnvelopeInput{Category: "Groceries", BudgetedAmount: 500})
	require.NoError(t, err)
	rent, err := svc.CreateEnvelope(EnvelopeInput{Category: "Rent", BudgetedAmount: 1200})
	require.NoError(t, err)

	txn, err := svc.CreateTransaction(TransactionInput{
		EnvelopeID: groceries.ID, Amount: 40, Date: "2026-01-15", Type: store.TypeExpense,
	})
	require.NoError(t, err)

	got, err := svc.UpdateTransaction(txn.ID, TransactionPatch{EnvelopeID: &rent.ID})
	require.NoError(t, err)
	assert.Equal(t, rent.ID, got.EnvelopeID)

	missing := int64(9999)
	_, err = svc.UpdateTransaction(txn.ID, TransactionPatch{EnvelopeID: &missing})
	assert.ErrorIs(t, err, store.ErrUnknownEnvelope)
}

func TestDeleteMissing(t *testing.T) {
	svc := newTestService(t)

	assert.ErrorIs(t, svc.DeleteEnvelope(9999), store.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteTransaction(9999), store.ErrNotFound)
}

func TestBudgetSummary(t *testing.T) {
	svc := newTestService(t)

	groceries, err := svc.CreateEnvelope(EnvelopeInput{Category: "Groceries", BudgetedAmount: 500, StartingBalance: 100})
	require.NoError(t, err)
	_, err = svc.CreateEnvelope(EnvelopeInput{Category: "Rent", BudgetedAmount: 1200, StartingBalance: 1200})
	require.NoError(t, err)

	_, err = svc.CreateTransaction(TransactionInput{
		EnvelopeID: groceries.ID, Amount: 40, Date: "2026-01-15", Type: store.TypeExpense,
	})
	require.NoError(t, err)

	summary, err := svc.BudgetSummary()
	require.NoError(t, err)

	assert.Equal(t, 2, summary.EnvelopeCount)
	assert.Equal(t, 1, summary.TransactionCount)
	assert.Equal(t, 1700.0, summary.TotalBudgeted)
	assert.Equal(t, 1260.0, summary.TotalBalance)
	assert.Equal(t, 40.0, summary.TotalSpent)
	assert.InDelta(t, 40.0/1700.0*100, summary.UtilizationPct, 1e-9)
	require.Len(t, summary.Envelopes, 2)
}

func TestListTransactions_FilterChecksEnvelope(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ListTransactions(9999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTransactionView_DateFormat(t *testing.T) {
	svc := newTestService(t)
	env, err := svc.CreateEnvelope(EnvelopeInput{Category: "Groceries", BudgetedAmount: 500})
	require.NoError(t, err)

	txn, err := svc.CreateTransaction(TransactionInput{
		EnvelopeID: env.ID, Amount: 40, Date: "2026-01-15", Type: store.TypeExpense,
	})
	require.NoError(t, err)

	view := NewTransactionView(txn)
	assert.Equal(t, "2026-01-15", view.Date)
}
