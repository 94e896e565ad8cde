// ABOUTME: Wire representations shared by the REST API and MCP tools
// ABOUTME: Renders transaction dates as plain YYYY-MM-DD strings

package service

import "github.com/budgetd/envelopes/internal/store"

// TransactionView is the wire shape of a transaction. Dates travel as
// YYYY-MM-DD strings, matching the accepted input format.
type TransactionView struct {
	ID          int64   `json:"id"`
	EnvelopeID  int64   `json:"envelope_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Type        string  `json:"type"`
}

// NewTransactionView converts a stored transaction to its wire shape.
func NewTransactionView(t store.Transaction) TransactionView {
	return TransactionView{
		ID:          t.ID,
		EnvelopeID:  t.EnvelopeID,
		Amount:      t.Amount,
		Description: t.Description,
		Date:        t.Date.Format(DateLayout),
		Type:        t.Type,
	}
}

// NewTransactionViews converts a slice of stored transactions. It always
// returns a non-nil slice so empty lists serialize as [].
func NewTransactionViews(txns []store.Transaction) []TransactionView {
	views := make([]TransactionView, 0, len(txns))
	for _, t := range txns {
		views = append(views, NewTransactionView(t))
	}
	return views
}
