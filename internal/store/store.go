// ABOUTME: Data types shared across the store package
// ABOUTME: Envelope, Transaction, connection state, and sync result structs

package store

import "time"

// Transaction type constants.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Envelope is a named budget bucket with a planned amount. Its current
// balance is derived from its transactions and never persisted.
type Envelope struct {
	ID              int64   `json:"id"`
	Category        string  `json:"category"`
	BudgetedAmount  float64 `json:"budgeted_amount"`
	StartingBalance float64 `json:"starting_balance"`
	Description     string  `json:"description"`
}

// Transaction is a dated movement of money against one envelope.
type Transaction struct {
	ID         int64
	EnvelopeID int64
	Amount     float64
	Description string
	Date       time.Time
	Type       string // TypeIncome or TypeExpense
}

// ConnectionState describes how a DB ended up connected. It is built once
// during Open and never mutated afterwards.
type ConnectionState struct {
	// RequestedMode is the mode the configuration asked for.
	RequestedMode Mode

	// EffectiveMode is the mode actually in effect; it differs from
	// RequestedMode when a fallback occurred.
	EffectiveMode Mode

	// CloudConnected reports whether MotherDuck was reachable when the
	// connection was established.
	CloudConnected bool

	// CatalogAttached reports whether the MotherDuck catalog was attached to
	// the primary handle (hybrid mode only). Independent of CloudConnected:
	// a reachable cloud with a failed attachment keeps CloudConnected true.
	CatalogAttached bool

	// Fallback is set when the requested cloud backend could not be reached
	// and the DB silently downgraded to local-only operation.
	Fallback bool

	// Info carries free-form diagnostic details about the connection.
	Info map[string]string
}

// ConnectionStatus is the externally visible connection report.
type ConnectionStatus struct {
	Mode           Mode              `json:"mode"`
	CloudConnected bool              `json:"is_cloud_connected"`
	ConnectionInfo map[string]string `json:"connection_info"`
	Database       string            `json:"motherduck_database,omitempty"`
	Warning        string            `json:"warning,omitempty"`
}

// SyncResult reports the outcome of one SyncToCloud or SyncFromCloud call.
// Per-table failures are collected in Errors rather than raised, so one bad
// table never masks a successful sync of the other.
type SyncResult struct {
	EnvelopesSynced    int      `json:"envelopes_synced"`
	TransactionsSynced int      `json:"transactions_synced"`
	Errors             []string `json:"errors"`
}

// Counts holds per-table row counts for sync status reporting.
type Counts struct {
	Envelopes    int `json:"envelopes"`
	Transactions int `json:"transactions"`
}

// SyncStatus compares local and cloud row counts. SyncNeeded is a coarse
// count heuristic, not a content diff.
type SyncStatus struct {
	CloudAvailable bool   `json:"cloud_available"`
	Mode           Mode   `json:"mode,omitempty"`
	LocalCounts    Counts `json:"local_counts"`
	CloudCounts    Counts `json:"cloud_counts"`
	SyncNeeded     bool   `json:"sync_needed"`
	Message        string `json:"message,omitempty"`
}

// EnvelopeUpdate is a sparse set of envelope fields for UpdateEnvelope.
// Nil fields are left untouched.
type EnvelopeUpdate struct {
	Category        *string
	BudgetedAmount  *float64
	StartingBalance *float64
	Description     *string
}

// TransactionUpdate is a sparse set of transaction fields for
// UpdateTransaction. Nil fields are left untouched.
type TransactionUpdate struct {
	EnvelopeID  *int64
	Amount      *float64
	Description *string
	Date        *time.Time
	Type        *string
}
