// ABOUTME: Budget-wide summary and cloud status/sync passthroughs
// ABOUTME: Aggregates envelope balances into a single overview

package service

import "github.com/budgetd/envelopes/internal/store"

// Summary is the budget-wide overview: every envelope with its balance plus
// aggregate totals.
type Summary struct {
	Envelopes        []EnvelopeWithBalance `json:"envelopes"`
	TotalBudgeted    float64               `json:"total_budgeted"`
	TotalBalance     float64               `json:"total_balance"`
	TotalSpent       float64               `json:"total_spent"`
	UtilizationPct   float64               `json:"utilization_pct"`
	EnvelopeCount    int                   `json:"envelope_count"`
	TransactionCount int                   `json:"transaction_count"`
}

// BudgetSummary computes the overview across all envelopes. Utilization is
// total expenses over the total budgeted amount, as a percentage.
func (s *Service) BudgetSummary() (Summary, error) {
	envelopes, err := s.ListEnvelopes()
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Envelopes:     envelopes,
		EnvelopeCount: len(envelopes),
	}
	for _, env := range envelopes {
		summary.TotalBudgeted += env.BudgetedAmount
		summary.TotalBalance += env.CurrentBalance
	}

	txns, err := s.db.ListTransactions()
	if err != nil {
		return Summary{}, err
	}
	summary.TransactionCount = len(txns)
	for _, txn := range txns {
		if txn.Type == store.TypeExpense {
			summary.TotalSpent += txn.Amount
		}
	}
	if summary.TotalBudgeted > 0 {
		summary.UtilizationPct = summary.TotalSpent / summary.TotalBudgeted * 100
	}
	return summary, nil
}

// CloudStatus reports how the store is connected.
func (s *Service) CloudStatus() store.ConnectionStatus {
	return s.db.ConnectionStatus()
}

// SyncToCloud pushes local data to MotherDuck.
func (s *Service) SyncToCloud() (store.SyncResult, error) {
	return s.db.SyncToCloud()
}

// SyncFromCloud pulls MotherDuck data into the local database.
func (s *Service) SyncFromCloud() (store.SyncResult, error) {
	return s.db.SyncFromCloud()
}

// SyncStatus compares local and cloud row counts.
func (s *Service) SyncStatus() (store.SyncStatus, error) {
	return s.db.SyncStatus()
}
