// ABOUTME: Business rules layered over the store package
// ABOUTME: Validates inputs before they reach SQL and shapes results for callers

// Package service enforces the budget tracker's business rules on top of the
// storage layer: input validation, existence checks, and derived summaries.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/budgetd/envelopes/internal/store"
)

// ErrInvalid marks a validation failure on caller-supplied input. Wrap
// details around it so callers can map the whole class to a 400.
var ErrInvalid = errors.New("invalid input")

// DateLayout is the accepted wire format for transaction dates.
const DateLayout = "2006-01-02"

// Service applies budget rules over a store.DB.
type Service struct {
	db     *store.DB
	logger *slog.Logger
}

// New wires a Service over an open store.
func New(db *store.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger.With("component", "service")}
}

// EnvelopeInput carries the caller-supplied fields for creating an envelope.
type EnvelopeInput struct {
	Category        string  `json:"category"`
	BudgetedAmount  float64 `json:"budgeted_amount"`
	StartingBalance float64 `json:"starting_balance"`
	Description     string  `json:"description"`
}

func (in EnvelopeInput) validate() error {
	if strings.TrimSpace(in.Category) == "" {
		return fmt.Errorf("%w: category must not be empty", ErrInvalid)
	}
	if in.BudgetedAmount < 0 {
		return fmt.Errorf("%w: budgeted_amount must not be negative", ErrInvalid)
	}
	return nil
}

// CreateEnvelope validates and creates a new envelope.
func (s *Service) CreateEnvelope(in EnvelopeInput) (store.Envelope, error) {
	if err := in.validate(); err != nil {
		return store.Envelope{}, err
	}
	env, err := s.db.CreateEnvelope(strings.TrimSpace(in.Category), in.BudgetedAmount, in.StartingBalance, in.Description)
	if err != nil {
		return store.Envelope{}, err
	}
	s.logger.Info("envelope created", "id", env.ID, "category", env.Category)
	return env, nil
}

// EnvelopeWithBalance pairs an envelope with its derived current balance.
type EnvelopeWithBalance struct {
	store.Envelope
	CurrentBalance float64 `json:"current_balance"`
}

// GetEnvelope returns one envelope with its current balance.
func (s *Service) GetEnvelope(id int64) (EnvelopeWithBalance, error) {
	env, err := s.db.GetEnvelope(id)
	if err != nil {
		return EnvelopeWithBalance{}, err
	}
	balance, err := s.db.CurrentBalance(id)
	if err != nil {
		return EnvelopeWithBalance{}, err
	}
	return EnvelopeWithBalance{Envelope: env, CurrentBalance: balance}, nil
}

// ListEnvelopes returns every envelope with its current balance.
func (s *Service) ListEnvelopes() ([]EnvelopeWithBalance, error) {
	envs, err := s.db.ListEnvelopes()
	if err != nil {
		return nil, err
	}
	out := make([]EnvelopeWithBalance, 0, len(envs))
	for _, env := range envs {
		balance, err := s.db.CurrentBalance(env.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, EnvelopeWithBalance{Envelope: env, CurrentBalance: balance})
	}
	return out, nil
}

// EnvelopePatch carries optional envelope fields for an update. Nil fields
// are left untouched.
type EnvelopePatch struct {
	Category        *string  `json:"category"`
	BudgetedAmount  *float64 `json:"budgeted_amount"`
	StartingBalance *float64 `json:"starting_balance"`
	Description     *string  `json:"description"`
}

// UpdateEnvelope validates and applies a sparse update, returning the
// refreshed envelope.
func (s *Service) UpdateEnvelope(id int64, patch EnvelopePatch) (EnvelopeWithBalance, error) {
	if patch.Category != nil && strings.TrimSpace(*patch.Category) == "" {
		return EnvelopeWithBalance{}, fmt.Errorf("%w: category must not be empty", ErrInvalid)
	}
	if patch.BudgetedAmount != nil && *patch.BudgetedAmount < 0 {
		return EnvelopeWithBalance{}, fmt.Errorf("%w: budgeted_amount must not be negative", ErrInvalid)
	}
	if patch.Category != nil {
		trimmed := strings.TrimSpace(*patch.Category)
		patch.Category = &trimmed
	}

	upd := store.EnvelopeUpdate{
		Category:        patch.Category,
		BudgetedAmount:  patch.BudgetedAmount,
		StartingBalance: patch.StartingBalance,
		Description:     patch.Description,
	}
	changed, err := s.db.UpdateEnvelope(id, upd)
	if err != nil {
		return EnvelopeWithBalance{}, err
	}
	if !changed {
		return EnvelopeWithBalance{}, fmt.Errorf("%w: no fields to update", ErrInvalid)
	}
	return s.GetEnvelope(id)
}

// DeleteEnvelope removes an envelope and its transactions. Missing envelopes
// return ErrNotFound so callers can distinguish a no-op delete.
func (s *Service) DeleteEnvelope(id int64) error {
	existed, err := s.db.DeleteEnvelope(id)
	if err != nil {
		return err
	}
	if !existed {
		return fmt.Errorf("envelope %d: %w", id, store.ErrNotFound)
	}
	s.logger.Info("envelope deleted", "id", id)
	return nil
}

// TransactionInput carries the caller-supplied fields for creating a
// transaction. Date is a YYYY-MM-DD string.
type TransactionInput struct {
	EnvelopeID  int64   `json:"envelope_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Type        string  `json:"type"`
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalid)
	}
	return d, nil
}

func validateType(txType string) error {
	if txType != store.TypeIncome && txType != store.TypeExpense {
		return fmt.Errorf("%w: type must be %q or %q", ErrInvalid, store.TypeIncome, store.TypeExpense)
	}
	return nil
}

// CreateTransaction validates and records a new transaction.
func (s *Service) CreateTransaction(in TransactionInput) (store.Transaction, error) {
	if in.Amount <= 0 {
		return store.Transaction{}, fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}
	if err := validateType(in.Type); err != nil {
		return store.Transaction{}, err
	}
	date, err := parseDate(in.Date)
	if err != nil {
		return store.Transaction{}, err
	}
	// Existence pre-check gives a clean error before the insert trips the
	// foreign key.
	if _, err := s.db.GetEnvelope(in.EnvelopeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Transaction{}, fmt.Errorf("envelope %d: %w", in.EnvelopeID, store.ErrUnknownEnvelope)
		}
		return store.Transaction{}, err
	}

	txn, err := s.db.CreateTransaction(in.EnvelopeID, in.Amount, in.Description, date, in.Type)
	if err != nil {
		return store.Transaction{}, err
	}
	s.logger.Info("transaction created", "id", txn.ID, "envelope_id", txn.EnvelopeID, "type", txn.Type)
	return txn, nil
}

// GetTransaction returns one transaction.
func (s *Service) GetTransaction(id int64) (store.Transaction, error) {
	return s.db.GetTransaction(id)
}

// ListTransactions returns transactions newest first, optionally filtered to
// one envelope when envelopeID is non-zero.
func (s *Service) ListTransactions(envelopeID int64) ([]store.Transaction, error) {
	if envelopeID != 0 {
		if _, err := s.db.GetEnvelope(envelopeID); err != nil {
			return nil, err
		}
		return s.db.TransactionsForEnvelope(envelopeID)
	}
	return s.db.ListTransactions()
}

// TransactionPatch carries optional transaction fields for an update. Nil
// fields are left untouched.
type TransactionPatch struct {
	EnvelopeID  *int64   `json:"envelope_id"`
	Amount      *float64 `json:"amount"`
	Description *string  `json:"description"`
	Date        *string  `json:"date"`
	Type        *string  `json:"type"`
}

// UpdateTransaction validates and applies a sparse update, returning the
// refreshed transaction.
func (s *Service) UpdateTransaction(id int64, patch TransactionPatch) (store.Transaction, error) {
	upd := store.TransactionUpdate{
		EnvelopeID:  patch.EnvelopeID,
		Amount:      patch.Amount,
		Description: patch.Description,
	}
	if patch.Amount != nil && *patch.Amount <= 0 {
		return store.Transaction{}, fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}
	if patch.Type != nil {
		if err := validateType(*patch.Type); err != nil {
			return store.Transaction{}, err
		}
		upd.Type = patch.Type
	}
	if patch.Date != nil {
		date, err := parseDate(*patch.Date)
		if err != nil {
			return store.Transaction{}, err
		}
		upd.Date = &date
	}
	if patch.EnvelopeID != nil {
		if _, err := s.db.GetEnvelope(*patch.EnvelopeID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.Transaction{}, fmt.Errorf("envelope %d: %w", *patch.EnvelopeID, store.ErrUnknownEnvelope)
			}
			return store.Transaction{}, err
		}
	}

	changed, err := s.db.UpdateTransaction(id, upd)
	if err != nil {
		return store.Transaction{}, err
	}
	if !changed {
		return store.Transaction{}, fmt.Errorf("%w: no fields to update", ErrInvalid)
	}
	return s.db.GetTransaction(id)
}

// DeleteTransaction removes a transaction, reporting ErrNotFound when it
// never existed.
func (s *Service) DeleteTransaction(id int64) error {
	existed, err := s.db.DeleteTransaction(id)
	if err != nil {
		return err
	}
	if !existed {
		return fmt.Errorf("transaction %d: %w", id, store.ErrNotFound)
	}
	s.logger.Info("transaction deleted", "id", id)
	return nil
}
