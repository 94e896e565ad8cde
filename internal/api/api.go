// ABOUTME: REST API for the budget tracker over net/http
// ABOUTME: Maps service and store errors onto JSON responses and status codes

// Package api exposes the budget tracker over a JSON REST API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/budgetd/envelopes/internal/service"
	"github.com/budgetd/envelopes/internal/store"
)

// Server handles the REST routes over a budget service.
type Server struct {
	svc    *service.Service
	logger *slog.Logger
}

// New creates a new API server.
func New(svc *service.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, logger: logger.With("component", "api")}
}

// RegisterRoutes attaches all API routes to the mux. Auth middleware, when
// enabled, wraps the mux upstream; health stays unauthenticated there.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/envelopes", s.handleListEnvelopes)
	mux.HandleFunc("POST /api/envelopes", s.handleCreateEnvelope)
	mux.HandleFunc("GET /api/envelopes/{id}", s.handleGetEnvelope)
	mux.HandleFunc("PUT /api/envelopes/{id}", s.handleUpdateEnvelope)
	mux.HandleFunc("DELETE /api/envelopes/{id}", s.handleDeleteEnvelope)
	mux.HandleFunc("GET /api/envelopes/{id}/balance", s.handleEnvelopeBalance)
	mux.HandleFunc("GET /api/envelopes/{id}/transactions", s.handleEnvelopeTransactions)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/summary", s.handleSummary)

	mux.HandleFunc("GET /api/cloud/status", s.handleCloudStatus)
	mux.HandleFunc("GET /api/cloud/sync/status", s.handleSyncStatus)
	mux.HandleFunc("POST /api/cloud/sync/to", s.handleSyncToCloud)
	mux.HandleFunc("POST /api/cloud/sync/from", s.handleSyncFromCloud)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the error taxonomy onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalid), errors.Is(err, store.ErrUnknownEnvelope):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateCategory):
		status = http.StatusConflict
	case errors.Is(err, store.ErrCloudUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, store.ErrNotApplicable):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(service.ErrInvalid, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, errors.Join(service.ErrInvalid, errors.New("id must be an integer"))
	}
	return id, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListEnvelopes(w http.ResponseWriter, r *http.Request) {
	envelopes, err := s.svc.ListEnvelopes()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if envelopes == nil {
		envelopes = []service.EnvelopeWithBalance{}
	}
	writeJSON(w, http.StatusOK, envelopes)
}

func (s *Server) handleCreateEnvelope(w http.ResponseWriter, r *http.Request) {
	var in service.EnvelopeInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	env, err := s.svc.CreateEnvelope(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, env)
}

func (s *Server) handleGetEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	env, err := s.svc.GetEnvelope(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleUpdateEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var patch service.EnvelopePatch
	if err := decodeBody(r, &patch); err != nil {
		s.writeError(w, err)
		return
	}
	env, err := s.svc.UpdateEnvelope(id, patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleDeleteEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.DeleteEnvelope(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEnvelopeBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	env, err := s.svc.GetEnvelope(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"envelope_id":     env.ID,
		"category":        env.Category,
		"current_balance": env.CurrentBalance,
	})
}

func (s *Server) handleEnvelopeTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	txns, err := s.svc.ListTransactions(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewTransactionViews(txns))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	var envelopeID int64
	if raw := r.URL.Query().Get("envelope_id"); raw != "" {
		var err error
		envelopeID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, errors.Join(service.ErrInvalid, errors.New("envelope_id must be an integer")))
			return
		}
	}
	txns, err := s.svc.ListTransactions(envelopeID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewTransactionViews(txns))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in service.TransactionInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	txn, err := s.svc.CreateTransaction(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, service.NewTransactionView(txn))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	txn, err := s.svc.GetTransaction(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewTransactionView(txn))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var patch service.TransactionPatch
	if err := decodeBody(r, &patch); err != nil {
		s.writeError(w, err)
		return
	}
	txn, err := s.svc.UpdateTransaction(id, patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewTransactionView(txn))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.DeleteTransaction(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.BudgetSummary()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if summary.Envelopes == nil {
		summary.Envelopes = []service.EnvelopeWithBalance{}
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCloudStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.CloudStatus())
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.SyncStatus()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSyncToCloud(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.SyncToCloud()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSyncFromCloud(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.SyncFromCloud()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
