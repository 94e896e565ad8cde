// ABOUTME: Budget tool definitions and handlers for the MCP server
// ABOUTME: Each tool wraps one service operation with a JSON schema

package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/budgetd/envelopes/internal/service"
)

// toolHandler executes one tool call. Returned errors surface to the client
// as isError tool results.
type toolHandler func(args json.RawMessage) (any, error)

type tool struct {
	info    MCPToolInfo
	handler toolHandler
}

func schema(s string) json.RawMessage { return json.RawMessage(s) }

type idArgs struct {
	ID int64 `json:"id"`
}

type envelopeIDArgs struct {
	EnvelopeID int64 `json:"envelope_id"`
}

func decodeArgs(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// buildTools assembles the budget tool set.
func (s *Server) buildTools() []tool {
	return []tool{
		{
			info: MCPToolInfo{
				Name:        "create_envelope",
				Description: "Create a new budget envelope with a category name, budgeted amount, and starting balance",
				InputSchema: schema(`{
					"type": "object",
					"properties": {
						"category": {"type": "string", "description": "Unique category name"},
						"budgeted_amount": {"type": "number", "description": "Planned amount, must not be negative"},
						"starting_balance": {"type": "number", "description": "Initial balance"},
						"description": {"type": "string"}
					},
					"required": ["category"]
				}`),
			},
			handler: func(args json.RawMessage) (any, error) {
				var in service.EnvelopeInput
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				return s.svc.CreateEnvelope(in)
			},
		},
		{
			info: MCPToolInfo{
				Name:        "list_envelopes",
				Description: "List all budget envelopes with their current balances",
				InputSchema: schema(`{"type": "object", "properties": {}}`),
			},
			handler: func(json.RawMessage) (any, error) {
				envelopes, err := s.svc.ListEnvelopes()
				if err != nil {
					return nil, err
				}
				if envelopes == nil {
					envelopes = []service.EnvelopeWithBalance{}
				}
				return envelopes, nil
			},
		},
		{
			info: MCPToolInfo{
				Name:        "get_envelope",
				Description: "Get one envelope by id, including its current balance",
				InputSchema: schema(`{
					"type": "object",
					"properties": {"id": {"type": "integer"}},
					"required": ["id"]
				}`),
			},
			handler: func(args json.RawMessage) (any, error) {
				var in idArgs
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				return s.svc.GetEnvelope(in.ID)
			},
		},
		{
			info: MCPToolInfo{
				Name:        "update_envelope",
				Description: "Update fields of an envelope; omitted fields are left unchanged",
				InputSchema: schema(`{
					"type": "object",
					"properties": {
						"id": {"type": "integer"},
						"category": {"type": "string"},
						"budgeted_amount": {"type": "number"},
						"starting_balance": {"type": "number"},
						"description": {"type": "string"}
					},
					"required": ["id"]
				}`),
			},
			handler: func(args json.RawMessage) (any, error) {
				var in struct {
					ID int64 `json:"id"`
					service.EnvelopePatch
				}
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				return s.svc.UpdateEnvelope(in.ID, in.EnvelopePatch)
			},
		},
		{
			info: MCPToolInfo{
				Name:        "delete_envelope",
				Description: "Delete an envelope and all of its transactions",
				InputSchema: schema(`{
					"type": "object",
					"properties": {"id": {"type": "integer"}},
					"required": ["id"]
				}`),
			},
			handler: func(args json.RawMessage) (any, error) {
				var in idArgs
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				if err := s.svc.DeleteEnvelope(in.ID); err != nil {
					return nil, err
				}
				return map[string]any{"deleted": true, "id": in.ID}, nil
			},
		},
		{
			info: MCPToolInfo{
				Name:        "get_envelope_balance",
				Description: "Get the current balance of one envelope",
				InputSchema: schema(`{
					"type": "object",
					"properties": {"id": {"type": "integer"}},
					"required": ["id"]
				}`),
			},
			handler: func(args json.RawMessage) (any, error) {
				var in idArgs
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				env, err := s.svc.GetEnvelope(in.ID)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"envelope_id":     env.ID,
					"category":        env.Category,
					"current_balance": env.CurrentBalance,
				}, nil
			},
		},
		{
			info: MCPToolInfo{
				Name:        "create_transaction",
				Description: "Record an income or expense transaction against an envelope",
				InputSchema: schema(`{
					"type": "object",
					"properties": {
						"envelope_id": {"type": "integer"},
						"amount": {"type": "number", "description": "Positive amount"},
						"description": {"type": "string"},
						"date": {"type": "string", "description": "YYYY-MM-DD"},
						"type": {"type": "string", "enum": ["income", "expense"]}
					},
					"required": ["envelope_id", "amount", "date", "type"]
				}`),
			},
			handler: func(args json.RawMessage) (any, error) {
				var in service.TransactionInput
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				txn, err := s.svc.CreateTransaction(in)
				if err != nil {
					return nil, err
				}
				return service.NewTransactionView(txn), nil
			},
		},
		{
			info: MCPToolInfo{
				Name:        "list_transactions",
				Description: "List transactions newest first, optionally filtered to one envelope",
				InputSchema: schema(`{
					"type": "object",
					"properties": {"envelope_id": {"type": "integer", "description": "Optional envelope filter"}}
				}`),
			},
			handler: func(args json.RawMessage) (any, error) {
				var in envelopeIDArgs
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				txns, err := s.svc.ListTransactions(in.EnvelopeID)
				if err != nil {
					return nil, err
				}
				return service.NewTransactionViews(txns), nil
			},
		},
		{
			info: MCPToolInfo{
				Name:        "get_transaction",
				Description: "Get one transaction by id",
				InputSchema: schema(`{
					"type": "object",
					"properties": {"id": {"type": "integer"}},
					"required": ["id"]
				}`),
			},
			handler: func(args json.RawMessage) (any, error) {
				var in idArgs
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				txn, err := s.svc.GetTransaction(in.ID)
				if err != nil {
					return nil, err
				}
				return service.NewTransactionView(txn), nil
			},
		},
		{
			info: MCPToolInfo{
				Name:        "update_transaction",
				Description: "Update fields of a transaction; omitted fields are left unchanged",
				InputSchema: schema(`{
					"type": "object",
					"properties": {
						"id": {"type": "integer"},
						"envelope_id": {"type": "integer"},
						"amount": {"type": "number"},
						"description": {"type": "string"},
						"date": {"type": "string", "description": "YYYY-MM-DD"},
						"type": {"type": "string", "enum": ["income", "expense"]}
					},
					"required": ["id"]
				}`),
			},
			handler: func(args json.RawMessage) (any, error) {
				var in struct {
					ID int64 `json:"id"`
					service.TransactionPatch
				}
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				txn, err := s.svc.UpdateTransaction(in.ID, in.TransactionPatch)
				if err != nil {
					return nil, err
				}
				return service.NewTransactionView(txn), nil
			},
		},
		{
			info: MCPToolInfo{
				Name:        "delete_transaction",
				Description: "Delete one transaction by id",
				InputSchema: schema(`{
					"type": "object",
					"properties": {"id": {"type": "integer"}},
					"required": ["id"]
				}`),
			},
			handler: func(args json.RawMessage) (any, error) {
				var in idArgs
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				if err := s.svc.DeleteTransaction(in.ID); err != nil {
					return nil, err
				}
				return map[string]any{"deleted": true, "id": in.ID}, nil
			},
		},
		{
			info: MCPToolInfo{
				Name:        "get_budget_summary",
				Description: "Get totals and per-envelope balances across the whole budget",
				InputSchema: schema(`{"type": "object", "properties": {}}`),
			},
			handler: func(json.RawMessage) (any, error) {
				return s.svc.BudgetSummary()
			},
		},
		{
			info: MCPToolInfo{
				Name:        "get_cloud_status",
				Description: "Report the database connection mode and MotherDuck availability",
				InputSchema: schema(`{"type": "object", "properties": {}}`),
			},
			handler: func(json.RawMessage) (any, error) {
				return s.svc.CloudStatus(), nil
			},
		},
		{
			info: MCPToolInfo{
				Name:        "sync_to_cloud",
				Description: "Push all local envelopes and transactions to MotherDuck",
				InputSchema: schema(`{"type": "object", "properties": {}}`),
			},
			handler: func(json.RawMessage) (any, error) {
				return s.svc.SyncToCloud()
			},
		},
		{
			info: MCPToolInfo{
				Name:        "sync_from_cloud",
				Description: "Pull all MotherDuck envelopes and transactions into the local database",
				InputSchema: schema(`{"type": "object", "properties": {}}`),
			},
			handler: func(json.RawMessage) (any, error) {
				return s.svc.SyncFromCloud()
			},
		},
	}
}
