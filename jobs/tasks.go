package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoiceSent posts the revenue verification of a sent invoice.
	TaskInvoiceSent = "invoice:sent"
	// TaskInvoicePaid posts the payment verification of an invoice.
	TaskInvoicePaid = "invoice:paid"
	// TaskLedgerIntegrity checks every open period for unbalanced entries
	// and numbering defects.
	TaskLedgerIntegrity = "ledger:integrity"
)

// InvoiceSentPayload identifies the invoice whose sent event is posted.
type InvoiceSentPayload struct {
	WorkspaceID        uuid.UUID `json:"workspace_id"`
	InvoiceID          uuid.UUID `json:"invoice_id"`
	ActorID            uuid.UUID `json:"actor_id"`
	CreateVerification bool      `json:"create_verification"`
}

// InvoicePaidPayload identifies the payment to post.
type InvoicePaidPayload struct {
	WorkspaceID        uuid.UUID        `json:"workspace_id"`
	InvoiceID          uuid.UUID        `json:"invoice_id"`
	ActorID            uuid.UUID        `json:"actor_id"`
	PaidDate           *time.Time       `json:"paid_date,omitempty"`
	PaidAmount         *decimal.Decimal `json:"paid_amount,omitempty"`
	CreateVerification bool             `json:"create_verification"`
}

// LedgerIntegrityPayload optionally narrows the check to one workspace.
type LedgerIntegrityPayload struct {
	WorkspaceID *uuid.UUID `json:"workspace_id,omitempty"`
}

// NewInvoiceSentTask constructs an invoice:sent task.
func NewInvoiceSentTask(payload InvoiceSentPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceSent, data), nil
}

// NewInvoicePaidTask constructs an invoice:paid task.
func NewInvoicePaidTask(payload InvoicePaidPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoicePaid, data), nil
}

// NewLedgerIntegrityTask constructs a ledger:integrity task.
func NewLedgerIntegrityTask(workspaceID *uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(LedgerIntegrityPayload{WorkspaceID: workspaceID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}
