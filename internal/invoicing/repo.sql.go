package invoicing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads invoices owned by the invoicing subsystem.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetInvoice loads an invoice with its lines.
func (r *Repository) GetInvoice(ctx context.Context, workspaceID, invoiceID uuid.UUID) (Invoice, error) {
	var inv Invoice
	err := r.pool.QueryRow(ctx, `SELECT id, workspace_id, invoice_number, customer_name, invoice_date, due_date, currency, total,
paid_at, paid_amount, sent_journal_entry_id, paid_journal_entry_id
FROM invoices WHERE id=$1 AND workspace_id=$2`, invoiceID, workspaceID).
		Scan(&inv.ID, &inv.WorkspaceID, &inv.InvoiceNumber, &inv.CustomerName, &inv.InvoiceDate, &inv.DueDate, &inv.Currency, &inv.Total,
			&inv.PaidAt, &inv.PaidAmount, &inv.SentJournalEntryID, &inv.PaidJournalEntryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT line_type, COALESCE(product_type, ''), description, amount, vat_rate
FROM invoice_lines WHERE invoice_id=$1 ORDER BY sort_order, id`, inv.ID)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line InvoiceLine
		if err := rows.Scan(&line.LineType, &line.ProductType, &line.Description, &line.Amount, &line.VATRate); err != nil {
			return Invoice{}, err
		}
		inv.Lines = append(inv.Lines, line)
	}
	return inv, rows.Err()
}

// LinkSentEntry records the sent verification if none is recorded yet.
func (r *Repository) LinkSentEntry(ctx context.Context, workspaceID, invoiceID, entryID uuid.UUID) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `UPDATE invoices SET sent_journal_entry_id=$3, updated_at=NOW()
WHERE id=$1 AND workspace_id=$2 AND sent_journal_entry_id IS NULL`, invoiceID, workspaceID, entryID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// LinkPaidEntry records the payment verification if none is recorded yet.
func (r *Repository) LinkPaidEntry(ctx context.Context, workspaceID, invoiceID, entryID uuid.UUID, paidAt time.Time, amount decimal.Decimal) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `UPDATE invoices SET paid_journal_entry_id=$3, paid_at=COALESCE(paid_at, $4), paid_amount=COALESCE(paid_amount, $5), updated_at=NOW()
WHERE id=$1 AND workspace_id=$2 AND paid_journal_entry_id IS NULL`, invoiceID, workspaceID, entryID, paidAt, amount)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}
