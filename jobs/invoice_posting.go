package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/bokslut/internal/jobs"
	"github.com/odyssey-erp/bokslut/internal/invoicing"
	"github.com/odyssey-erp/bokslut/internal/shared"
)

// InvoicePoster is the posting engine surface the job drives.
type InvoicePoster interface {
	OnInvoiceSent(ctx context.Context, workspaceID, invoiceID, actorID uuid.UUID, createVerification bool) (invoicing.Result, error)
	OnInvoicePaid(ctx context.Context, workspaceID, invoiceID, actorID uuid.UUID, in invoicing.PaidInput) (invoicing.Result, error)
}

// InvoicePostingJob turns queued invoice events into journal entries.
type InvoicePostingJob struct {
	Poster  InvoicePoster
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewInvoicePostingJob initialises the handler.
func NewInvoicePostingJob(poster InvoicePoster, logger *slog.Logger, metrics *jobmetrics.Metrics) *InvoicePostingJob {
	return &InvoicePostingJob{Poster: poster, Logger: logger, Metrics: metrics}
}

// HandleSent processes invoice:sent tasks.
func (j *InvoicePostingJob) HandleSent(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Poster == nil {
		return errors.New("invoice posting: handler not configured")
	}
	var payload InvoiceSentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invoice posting: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskInvoiceSent)
	defer func() { err = tracker.End(err) }()

	res, err := j.Poster.OnInvoiceSent(ctx, payload.WorkspaceID, payload.InvoiceID, payload.ActorID, payload.CreateVerification)
	return j.finish(TaskInvoiceSent, payload.InvoiceID, res, err)
}

// HandlePaid processes invoice:paid tasks.
func (j *InvoicePostingJob) HandlePaid(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Poster == nil {
		return errors.New("invoice posting: handler not configured")
	}
	var payload InvoicePaidPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invoice posting: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskInvoicePaid)
	defer func() { err = tracker.End(err) }()

	res, err := j.Poster.OnInvoicePaid(ctx, payload.WorkspaceID, payload.InvoiceID, payload.ActorID, invoicing.PaidInput{
		PaidDate:           payload.PaidDate,
		PaidAmount:         payload.PaidAmount,
		CreateVerification: payload.CreateVerification,
	})
	return j.finish(TaskInvoicePaid, payload.InvoiceID, res, err)
}

func (j *InvoicePostingJob) finish(task string, invoiceID uuid.UUID, res invoicing.Result, err error) error {
	logger := j.logger().With(slog.String("task", task), slog.String("invoice_id", invoiceID.String()))
	if err != nil {
		if permanent(err) {
			logger.Warn("invoice posting rejected", slog.Any("error", err))
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		logger.Error("invoice posting failed", slog.Any("error", err))
		return err
	}
	logger.Info("invoice posting handled",
		slog.String("outcome", string(res.Outcome)),
		slog.Int("verification_number", res.Verification),
	)
	return nil
}

func (j *InvoicePostingJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

// permanent reports errors a retry cannot fix. Conflicts are retried since
// the competing writer may have been rolled back.
func permanent(err error) bool {
	return errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, shared.ErrValidation) ||
		errors.Is(err, shared.ErrInvalidTransition) ||
		errors.Is(err, shared.ErrPreconditionNotMet) ||
		errors.Is(err, invoicing.ErrAlreadyHasVerification)
}
