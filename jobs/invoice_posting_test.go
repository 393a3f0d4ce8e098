package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bokslut/internal/invoicing"
	"github.com/odyssey-erp/bokslut/internal/shared"
)

type stubPoster struct {
	err      error
	sentFlag bool
	paid     invoicing.PaidInput
}

func (s *stubPoster) OnInvoiceSent(_ context.Context, _, invoiceID, _ uuid.UUID, create bool) (invoicing.Result, error) {
	s.sentFlag = create
	if s.err != nil {
		return invoicing.Result{}, s.err
	}
	return invoicing.Result{InvoiceID: invoiceID, Outcome: invoicing.OutcomePosted, Verification: 1}, nil
}

func (s *stubPoster) OnInvoicePaid(_ context.Context, _, invoiceID, _ uuid.UUID, in invoicing.PaidInput) (invoicing.Result, error) {
	s.paid = in
	if s.err != nil {
		return invoicing.Result{}, s.err
	}
	return invoicing.Result{InvoiceID: invoiceID, Outcome: invoicing.OutcomePosted, Verification: 2}, nil
}

func TestInvoicePostingJobSent(t *testing.T) {
	poster := &stubPoster{}
	job := NewInvoicePostingJob(poster, nil, nil)
	task, err := NewInvoiceSentTask(InvoiceSentPayload{WorkspaceID: uuid.New(), InvoiceID: uuid.New(), CreateVerification: true})
	require.NoError(t, err)

	require.NoError(t, job.HandleSent(context.Background(), task))
	require.True(t, poster.sentFlag)
}

func TestInvoicePostingJobPaidPassesPayload(t *testing.T) {
	poster := &stubPoster{}
	job := NewInvoicePostingJob(poster, nil, nil)
	paidAt := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("480.50")
	task, err := NewInvoicePaidTask(InvoicePaidPayload{
		WorkspaceID: uuid.New(), InvoiceID: uuid.New(),
		PaidDate: &paidAt, PaidAmount: &amount, CreateVerification: true,
	})
	require.NoError(t, err)

	require.NoError(t, job.HandlePaid(context.Background(), task))
	require.True(t, poster.paid.CreateVerification)
	require.True(t, poster.paid.PaidDate.Equal(paidAt))
	require.True(t, poster.paid.PaidAmount.Equal(amount))
}

func TestInvoicePostingJobRetryClassification(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		retry bool
	}{
		{"not found", invoicing.ErrInvoiceNotFound, false},
		{"no period", invoicing.ErrNoPeriodForDate, false},
		{"already has verification", invoicing.ErrAlreadyHasVerification, false},
		{"validation", shared.ErrValidation, false},
		{"precondition", shared.ErrPreconditionNotMet, false},
		{"conflict", shared.ErrConflict, true},
		{"transient", errors.New("connection reset"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := NewInvoicePostingJob(&stubPoster{err: tc.err}, nil, nil)
			task, err := NewInvoiceSentTask(InvoiceSentPayload{InvoiceID: uuid.New()})
			require.NoError(t, err)

			got := job.HandleSent(context.Background(), task)
			require.ErrorIs(t, got, tc.err)
			require.Equal(t, !tc.retry, errors.Is(got, asynq.SkipRetry))
		})
	}
}

func TestInvoicePostingJobBadPayloadSkipsRetry(t *testing.T) {
	job := NewInvoicePostingJob(&stubPoster{}, nil, nil)
	err := job.HandlePaid(context.Background(), asynq.NewTask(TaskInvoicePaid, []byte("nope")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
