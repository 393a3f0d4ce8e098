package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/bokslut/jobs"
)

// Enqueuer is the queue client surface the CLI needs.
type Enqueuer interface {
	EnqueueInvoiceSent(ctx context.Context, payload jobs.InvoiceSentPayload) (*asynq.TaskInfo, error)
	EnqueueInvoicePaid(ctx context.Context, payload jobs.InvoicePaidPayload) (*asynq.TaskInfo, error)
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// QueueInspector reports queue state.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	Close() error
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    Enqueuer
	inspector QueueInspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client, err := jobs.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &JobsCLI{client: client, inspector: asynq.NewInspector(opts)}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// TriggerIntegrity enqueues a ledger integrity check, optionally scoped to one
// workspace.
func (c *JobsCLI) TriggerIntegrity(ctx context.Context, workspaceID *uuid.UUID) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	task, err := jobs.NewLedgerIntegrityTask(workspaceID)
	if err != nil {
		return nil, err
	}
	return c.client.Enqueue(ctx, task, asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(3))
}

// PostInvoiceSent enqueues the sent posting of one invoice.
func (c *JobsCLI) PostInvoiceSent(ctx context.Context, payload jobs.InvoiceSentPayload) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	if err := requireIDs(payload.WorkspaceID, payload.InvoiceID); err != nil {
		return nil, err
	}
	return c.client.EnqueueInvoiceSent(ctx, payload)
}

// PostInvoicePaid enqueues the payment posting of one invoice.
func (c *JobsCLI) PostInvoicePaid(ctx context.Context, payload jobs.InvoicePaidPayload) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	if err := requireIDs(payload.WorkspaceID, payload.InvoiceID); err != nil {
		return nil, err
	}
	return c.client.EnqueueInvoicePaid(ctx, payload)
}

func requireIDs(workspaceID, invoiceID uuid.UUID) error {
	if workspaceID == uuid.Nil {
		return errors.New("jobs cli: workspace id is required")
	}
	if invoiceID == uuid.Nil {
		return errors.New("jobs cli: invoice id is required")
	}
	return nil
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// String renders the stats on one line.
func (s QueueStats) String() string {
	return fmt.Sprintf("queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d",
		s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Archived)
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos for observability.
func (c *JobsCLI) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}
