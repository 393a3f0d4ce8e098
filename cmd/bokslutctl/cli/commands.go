package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/bokslut/jobs"
)

// Opener builds the jobs helper for a Redis address.
type Opener func(redisAddr string) (*JobsCLI, error)

// NewRootCommand creates the bokslutctl command tree.
func NewRootCommand(open Opener) *cobra.Command {
	var redisAddr string

	rootCmd := &cobra.Command{
		Use:   "bokslutctl",
		Short: "Operate the bokslut job queue",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	defaultAddr := os.Getenv("REDIS_ADDR")
	if defaultAddr == "" {
		defaultAddr = "127.0.0.1:6379"
	}
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", defaultAddr, "redis address of the job queue")

	withJobs := func(run func(cmd *cobra.Command, c *JobsCLI) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			c, err := open(redisAddr)
			if err != nil {
				return fmt.Errorf("connecting to queue: %w", err)
			}
			defer c.Close()
			return run(cmd, c)
		}
	}

	rootCmd.AddCommand(
		newIntegrityCommand(withJobs),
		newInvoiceCommand(withJobs),
		newQueueCommand(withJobs),
	)
	return rootCmd
}

type jobsRunner func(run func(cmd *cobra.Command, c *JobsCLI) error) func(*cobra.Command, []string) error

func newIntegrityCommand(withJobs jobsRunner) *cobra.Command {
	var workspace string
	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "Enqueue a ledger integrity check",
		Args:  cobra.NoArgs,
		RunE: withJobs(func(cmd *cobra.Command, c *JobsCLI) error {
			var scope *uuid.UUID
			if workspace != "" {
				id, err := uuid.Parse(workspace)
				if err != nil {
					return fmt.Errorf("parsing --workspace: %w", err)
				}
				scope = &id
			}
			info, err := c.TriggerIntegrity(cmd.Context(), scope)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s\n", info.Type, info.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "limit the check to one workspace")
	return cmd
}

func newInvoiceCommand(withJobs jobsRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Enqueue invoice lifecycle postings",
	}

	var ids invoiceIDs
	var create bool
	sent := &cobra.Command{
		Use:   "sent",
		Short: "Post the revenue verification of a sent invoice",
		Args:  cobra.NoArgs,
		RunE: withJobs(func(cmd *cobra.Command, c *JobsCLI) error {
			ws, inv, actor, err := ids.parse()
			if err != nil {
				return err
			}
			info, err := c.PostInvoiceSent(cmd.Context(), jobs.InvoiceSentPayload{
				WorkspaceID: ws, InvoiceID: inv, ActorID: actor, CreateVerification: create,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s\n", info.Type, info.ID)
			return nil
		}),
	}
	ids.bind(sent)
	sent.Flags().BoolVar(&create, "create-verification", true, "post the verification")

	var paidIDs invoiceIDs
	var paidCreate bool
	var paidDate, paidAmount string
	paid := &cobra.Command{
		Use:   "paid",
		Short: "Post the payment verification of an invoice",
		Args:  cobra.NoArgs,
		RunE: withJobs(func(cmd *cobra.Command, c *JobsCLI) error {
			ws, inv, actor, err := paidIDs.parse()
			if err != nil {
				return err
			}
			payload := jobs.InvoicePaidPayload{WorkspaceID: ws, InvoiceID: inv, ActorID: actor, CreateVerification: paidCreate}
			if paidDate != "" {
				d, err := time.Parse(time.DateOnly, paidDate)
				if err != nil {
					return fmt.Errorf("parsing --date: %w", err)
				}
				payload.PaidDate = &d
			}
			if paidAmount != "" {
				amount, err := decimal.NewFromString(paidAmount)
				if err != nil {
					return fmt.Errorf("parsing --amount: %w", err)
				}
				payload.PaidAmount = &amount
			}
			info, err := c.PostInvoicePaid(cmd.Context(), payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s\n", info.Type, info.ID)
			return nil
		}),
	}
	paidIDs.bind(paid)
	paid.Flags().BoolVar(&paidCreate, "create-verification", true, "post the verification")
	paid.Flags().StringVar(&paidDate, "date", "", "payment date (YYYY-MM-DD), defaults to today")
	paid.Flags().StringVar(&paidAmount, "amount", "", "paid amount, defaults to the invoice total")

	cmd.AddCommand(sent, paid)
	return cmd
}

type invoiceIDs struct {
	workspace, invoice, actor string
}

func (ids *invoiceIDs) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ids.workspace, "workspace", "", "workspace id (required)")
	cmd.Flags().StringVar(&ids.invoice, "invoice", "", "invoice id (required)")
	cmd.Flags().StringVar(&ids.actor, "actor", "", "acting user id")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("invoice")
}

func (ids invoiceIDs) parse() (ws, inv, actor uuid.UUID, err error) {
	if ws, err = uuid.Parse(ids.workspace); err != nil {
		return ws, inv, actor, fmt.Errorf("parsing --workspace: %w", err)
	}
	if inv, err = uuid.Parse(ids.invoice); err != nil {
		return ws, inv, actor, fmt.Errorf("parsing --invoice: %w", err)
	}
	if ids.actor != "" {
		if actor, err = uuid.Parse(ids.actor); err != nil {
			return ws, inv, actor, fmt.Errorf("parsing --actor: %w", err)
		}
	}
	return ws, inv, actor, nil
}

func newQueueCommand(withJobs jobsRunner) *cobra.Command {
	var scheduled int
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show the state of the default queue",
		Args:  cobra.NoArgs,
		RunE: withJobs(func(cmd *cobra.Command, c *JobsCLI) error {
			stats, err := c.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stats.String())
			if scheduled <= 0 {
				return nil
			}
			tasks, err := c.ListScheduled(cmd.Context(), scheduled)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				fmt.Fprintf(cmd.OutOrStdout(), "scheduled %s id=%s at=%s\n", t.Type, t.ID, t.NextProcessAt.Format(time.RFC3339))
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&scheduled, "scheduled", 0, "also list this many scheduled tasks")
	return cmd
}
