package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bokslut/internal/closing"
	"github.com/odyssey-erp/bokslut/internal/invoicing"
	"github.com/odyssey-erp/bokslut/internal/ledger"
	"github.com/odyssey-erp/bokslut/internal/observability"
	"github.com/odyssey-erp/bokslut/internal/shared"
)

// Services bundles the domain services shared by the API and the worker.
type Services struct {
	Ledger    *ledger.Service
	Invoicing *invoicing.Service
	Closing   *closing.Service
}

// NewServices wires the domain services against one PostgreSQL pool.
func NewServices(pool *pgxpool.Pool, cfg *Config, metrics *observability.Metrics, logger *slog.Logger) Services {
	audit := shared.NewAuditLogger(pool)
	ledgerService := ledger.NewService(ledger.NewRepository(pool), audit, metrics, logger.With(slog.String("module", "ledger")))
	invoicingService := invoicing.NewService(
		invoicing.NewRepository(pool),
		ledgerService,
		cfg.PostingAccounts,
		metrics,
		logger.With(slog.String("module", "invoicing")),
	)
	closingService := closing.NewService(
		closing.NewRepository(pool),
		ledgerService,
		audit,
		metrics,
		cfg.Closing(),
		logger.With(slog.String("module", "closing")),
	)
	return Services{Ledger: ledgerService, Invoicing: invoicingService, Closing: closingService}
}
