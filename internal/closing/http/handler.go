package closinghttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bokslut/internal/closing"
	"github.com/odyssey-erp/bokslut/internal/platform/httpx"
	"github.com/odyssey-erp/bokslut/internal/shared"
)

// Service is the closing workflow surface used by the handler.
type Service interface {
	GetClosing(ctx context.Context, workspaceID, periodID uuid.UUID) (closing.View, error)
	Summary(ctx context.Context, workspaceID, periodID uuid.UUID) (closing.Summary, error)
	GetReconciliationStatus(ctx context.Context, workspaceID, periodID uuid.UUID) (closing.ReconciliationStatus, error)
	CalculateTax(ctx context.Context, workspaceID, periodID uuid.UUID) (closing.TaxCalculation, error)
	CompleteReconciliation(ctx context.Context, workspaceID, periodID, actorID uuid.UUID) (closing.AnnualClosing, error)
	SelectPackage(ctx context.Context, workspaceID, periodID, actorID uuid.UUID, pkg closing.Package) (closing.AnnualClosing, error)
	MarkClosingEntriesCreated(ctx context.Context, workspaceID, periodID, actorID uuid.UUID) (closing.AnnualClosing, error)
	SaveTaxCalculation(ctx context.Context, workspaceID, periodID, actorID uuid.UUID, profit, tax decimal.Decimal) (closing.AnnualClosing, error)
	Finalize(ctx context.Context, workspaceID, periodID, actorID uuid.UUID) (closing.AnnualClosing, error)
}

// Handler exposes the annual closing workflow.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers closing endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/periods/{periodID}/closing", func(r chi.Router) {
		r.Get("/", h.get)
		r.Get("/summary", h.summary)
		r.Get("/reconciliation", h.reconciliation)
		r.Post("/reconciliation", h.completeReconciliation)
		r.Post("/package", h.selectPackage)
		r.Post("/entries", h.markEntries)
		r.Get("/tax", h.calculateTax)
		r.Post("/tax", h.saveTax)
		r.Post("/finalize", h.finalize)
	})
}

type packageRequest struct {
	Package string `json:"package" validate:"required,oneof=k1 k2 k3"`
}

type taxRequest struct {
	Profit decimal.Decimal  `json:"profit"`
	Tax    *decimal.Decimal `json:"tax" validate:"required"`
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (shared.Principal, uuid.UUID, bool) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return shared.Principal{}, uuid.Nil, false
	}
	periodID, err := httpx.UUIDParam(chi.URLParam(r, "periodID"))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return shared.Principal{}, uuid.Nil, false
	}
	return p, periodID, true
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, periodID, ok := h.scope(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetClosing(r.Context(), p.WorkspaceID, periodID)
	h.respond(w, r, http.StatusOK, view, err)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	p, periodID, ok := h.scope(w, r)
	if !ok {
		return
	}
	sum, err := h.service.Summary(r.Context(), p.WorkspaceID, periodID)
	h.respond(w, r, http.StatusOK, sum, err)
}

func (h *Handler) reconciliation(w http.ResponseWriter, r *http.Request) {
	p, periodID, ok := h.scope(w, r)
	if !ok {
		return
	}
	res, err := h.service.GetReconciliationStatus(r.Context(), p.WorkspaceID, periodID)
	h.respond(w, r, http.StatusOK, res, err)
}

func (h *Handler) calculateTax(w http.ResponseWriter, r *http.Request) {
	p, periodID, ok := h.scope(w, r)
	if !ok {
		return
	}
	calc, err := h.service.CalculateTax(r.Context(), p.WorkspaceID, periodID)
	h.respond(w, r, http.StatusOK, calc, err)
}

func (h *Handler) completeReconciliation(w http.ResponseWriter, r *http.Request) {
	p, periodID, ok := h.scope(w, r)
	if !ok {
		return
	}
	c, err := h.service.CompleteReconciliation(r.Context(), p.WorkspaceID, periodID, p.ActorID)
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *Handler) selectPackage(w http.ResponseWriter, r *http.Request) {
	p, periodID, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req packageRequest
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	c, err := h.service.SelectPackage(r.Context(), p.WorkspaceID, periodID, p.ActorID, closing.Package(req.Package))
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *Handler) markEntries(w http.ResponseWriter, r *http.Request) {
	p, periodID, ok := h.scope(w, r)
	if !ok {
		return
	}
	c, err := h.service.MarkClosingEntriesCreated(r.Context(), p.WorkspaceID, periodID, p.ActorID)
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *Handler) saveTax(w http.ResponseWriter, r *http.Request) {
	p, periodID, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req taxRequest
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	c, err := h.service.SaveTaxCalculation(r.Context(), p.WorkspaceID, periodID, p.ActorID, req.Profit, *req.Tax)
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	p, periodID, ok := h.scope(w, r)
	if !ok {
		return
	}
	c, err := h.service.Finalize(r.Context(), p.WorkspaceID, periodID, p.ActorID)
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, body any, err error) {
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, status, body)
}
