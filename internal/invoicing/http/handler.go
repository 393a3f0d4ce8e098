package invoicinghttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bokslut/internal/invoicing"
	"github.com/odyssey-erp/bokslut/internal/platform/httpx"
)

// Service is the posting engine surface used by the handler.
type Service interface {
	OnInvoiceSent(ctx context.Context, workspaceID, invoiceID, actorID uuid.UUID, createVerification bool) (invoicing.Result, error)
	CreateSentVerification(ctx context.Context, workspaceID, invoiceID, actorID uuid.UUID) (invoicing.Result, error)
	OnInvoicePaid(ctx context.Context, workspaceID, invoiceID, actorID uuid.UUID, in invoicing.PaidInput) (invoicing.Result, error)
	CreatePaidVerification(ctx context.Context, workspaceID, invoiceID, actorID uuid.UUID, in invoicing.PaidInput) (invoicing.Result, error)
}

// Handler exposes invoice lifecycle posting over JSON.
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

// MountRoutes registers invoice endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices/{invoiceID}", func(r chi.Router) {
		r.Post("/sent", h.sent)
		r.Post("/paid", h.paid)
		r.Post("/verifications/sent", h.sentVerification)
		r.Post("/verifications/paid", h.paidVerification)
	})
}

type sentRequest struct {
	CreateVerification *bool `json:"create_verification"`
}

type paidRequest struct {
	PaidDate           string           `json:"paid_date" validate:"omitempty,datetime=2006-01-02"`
	PaidAmount         *decimal.Decimal `json:"paid_amount"`
	CreateVerification *bool            `json:"create_verification"`
}

func (req paidRequest) input(defaultCreate bool) (invoicing.PaidInput, error) {
	in := invoicing.PaidInput{PaidAmount: req.PaidAmount, CreateVerification: defaultCreate}
	if req.CreateVerification != nil {
		in.CreateVerification = *req.CreateVerification
	}
	if req.PaidDate != "" {
		d, err := time.Parse(time.DateOnly, req.PaidDate)
		if err != nil {
			return invoicing.PaidInput{}, httpx.ErrBadRequest
		}
		in.PaidDate = &d
	}
	return in, nil
}

type target struct {
	workspaceID uuid.UUID
	actorID     uuid.UUID
	invoiceID   uuid.UUID
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (target, bool) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return target{}, false
	}
	id, err := httpx.UUIDParam(chi.URLParam(r, "invoiceID"))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return target{}, false
	}
	return target{workspaceID: p.WorkspaceID, actorID: p.ActorID, invoiceID: id}, true
}

func (h *Handler) sent(w http.ResponseWriter, r *http.Request) {
	t, ok := h.target(w, r)
	if !ok {
		return
	}
	var req sentRequest
	if r.ContentLength != 0 && !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	create := true
	if req.CreateVerification != nil {
		create = *req.CreateVerification
	}
	res, err := h.service.OnInvoiceSent(r.Context(), t.workspaceID, t.invoiceID, t.actorID, create)
	h.respond(w, r, res, err)
}

func (h *Handler) paid(w http.ResponseWriter, r *http.Request) {
	t, ok := h.target(w, r)
	if !ok {
		return
	}
	var req paidRequest
	if r.ContentLength != 0 && !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	in, err := req.input(true)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	res, err := h.service.OnInvoicePaid(r.Context(), t.workspaceID, t.invoiceID, t.actorID, in)
	h.respond(w, r, res, err)
}

func (h *Handler) sentVerification(w http.ResponseWriter, r *http.Request) {
	t, ok := h.target(w, r)
	if !ok {
		return
	}
	res, err := h.service.CreateSentVerification(r.Context(), t.workspaceID, t.invoiceID, t.actorID)
	h.respond(w, r, res, err)
}

func (h *Handler) paidVerification(w http.ResponseWriter, r *http.Request) {
	t, ok := h.target(w, r)
	if !ok {
		return
	}
	var req paidRequest
	if r.ContentLength != 0 && !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	in, err := req.input(true)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	res, err := h.service.CreatePaidVerification(r.Context(), t.workspaceID, t.invoiceID, t.actorID, in)
	h.respond(w, r, res, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, res invoicing.Result, err error) {
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	status := http.StatusOK
	if res.Outcome == invoicing.OutcomePosted {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, res)
}
