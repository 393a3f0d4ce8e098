package ledgerhttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bokslut/internal/ledger"
	"github.com/odyssey-erp/bokslut/internal/platform/httpx"
	"github.com/odyssey-erp/bokslut/internal/shared"
)

// Service is the ledger surface used by the handler.
type Service interface {
	PostEntry(ctx context.Context, in ledger.PostingInput) (ledger.JournalEntry, error)
	ListEntries(ctx context.Context, workspaceID, periodID uuid.UUID, filter ledger.ListFilter) ([]ledger.JournalEntry, int, error)
	GetEntry(ctx context.Context, workspaceID, entryID uuid.UUID) (ledger.JournalEntry, error)
	TrialBalance(ctx context.Context, workspaceID, periodID uuid.UUID, table ledger.RangeTable) (ledger.TrialBalance, error)
}

// Handler exposes manual verifications and ledger reads.
type Handler struct {
	service Service
	ranges  ledger.RangeTable
	logger  *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(service Service, ranges ledger.RangeTable, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, ranges: ranges, logger: logger}
}

// MountRoutes registers ledger endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/periods/{periodID}/entries", h.list)
	r.Post("/periods/{periodID}/entries", h.post)
	r.Get("/periods/{periodID}/trial-balance", h.trialBalance)
	r.Get("/entries/{entryID}", h.get)
}

type lineRequest struct {
	AccountNumber int             `json:"account_number" validate:"required,min=1,max=9999"`
	AccountName   string          `json:"account_name" validate:"max=200"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Description   string          `json:"description" validate:"max=500"`
}

type entryRequest struct {
	EntryDate   string        `json:"entry_date" validate:"required,datetime=2006-01-02"`
	Description string        `json:"description" validate:"required,max=500"`
	EntryType   string        `json:"entry_type" validate:"required,oneof=receipt income supplier_invoice invoice payment other"`
	Lines       []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

type listResponse struct {
	Entries    []ledger.JournalEntry `json:"entries"`
	Pagination shared.Pagination     `json:"pagination"`
}

func (h *Handler) periodScope(w http.ResponseWriter, r *http.Request) (shared.Principal, uuid.UUID, bool) {
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

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	p, periodID, ok := h.periodScope(w, r)
	if !ok {
		return
	}
	var req entryRequest
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	date, err := time.Parse(time.DateOnly, req.EntryDate)
	if err != nil {
		httpx.RespondError(w, r, h.logger, httpx.ErrBadRequest)
		return
	}
	in := ledger.PostingInput{
		WorkspaceID: p.WorkspaceID,
		PeriodID:    periodID,
		EntryDate:   date,
		Description: req.Description,
		EntryType:   ledger.EntryType(req.EntryType),
		SourceType:  ledger.SourceManual,
		CreatedBy:   p.ActorID,
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, ledger.PostingLineInput{
			AccountNumber: l.AccountNumber,
			AccountName:   l.AccountName,
			Debit:         l.Debit,
			Credit:        l.Credit,
			Description:   l.Description,
		})
	}
	entry, err := h.service.PostEntry(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, periodID, ok := h.periodScope(w, r)
	if !ok {
		return
	}
	page := shared.PaginationFromQuery(r.URL.Query())
	entries, total, err := h.service.ListEntries(r.Context(), p.WorkspaceID, periodID, ledger.ListFilter{Limit: page.PerPage, Offset: page.Offset()})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if entries == nil {
		entries = []ledger.JournalEntry{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Entries:    entries,
		Pagination: shared.NewPagination(page.Page, page.PerPage, total),
	})
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	p, periodID, ok := h.periodScope(w, r)
	if !ok {
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), p.WorkspaceID, periodID, h.ranges)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	entryID, err := httpx.UUIDParam(chi.URLParam(r, "entryID"))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	entry, err := h.service.GetEntry(r.Context(), p.WorkspaceID, entryID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}
