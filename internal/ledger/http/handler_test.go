package ledgerhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bokslut/internal/ledger"
	"github.com/odyssey-erp/bokslut/internal/platform/httpx"
)

type stubLedger struct {
	posted   ledger.PostingInput
	postErr  error
	filter   ledger.ListFilter
	entries  []ledger.JournalEntry
	total    int
	entryErr error
}

func (s *stubLedger) PostEntry(ctx context.Context, in ledger.PostingInput) (ledger.JournalEntry, error) {
	s.posted = in
	if s.postErr != nil {
		return ledger.JournalEntry{}, s.postErr
	}
	if err := in.Validate(); err != nil {
		return ledger.JournalEntry{}, err
	}
	return ledger.JournalEntry{ID: uuid.New(), VerificationNumber: 1, WorkspaceID: in.WorkspaceID}, nil
}

func (s *stubLedger) ListEntries(ctx context.Context, workspaceID, periodID uuid.UUID, filter ledger.ListFilter) ([]ledger.JournalEntry, int, error) {
	s.filter = filter
	return s.entries, s.total, nil
}

func (s *stubLedger) GetEntry(ctx context.Context, workspaceID, entryID uuid.UUID) (ledger.JournalEntry, error) {
	if s.entryErr != nil {
		return ledger.JournalEntry{}, s.entryErr
	}
	return ledger.JournalEntry{ID: entryID}, nil
}

func (s *stubLedger) TrialBalance(ctx context.Context, workspaceID, periodID uuid.UUID, table ledger.RangeTable) (ledger.TrialBalance, error) {
	return ledger.TrialBalance{Balanced: true}, nil
}

func serve(t *testing.T, svc Service, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(httpx.RequirePrincipal)
	NewHandler(svc, ledger.DefaultRangeTable(), nil).MountRoutes(r)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(httpx.HeaderWorkspaceID, uuid.NewString())
	req.Header.Set(httpx.HeaderActorID, uuid.NewString())
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

const balancedEntry = `{"entry_date":"2024-03-01","description":"Kontantförsäljning","entry_type":"income",
"lines":[{"account_number":1930,"debit":"125.00"},{"account_number":3041,"credit":"100.00"},{"account_number":2611,"credit":"25.00"}]}`

func TestPostManualEntry(t *testing.T) {
	svc := &stubLedger{}
	rr := serve(t, svc, http.MethodPost, "/periods/"+uuid.NewString()+"/entries", balancedEntry)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, ledger.SourceManual, svc.posted.SourceType)
	require.Len(t, svc.posted.Lines, 3)
	require.Equal(t, ledger.EntryTypeIncome, svc.posted.EntryType)
}

func TestPostUnbalancedEntryIsBadRequest(t *testing.T) {
	body := strings.Replace(balancedEntry, `"125.00"`, `"126.00"`, 1)
	rr := serve(t, &stubLedger{}, http.MethodPost, "/periods/"+uuid.NewString()+"/entries", body)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "must balance")
}

func TestPostRejectsUnknownEntryType(t *testing.T) {
	body := strings.Replace(balancedEntry, `"income"`, `"gift"`, 1)
	rr := serve(t, &stubLedger{}, http.MethodPost, "/periods/"+uuid.NewString()+"/entries", body)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "EntryType")
}

func TestPostIntoLockedPeriodIsUnprocessable(t *testing.T) {
	rr := serve(t, &stubLedger{postErr: ledger.ErrPeriodLocked}, http.MethodPost, "/periods/"+uuid.NewString()+"/entries", balancedEntry)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestListEntriesPaginates(t *testing.T) {
	svc := &stubLedger{entries: []ledger.JournalEntry{{VerificationNumber: 3}}, total: 21}
	rr := serve(t, svc, http.MethodGet, "/periods/"+uuid.NewString()+"/entries?page=2&per_page=10", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, ledger.ListFilter{Limit: 10, Offset: 10}, svc.filter)

	var body listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, 3, body.Pagination.TotalPages)
	require.Len(t, body.Entries, 1)
}

func TestGetEntryNotFound(t *testing.T) {
	rr := serve(t, &stubLedger{entryErr: ledger.ErrEntryNotFound}, http.MethodGet, "/entries/"+uuid.NewString(), "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTrialBalance(t *testing.T) {
	rr := serve(t, &stubLedger{}, http.MethodGet, "/periods/"+uuid.NewString()+"/trial-balance", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"balanced":true`)
}
