package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leandro-cabeda/taya-homework-nest-node-main/internal/api"
	"github.com/leandro-cabeda/taya-homework-nest-node-main/internal/store"
)

// stubStore satisfies api.Store without a database; each field backs
// the corresponding method.
type stubStore struct {
	user        store.User
	userErr     error
	proposal    store.Proposal
	proposalErr error
	list        []store.Proposal
	listErr     error
}

func (s *stubStore) GetUser(ctx context.Context, id int64) (store.User, error) {
	return s.user, s.userErr
}

func (s *stubStore) CreateUser(ctx context.Context, name string, balance decimal.Decimal) (store.User, error) {
	return s.user, s.userErr
}

func (s *stubStore) CreateCustomer(ctx context.Context, userID int64, name, cpf string) (store.Customer, error) {
	return store.Customer{}, nil
}

func (s *stubStore) CreateProposal(ctx context.Context, ownerID, customerID int64, profit decimal.Decimal) (store.Proposal, error) {
	return s.proposal, s.proposalErr
}

func (s *stubStore) GetOwnedProposal(ctx context.Context, id, ownerID int64) (store.Proposal, error) {
	return s.proposal, s.proposalErr
}

func (s *stubStore) ListProposalsByStatus(ctx context.Context, ownerID int64, status string) ([]store.Proposal, error) {
	return s.list, s.listErr
}

func (s *stubStore) ApproveProposal(ctx context.Context, id, ownerID int64) (store.Proposal, error) {
	return s.proposal, s.proposalErr
}

func (s *stubStore) RefuseProposal(ctx context.Context, id, ownerID int64) (store.Proposal, error) {
	return s.proposal, s.proposalErr
}

func (s *stubStore) SumProfitByStatus(ctx context.Context) ([]store.StatusProfit, error) {
	return nil, s.listErr
}

func (s *stubStore) BestUsersByProfit(ctx context.Context, start, end time.Time) ([]store.UserProfit, error) {
	return nil, s.listErr
}

func serveStub(t *testing.T, st *stubStore, method, path, userID string) *httptest.ResponseRecorder {
	t.Helper()

	srv := api.NewServer(st, zap.NewNop())
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		req.Header.Set("user_id", userID)
	}
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

func TestAuthGateMissingHeader(t *testing.T) {
	rec := serveStub(t, &stubStore{}, http.MethodGet, "/1", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthGateUnparsableHeader(t *testing.T) {
	st := &stubStore{userErr: store.ErrUserNotFound}
	for _, id := range []string{"abc", "-1", "0", "1.5"} {
		rec := serveStub(t, st, http.MethodGet, "/1", id)
		require.Equal(t, http.StatusNotFound, rec.Code, "user_id %q", id)
	}
}

func TestAuthGateUnknownUser(t *testing.T) {
	st := &stubStore{userErr: store.ErrUserNotFound}
	rec := serveStub(t, st, http.MethodGet, "/1", "42")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"user_not_found"}`, rec.Body.String())
}

func TestAuthGateStoreFault(t *testing.T) {
	st := &stubStore{userErr: errors.New("connection refused")}
	rec := serveStub(t, st, http.MethodGet, "/1", "42")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal_error"}`, rec.Body.String())
}

func TestApproveNotApprovableMapsToNotFound(t *testing.T) {
	st := &stubStore{
		user:        store.User{ID: 1},
		proposalErr: store.ErrNotApprovable,
	}
	rec := serveStub(t, st, http.MethodPost, "/7/approve", "1")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"not_found"}`, rec.Body.String())
}

func TestApproveStoreFault(t *testing.T) {
	st := &stubStore{
		user:        store.User{ID: 1},
		proposalErr: errors.New("tx aborted"),
	}
	rec := serveStub(t, st, http.MethodPost, "/7/approve", "1")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestApproveInvalidID(t *testing.T) {
	st := &stubStore{user: store.User{ID: 1}}
	rec := serveStub(t, st, http.MethodPost, "/abc/approve", "1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProposalScopedNotFound(t *testing.T) {
	st := &stubStore{
		user:        store.User{ID: 2},
		proposalErr: store.ErrNotFound,
	}
	rec := serveStub(t, st, http.MethodGet, "/1", "2")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"not_found"}`, rec.Body.String())
}

func TestListPendingStoreFault(t *testing.T) {
	st := &stubStore{
		user:    store.User{ID: 1},
		listErr: errors.New("connection refused"),
	}
	rec := serveStub(t, st, http.MethodGet, "/", "1")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReportsSkipAuthGate(t *testing.T) {
	// Global reports must not run the per-user gate: no header, still 200.
	st := &stubStore{}
	rec := serveStub(t, st, http.MethodGet, "/profit-by-status", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
