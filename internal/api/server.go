package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/leandro-cabeda/taya-homework-nest-node-main/internal/store"
)

// userIDHeader carries the caller's numeric user id. There is no
// signature on it; once the lookup succeeds the user is trusted.
const userIDHeader = "user_id"

// Store is the persistence boundary the server talks to, implemented
// by *store.Store.
type Store interface {
	GetUser(ctx context.Context, id int64) (store.User, error)
	CreateUser(ctx context.Context, name string, balance decimal.Decimal) (store.User, error)
	CreateCustomer(ctx context.Context, userID int64, name, cpf string) (store.Customer, error)
	CreateProposal(ctx context.Context, ownerID, customerID int64, profit decimal.Decimal) (store.Proposal, error)
	GetOwnedProposal(ctx context.Context, id, ownerID int64) (store.Proposal, error)
	ListProposalsByStatus(ctx context.Context, ownerID int64, status string) ([]store.Proposal, error)
	ApproveProposal(ctx context.Context, id, ownerID int64) (store.Proposal, error)
	RefuseProposal(ctx context.Context, id, ownerID int64) (store.Proposal, error)
	SumProfitByStatus(ctx context.Context) ([]store.StatusProfit, error)
	BestUsersByProfit(ctx context.Context, start, end time.Time) ([]store.UserProfit, error)
}

type Server struct {
	store  Store
	logger *zap.Logger
}

func NewServer(st Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:  st,
		logger: logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/profit-by-status", s.handleProfitByStatus)
	r.Get("/best-users", s.handleBestUsers)
	r.Post("/users", s.handleCreateUser)

	r.Group(func(r chi.Router) {
		r.Use(s.withUser)
		r.Post("/customers", s.handleCreateCustomer)
		r.Post("/proposals", s.handleCreateProposal)
		r.Get("/", s.handleListPending)
		r.Get("/refused", s.handleListRefused)
		r.Get("/{id}", s.handleGetProposal)
		r.Post("/{id}/approve", s.handleApproveProposal)
		r.Post("/{id}/refuse", s.handleRefuseProposal)
	})

	return r
}

type ctxKey int

const userCtxKey ctxKey = iota

// withUser resolves the user_id header to a known user before the
// handler runs: missing header is unauthorized, unknown (or garbled)
// ids read as a user that does not exist.
func (s *Server) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(userIDHeader))
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}

		user, err := s.store.GetUser(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				writeError(w, http.StatusNotFound, "user_not_found")
				return
			}
			s.logger.Error("resolve user", zap.Int64("user_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		ctx := context.WithValue(r.Context(), userCtxKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFrom(ctx context.Context) store.User {
	u, _ := ctx.Value(userCtxKey).(store.User)
	return u
}
