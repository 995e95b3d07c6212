package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/leandro-cabeda/taya-homework-nest-node-main/internal/store"
)

const dateLayout = "2006-01-02"

type createUserRequest struct {
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

type createCustomerRequest struct {
	Name string `json:"name"`
	CPF  string `json:"cpf"`
}

type createProposalRequest struct {
	CustomerID int64           `json:"customer_id"`
	Profit     decimal.Decimal `json:"profit"`
}

type userResponse struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type customerResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	CPF       string    `json:"cpf"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type proposalResponse struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	CustomerID int64           `json:"customer_id"`
	Profit     decimal.Decimal `json:"profit"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type statusProfitResponse struct {
	Status      string          `json:"status"`
	TotalProfit decimal.Decimal `json:"total_profit"`
}

type bestUserResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	TotalProfit decimal.Decimal `json:"total_profit"`
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	user := userFrom(r.Context())

	proposal, err := s.store.GetOwnedProposal(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		s.logger.Error("get proposal", zap.Int64("proposal_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, toProposalResponse(proposal))
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	s.listByStatus(w, r, store.StatusPending)
}

func (s *Server) handleListRefused(w http.ResponseWriter, r *http.Request) {
	s.listByStatus(w, r, store.StatusRefused)
}

func (s *Server) listByStatus(w http.ResponseWriter, r *http.Request, status string) {
	user := userFrom(r.Context())

	proposals, err := s.store.ListProposalsByStatus(r.Context(), user.ID, status)
	if err != nil {
		s.logger.Error("list proposals",
			zap.Int64("user_id", user.ID),
			zap.String("status", status),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	out := make([]proposalResponse, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, toProposalResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleApproveProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	user := userFrom(r.Context())

	proposal, err := s.store.ApproveProposal(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotApprovable) {
			s.logger.Info("proposal_approve_rejected",
				zap.Int64("proposal_id", id),
				zap.Int64("user_id", user.ID),
			)
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		s.logger.Error("approve proposal", zap.Int64("proposal_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	s.logger.Info("proposal_approved",
		zap.Int64("proposal_id", proposal.ID),
		zap.Int64("user_id", user.ID),
		zap.String("profit", proposal.Profit.String()),
	)
	writeJSON(w, http.StatusOK, toProposalResponse(proposal))
}

func (s *Server) handleRefuseProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	user := userFrom(r.Context())

	proposal, err := s.store.RefuseProposal(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotApprovable) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		s.logger.Error("refuse proposal", zap.Int64("proposal_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	s.logger.Info("proposal_refused",
		zap.Int64("proposal_id", proposal.ID),
		zap.Int64("user_id", user.ID),
	)
	writeJSON(w, http.StatusOK, toProposalResponse(proposal))
}

func (s *Server) handleProfitByStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.SumProfitByStatus(r.Context())
	if err != nil {
		s.logger.Error("profit by status", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	out := make([]statusProfitResponse, 0, len(report))
	for _, row := range report {
		out = append(out, statusProfitResponse{
			Status:      row.Status,
			TotalProfit: row.TotalProfit,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBestUsers(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(dateLayout, r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start")
		return
	}
	end, err := time.Parse(dateLayout, r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end")
		return
	}

	// end is a date; the interval is closed, so stretch it to the last
	// instant of that day.
	endOfDay := end.AddDate(0, 0, 1).Add(-time.Microsecond)

	report, err := s.store.BestUsersByProfit(r.Context(), start, endOfDay)
	if err != nil {
		s.logger.Error("best users", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	out := make([]bestUserResponse, 0, len(report))
	for _, row := range report {
		out = append(out, bestUserResponse{
			ID:          row.UserID,
			Name:        row.Name,
			TotalProfit: row.TotalProfit,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateCreateUser(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	user, err := s.store.CreateUser(r.Context(), strings.TrimSpace(req.Name), req.Balance)
	if err != nil {
		s.logger.Error("create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	s.logger.Info("user_created", zap.Int64("user_id", user.ID))
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateCreateCustomer(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	user := userFrom(r.Context())

	customer, err := s.store.CreateCustomer(r.Context(), user.ID, strings.TrimSpace(req.Name), strings.TrimSpace(req.CPF))
	if err != nil {
		if errors.Is(err, store.ErrCustomerExists) {
			writeError(w, http.StatusConflict, "customer_exists")
			return
		}
		s.logger.Error("create customer", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	s.logger.Info("customer_created",
		zap.Int64("customer_id", customer.ID),
		zap.Int64("user_id", user.ID),
	)
	writeJSON(w, http.StatusCreated, toCustomerResponse(customer))
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req createProposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateCreateProposal(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	user := userFrom(r.Context())

	proposal, err := s.store.CreateProposal(r.Context(), user.ID, req.CustomerID, req.Profit)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "customer_not_found")
			return
		}
		s.logger.Error("create proposal", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	s.logger.Info("proposal_created",
		zap.Int64("proposal_id", proposal.ID),
		zap.Int64("user_id", user.ID),
		zap.Int64("customer_id", proposal.CustomerID),
	)
	writeJSON(w, http.StatusCreated, toProposalResponse(proposal))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return false
	}
	return true
}

func proposalID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return 0, false
	}
	return id, true
}

func validateCreateUser(req createUserRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("invalid name")
	}
	if req.Balance.IsNegative() {
		return errors.New("invalid balance")
	}
	return nil
}

func validateCreateCustomer(req createCustomerRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("invalid name")
	}
	if strings.TrimSpace(req.CPF) == "" {
		return errors.New("invalid cpf")
	}
	return nil
}

func validateCreateProposal(req createProposalRequest) error {
	if req.CustomerID <= 0 {
		return errors.New("invalid customer_id")
	}
	if req.Profit.IsNegative() {
		return errors.New("invalid profit")
	}
	return nil
}

func toProposalResponse(p store.Proposal) proposalResponse {
	return proposalResponse{
		ID:         p.ID,
		UserID:     p.UserID,
		CustomerID: p.CustomerID,
		Profit:     p.Profit,
		Status:     p.Status,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func toUserResponse(u store.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Balance:   u.Balance,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toCustomerResponse(c store.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		Name:      c.Name,
		CPF:       c.CPF,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
