package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
        SELECT id, name, balance, created_at, updated_at
        FROM users
        WHERE id = $1
    `, id).Scan(
		&u.ID,
		&u.Name,
		&u.Balance,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, name string, balance decimal.Decimal) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
        INSERT INTO users (name, balance)
        VALUES ($1, $2)
        RETURNING id, name, balance, created_at, updated_at
    `, name, balance).Scan(
		&u.ID,
		&u.Name,
		&u.Balance,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Store) CreateCustomer(ctx context.Context, userID int64, name, cpf string) (Customer, error) {
	var c Customer
	err := s.pool.QueryRow(ctx, `
        INSERT INTO customers (user_id, name, cpf)
        VALUES ($1, $2, $3)
        RETURNING id, user_id, name, cpf, created_at, updated_at
    `, userID, name, cpf).Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.CPF,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Customer{}, ErrCustomerExists
		}
		return Customer{}, err
	}
	return c, nil
}

func (s *Store) CreateProposal(ctx context.Context, ownerID, customerID int64, profit decimal.Decimal) (Proposal, error) {
	var p Proposal
	err := s.pool.QueryRow(ctx, `
        INSERT INTO proposals (user_id, customer_id, profit, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, user_id, customer_id, profit, status, created_at, updated_at
    `, ownerID, customerID, profit, StatusPending).Scan(
		&p.ID,
		&p.UserID,
		&p.CustomerID,
		&p.Profit,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Proposal{}, ErrNotFound
		}
		return Proposal{}, err
	}
	return p, nil
}

// GetOwnedProposal returns the proposal only when it belongs to ownerID.
// The ownership check lives in the query so a proposal owned by someone
// else is indistinguishable from one that does not exist.
func (s *Store) GetOwnedProposal(ctx context.Context, id, ownerID int64) (Proposal, error) {
	var p Proposal
	err := s.pool.QueryRow(ctx, `
        SELECT id, user_id, customer_id, profit, status, created_at, updated_at
        FROM proposals
        WHERE id = $1 AND user_id = $2
    `, id, ownerID).Scan(
		&p.ID,
		&p.UserID,
		&p.CustomerID,
		&p.Profit,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Proposal{}, ErrNotFound
		}
		return Proposal{}, err
	}
	return p, nil
}

func (s *Store) ListProposalsByStatus(ctx context.Context, ownerID int64, status string) ([]Proposal, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, user_id, customer_id, profit, status, created_at, updated_at
        FROM proposals
        WHERE user_id = $1 AND status = $2
        ORDER BY id
    `, ownerID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	proposals := []Proposal{}
	for rows.Next() {
		var p Proposal
		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.CustomerID,
			&p.Profit,
			&p.Status,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// ApproveProposal moves a PENDING proposal owned by ownerID to
// SUCCESSFUL and credits its profit to the owner's balance. Status
// check, status write and balance write run in one transaction; the
// row lock serializes concurrent attempts on the same id so the credit
// is applied at most once.
func (s *Store) ApproveProposal(ctx context.Context, id, ownerID int64) (Proposal, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Proposal{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	p, err := lockProposal(ctx, tx, id, ownerID)
	if err != nil {
		return Proposal{}, err
	}
	if p.Status != StatusPending {
		return Proposal{}, ErrNotApprovable
	}

	err = tx.QueryRow(ctx, `
        UPDATE proposals
        SET status = $1, updated_at = now()
        WHERE id = $2
        RETURNING status, updated_at
    `, StatusSuccessful, id).Scan(&p.Status, &p.UpdatedAt)
	if err != nil {
		return Proposal{}, err
	}

	_, err = tx.Exec(ctx, `
        UPDATE users
        SET balance = balance + $1, updated_at = now()
        WHERE id = $2
    `, p.Profit, ownerID)
	if err != nil {
		return Proposal{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Proposal{}, err
	}

	return p, nil
}

// RefuseProposal moves a PENDING proposal owned by ownerID to REFUSED.
// No balance effect.
func (s *Store) RefuseProposal(ctx context.Context, id, ownerID int64) (Proposal, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Proposal{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	p, err := lockProposal(ctx, tx, id, ownerID)
	if err != nil {
		return Proposal{}, err
	}
	if p.Status != StatusPending {
		return Proposal{}, ErrNotApprovable
	}

	err = tx.QueryRow(ctx, `
        UPDATE proposals
        SET status = $1, updated_at = now()
        WHERE id = $2
        RETURNING status, updated_at
    `, StatusRefused, id).Scan(&p.Status, &p.UpdatedAt)
	if err != nil {
		return Proposal{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Proposal{}, err
	}

	return p, nil
}

// SumProfitByStatus sums profit over all proposals grouped by status,
// regardless of owner.
func (s *Store) SumProfitByStatus(ctx context.Context) ([]StatusProfit, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT status, COALESCE(SUM(profit), 0)
        FROM proposals
        GROUP BY status
        ORDER BY status
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := []StatusProfit{}
	for rows.Next() {
		var sp StatusProfit
		if err := rows.Scan(&sp.Status, &sp.TotalProfit); err != nil {
			return nil, err
		}
		report = append(report, sp)
	}
	return report, rows.Err()
}

// BestUsersByProfit ranks users by the summed profit of their
// SUCCESSFUL proposals created within [start, end]. Ties are broken by
// user id so the order is deterministic.
func (s *Store) BestUsersByProfit(ctx context.Context, start, end time.Time) ([]UserProfit, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT u.id, u.name, SUM(p.profit) AS total_profit
        FROM proposals p
        JOIN users u ON u.id = p.user_id
        WHERE p.status = $1 AND p.created_at BETWEEN $2 AND $3
        GROUP BY u.id, u.name
        ORDER BY total_profit DESC, u.id
    `, StatusSuccessful, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := []UserProfit{}
	for rows.Next() {
		var up UserProfit
		if err := rows.Scan(&up.UserID, &up.Name, &up.TotalProfit); err != nil {
			return nil, err
		}
		report = append(report, up)
	}
	return report, rows.Err()
}

func lockProposal(ctx context.Context, tx pgx.Tx, id, ownerID int64) (Proposal, error) {
	var p Proposal
	err := tx.QueryRow(ctx, `
        SELECT id, user_id, customer_id, profit, status, created_at, updated_at
        FROM proposals
        WHERE id = $1 AND user_id = $2
        FOR UPDATE
    `, id, ownerID).Scan(
		&p.ID,
		&p.UserID,
		&p.CustomerID,
		&p.Profit,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Proposal{}, ErrNotApprovable
		}
		return Proposal{}, err
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	pgErr, ok := err.(*pgconn.PgError)
	if !ok {
		return false
	}
	return pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	pgErr, ok := err.(*pgconn.PgError)
	if !ok {
		return false
	}
	return pgErr.Code == "23503"
}
