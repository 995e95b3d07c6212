package store

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending    = "PENDING"
	StatusSuccessful = "SUCCESSFUL"
	StatusRefused    = "REFUSED"
	StatusError      = "ERROR"
)

type User struct {
	ID        int64
	Name      string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Customer struct {
	ID        int64
	UserID    int64
	Name      string
	CPF       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Proposal struct {
	ID         int64
	UserID     int64
	CustomerID int64
	Profit     decimal.Decimal
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StatusProfit is one row of the global profit-by-status report.
type StatusProfit struct {
	Status      string
	TotalProfit decimal.Decimal
}

// UserProfit is one row of the best-users report: total profit of
// SUCCESSFUL proposals created by the user within the queried range.
type UserProfit struct {
	UserID      int64
	Name        string
	TotalProfit decimal.Decimal
}
