// Package executor turns risk approvals into orders and walks each order
// through its state machine: pending, submitted, then exactly one of
// filled, rejected, cancelled or failed. Filled orders apply their trade to
// the ledger and the journal before Execute returns.
package executor

import (
	"context"
	"time"

	"condorbot/portfolio"
	"condorbot/risk"
)

// Status is an order's position in the state machine.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusFilled    Status = "filled"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	switch s {
	case StatusFilled, StatusRejected, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Order is the executor's record of one authorized trade. Execute returns
// it in a terminal status.
type Order struct {
	ID         string
	ExchangeID string // venue order id, live mode only
	Symbol     string
	Approval   risk.Approval
	Status     Status
	Error      string // populated on rejected/failed
	Trade      *portfolio.Trade
	Created    time.Time
	Updated    time.Time
}

// Executor places orders. Execute blocks until the order is terminal or
// ctx is cancelled; a cancelled ctx before fill yields StatusCancelled and
// leaves the ledger untouched.
type Executor interface {
	Execute(ctx context.Context, symbol string, ap risk.Approval) (*Order, error)
}
