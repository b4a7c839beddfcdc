// Package exchange defines the two capabilities the engine needs from a
// venue, market data and order entry, plus the error taxonomy the executor
// bases its retry decisions on. The Buda client implements both.
package exchange

import (
	"context"
	"time"

	"condorbot/market"
)

// MarketData reads public endpoints.
type MarketData interface {
	GetTicker(ctx context.Context, symbol string) (market.Ticker, error)
	GetOHLCV(ctx context.Context, symbol string, interval time.Duration, limit int) ([]market.Candle, error)
}

// Trader places and manages orders. SubmitOrder returns the venue's order
// id; fills are observed by polling GetOrderStatus.
type Trader interface {
	SubmitOrder(ctx context.Context, symbol string, side market.Side, amount float64) (string, error)
	GetOrderStatus(ctx context.Context, orderID string) (OrderState, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// OrderStatus is the venue-side lifecycle of an order.
type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderFilled    OrderStatus = "filled"
	OrderRejected  OrderStatus = "rejected"
	OrderCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the venue will not change this status again.
func (s OrderStatus) Terminal() bool {
	return s == OrderFilled || s == OrderRejected || s == OrderCancelled
}

// OrderState is a poll result for one order.
type OrderState struct {
	ID           string
	Status       OrderStatus
	FilledAmount float64
	AvgPrice     float64
	Fee          float64
}
