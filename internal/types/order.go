package types

import (
	"time"

	"github.com/moznion/go-optional"
)

type OrderKind string

type Side string

type OrderStatus string

const (
	OrderKindMarket OrderKind = "market"
	OrderKindLimit  OrderKind = "limit"
)

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// There is no cancelled state: an open order either fills or stays open.
const (
	OrderStatusOpen   OrderStatus = "open"
	OrderStatusFilled OrderStatus = "filled"
)

// OrderRequest is the user input for placing an order.
type OrderRequest struct {
	Kind     OrderKind `json:"kind" yaml:"kind" validate:"required,oneof=market limit"`
	Side     Side      `json:"side" yaml:"side" validate:"required,oneof=buy sell"`
	Quantity float64   `json:"quantity" yaml:"quantity" validate:"gt=0"`
	// LimitPrice is required for limit orders and ignored for market orders.
	LimitPrice optional.Option[float64] `json:"limit_price" yaml:"limit_price"`
	// FeeRate is a fraction of the notional, e.g. 0.001 for 0.1%.
	FeeRate float64 `json:"fee_rate" yaml:"fee_rate"`
	Player  string  `json:"player" yaml:"player"`
}

// Order is a placed order. Only Status and ExecPrice change after creation.
type Order struct {
	ID            string                   `json:"id"`
	CreatedAt     time.Time                `json:"created_at"`
	InstrumentKey string                   `json:"instrument_key"`
	Kind          OrderKind                `json:"kind"`
	Side          Side                     `json:"side"`
	Quantity      float64                  `json:"quantity"`
	LimitPrice    optional.Option[float64] `json:"limit_price"`
	FeeRate       float64                  `json:"fee_rate"`
	Status        OrderStatus              `json:"status"`
	// ExecPrice is set only once the order is filled.
	ExecPrice optional.Option[float64] `json:"exec_price"`
	// Player is the label of the acting player at placement time.
	Player string `json:"player"`
}

// IsOpen reports whether the order is still waiting for its limit condition.
func (o Order) IsOpen() bool {
	return o.Status == OrderStatusOpen
}

// CanFillAt reports whether the order would fill against the reference price.
// A buy limit fills at or below its limit, a sell limit at or above it, and a market
// order always fills.
func (o Order) CanFillAt(referencePrice float64) bool {
	switch o.Kind {
	case OrderKindMarket:
		return true
	case OrderKindLimit:
		limit, err := o.LimitPrice.Take()
		if err != nil {
			return false
		}

		switch o.Side {
		case SideBuy:
			return referencePrice <= limit
		case SideSell:
			return referencePrice >= limit
		default:
			return false
		}
	default:
		return false
	}
}

// Notional returns execPrice × quantity, or zero while the order is open.
func (o Order) Notional() float64 {
	return o.ExecPrice.TakeOr(0) * o.Quantity
}

// Clone returns a copy that shares no backing storage with o.
func (o Order) Clone() Order {
	out := o

	if o.LimitPrice.IsSome() {
		out.LimitPrice = optional.Some(o.LimitPrice.Unwrap())
	} else {
		out.LimitPrice = optional.None[float64]()
	}

	if o.ExecPrice.IsSome() {
		out.ExecPrice = optional.Some(o.ExecPrice.Unwrap())
	} else {
		out.ExecPrice = optional.None[float64]()
	}

	return out
}
