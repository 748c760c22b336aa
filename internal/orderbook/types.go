// Package orderbook implements the in-memory, per-(marketId, outcomeIndex)
// continuous double auction described in §4.3: bid/ask price levels ordered
// by price then arrival time, a match loop, snapshot production, and trade
// emission. processOrder is the sole mutator and is only ever invoked by
// internal/matching under per-book exclusion (§5).
//
// Grounded on the teacher's internal/engine/orderbook.go (tidwall/btree
// price levels, FIFO within a level, sweep loop) and
// internal/book/{buy_book,sell_book}.go (bid/ask comparator asymmetry),
// generalized from a single global float64 book to per-market decimal books
// with LIMIT/MARKET/IOC semantics.
package orderbook

import (
	"errors"

	"marketcore/internal/decimal"
)

// Side is which side of the book an order rests on or crosses into.
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "BID"
	}
	return "ASK"
}

// Type is the order's execution semantics.
type Type int

const (
	Limit Type = iota
	Market
	IOC
)

// Status is the final disposition of a submitted order.
type Status int

const (
	Filled Status = iota
	PartiallyFilled
	Resting
	CancelledIOC
)

func (s Status) String() string {
	switch s {
	case Filled:
		return "FILLED"
	case PartiallyFilled:
		return "PARTIALLY_FILLED"
	case Resting:
		return "RESTING"
	case CancelledIOC:
		return "CANCELLED_IOC"
	default:
		return "UNKNOWN"
	}
}

var (
	// ErrInvalidQuantity is returned for a zero or negative submitted quantity.
	ErrInvalidQuantity = errors.New("orderbook: quantity must be strictly positive")
	// ErrInvalidPrice is returned when a LIMIT order has no price, or any
	// order carries a non-positive price.
	ErrInvalidPrice = errors.New("orderbook: limit orders require a strictly positive price")
	// ErrUnknownOrderType is returned for an order type outside {LIMIT, MARKET, IOC}.
	ErrUnknownOrderType = errors.New("orderbook: unknown order type")
	// ErrInvalidIdentity is returned when an order carries zero or both of userId/agentId.
	ErrInvalidIdentity = errors.New("orderbook: exactly one of userId or agentId must be set")
	// ErrInvariant indicates a fatal internal invariant violation (crossed
	// book, negative remaining quantity) — per §7 this should abort the
	// process, which internal/matching does on receipt of this error.
	ErrInvariant = errors.New("orderbook: internal invariant violated")
)

// OrderInput is a caller-submitted order before it has been sequenced.
type OrderInput struct {
	MarketID     string
	OutcomeIndex int
	Side         Side
	Type         Type
	Price        *decimal.Decimal // required for LIMIT, ignored for MARKET, optional for IOC
	Quantity     decimal.Decimal
	UserID       string
	AgentID      string
}

// Validate enforces the structural rules from §3/§4.3 that must hold
// before any book mutation happens.
func (in OrderInput) Validate() error {
	if in.Type != Limit && in.Type != Market && in.Type != IOC {
		return ErrUnknownOrderType
	}
	if (in.UserID == "") == (in.AgentID == "") {
		return ErrInvalidIdentity
	}
	if !in.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if in.Type == Limit {
		if in.Price == nil || !in.Price.IsPositive() {
			return ErrInvalidPrice
		}
	}
	if in.Price != nil && !in.Price.IsPositive() {
		return ErrInvalidPrice
	}
	return nil
}

// Order reflects the final state of a submitted order after processing.
type Order struct {
	ID                string
	MarketID          string
	OutcomeIndex      int
	Side              Side
	Type              Type
	Price             *decimal.Decimal
	Quantity          decimal.Decimal // originally submitted quantity
	RemainingQuantity decimal.Decimal
	Status            Status
	Sequence          uint64
	UserID            string
	AgentID           string
}

// ExecutedTrade is one fill produced while processing an order.
type ExecutedTrade struct {
	ID            string
	MarketID      string
	OutcomeIndex  int
	MakerOrderID  string
	TakerOrderID  string
	UserID        string // taker's identity, mirrors the triggering OrderInput (§9 open question resolution, see DESIGN.md)
	AgentID       string
	Side          Side // the taker's side
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	ExecutedAt    uint64 // monotonic per book
}

// PriceLevel is one aggregated row of a snapshot.
type PriceLevel struct {
	Price         decimal.Decimal
	TotalQuantity decimal.Decimal
}

// Snapshot is a top-K aggregated view of a book at a point in time.
type Snapshot struct {
	MarketID       string
	OutcomeIndex   int
	Bids           []PriceLevel
	Asks           []PriceLevel
	BestBid        *decimal.Decimal
	BestAsk        *decimal.Decimal
	LastTradePrice *decimal.Decimal
}

// ProcessedOrder is the result of a single processOrder call.
type ProcessedOrder struct {
	Order    Order
	Trades   []ExecutedTrade
	Snapshot Snapshot
}

// DefaultSnapshotDepth is K in §3's "top-K price levels", used when a Book
// is not given an explicit depth via internal/config.
const DefaultSnapshotDepth = 25
