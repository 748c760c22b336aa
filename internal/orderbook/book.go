package orderbook

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/btree"

	"marketcore/internal/decimal"
)

// restingOrder is a book entry: an order that did not fully execute on
// arrival and is waiting for a counterparty.
type restingOrder struct {
	ID       string
	Side     Side
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Sequence uint64
	UserID   string
	AgentID  string
}

// level is one price level: all resting orders at that price, in strict
// arrival order (push-back, front is oldest — §3 "FIFO at each level").
type level struct {
	Price  decimal.Decimal
	Orders []*restingOrder
}

// Book is the in-memory order book for a single (marketId, outcomeIndex).
// ProcessOrder is only ever called while holding that book's per-key
// exclusion (internal/matching), so writers never contend with each other;
// mu exists to let Snapshot be read concurrently with that single writer
// (e.g. Engine.Snapshot racing an in-flight SubmitOrder) without tearing
// the underlying btree.BTreeG trees.
type Book struct {
	MarketID     string
	OutcomeIndex int

	mu sync.RWMutex

	bids *btree.BTreeG[*level] // sorted highest price first
	asks *btree.BTreeG[*level] // sorted lowest price first

	snapshotDepth int

	nextSequence   uint64
	nextTradeID    uint64
	lastTradePrice *decimal.Decimal
}

// New creates an empty book for (marketID, outcomeIndex), producing
// snapshots of at most snapshotDepth price levels per side (§3's "top-K").
func New(marketID string, outcomeIndex int, snapshotDepth int) *Book {
	bids := btree.NewBTreeG(func(a, b *level) bool {
		return a.Price.GreaterThan(b.Price)
	})
	asks := btree.NewBTreeG(func(a, b *level) bool {
		return a.Price.LessThan(b.Price)
	})
	return &Book{
		MarketID:      marketID,
		OutcomeIndex:  outcomeIndex,
		bids:          bids,
		asks:          asks,
		snapshotDepth: snapshotDepth,
	}
}

func (b *Book) levelsFor(side Side) *btree.BTreeG[*level] {
	if side == Bid {
		return b.bids
	}
	return b.asks
}

func (b *Book) oppositeLevelsFor(side Side) *btree.BTreeG[*level] {
	if side == Bid {
		return b.asks
	}
	return b.bids
}

// bestOf returns the best (highest bid / lowest ask, by construction of the
// tree's ordering) resting level, if any.
func bestOf(levels *btree.BTreeG[*level]) (*level, bool) {
	return levels.Min()
}

// crosses reports whether the opposing best level crosses the incoming order.
func crosses(in OrderInput, best *level) bool {
	if in.Type == Market {
		return true
	}
	if in.Type == IOC && in.Price == nil {
		return true
	}
	if in.Side == Bid {
		return best.Price.LessThanOrEqual(*in.Price)
	}
	return best.Price.GreaterThanOrEqual(*in.Price)
}

// ProcessOrder is the only mutator of a Book. It normalizes the input,
// crosses the opposing book while possible, rests or discards any residual
// per the order's type, and returns the resulting trades, final order
// state, and a fresh top-K snapshot (§4.3 steps 1-4).
func (b *Book) ProcessOrder(in OrderInput) (ProcessedOrder, error) {
	if err := in.Validate(); err != nil {
		return ProcessedOrder{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSequence++
	sequence := b.nextSequence
	orderID := uuid.NewString()
	remaining := in.Quantity

	var trades []ExecutedTrade
	opposite := b.oppositeLevelsFor(in.Side)

	for remaining.IsPositive() {
		best, ok := bestOf(opposite)
		if !ok || !crosses(in, best) {
			break
		}

		maker := best.Orders[0]
		matchQty := maker.Quantity
		if remaining.LessThan(matchQty) {
			matchQty = remaining
		}

		b.nextTradeID++
		trade := ExecutedTrade{
			ID:           uuid.NewString(),
			MarketID:     b.MarketID,
			OutcomeIndex: b.OutcomeIndex,
			MakerOrderID: maker.ID,
			TakerOrderID: orderID,
			UserID:       in.UserID,
			AgentID:      in.AgentID,
			Side:         in.Side,
			Price:        maker.Price,
			Quantity:     matchQty,
			ExecutedAt:   b.nextTradeID,
		}
		trades = append(trades, trade)
		price := trade.Price
		b.lastTradePrice = &price

		maker.Quantity = maker.Quantity.Sub(matchQty)
		remaining = remaining.Sub(matchQty)

		if maker.Quantity.IsZero() {
			best.Orders = best.Orders[1:]
		} else if maker.Quantity.IsNegative() {
			return ProcessedOrder{}, ErrInvariant
		}
		if len(best.Orders) == 0 {
			opposite.Delete(best)
		}
	}

	order := Order{
		ID:                orderID,
		MarketID:          b.MarketID,
		OutcomeIndex:      b.OutcomeIndex,
		Side:              in.Side,
		Type:              in.Type,
		Price:             in.Price,
		Quantity:          in.Quantity,
		RemainingQuantity: remaining,
		Sequence:          sequence,
		UserID:            in.UserID,
		AgentID:           in.AgentID,
	}

	switch {
	case remaining.IsZero():
		order.Status = Filled
	case in.Type == Limit:
		order.Status = Resting
		b.rest(in, orderID, sequence, remaining)
	default: // Market or IOC: residual is discarded
		if len(trades) > 0 {
			order.Status = PartiallyFilled
		} else {
			order.Status = CancelledIOC
		}
	}

	if err := b.checkNotCrossed(); err != nil {
		return ProcessedOrder{}, err
	}

	return ProcessedOrder{
		Order:    order,
		Trades:   trades,
		Snapshot: b.snapshotLocked(),
	}, nil
}

// rest inserts the residual quantity of a LIMIT order as a new resting
// order, ordered by (price, sequence) within its level.
func (b *Book) rest(in OrderInput, orderID string, sequence uint64, remaining decimal.Decimal) {
	own := b.levelsFor(in.Side)
	key := &level{Price: *in.Price}
	existing, ok := own.Get(key)

	resting := &restingOrder{
		ID:       orderID,
		Side:     in.Side,
		Price:    *in.Price,
		Quantity: remaining,
		Sequence: sequence,
		UserID:   in.UserID,
		AgentID:  in.AgentID,
	}

	if ok {
		existing.Orders = append(existing.Orders, resting)
		return
	}
	own.Set(&level{Price: *in.Price, Orders: []*restingOrder{resting}})
}

// checkNotCrossed enforces §3's at-rest invariant: best bid < best ask.
func (b *Book) checkNotCrossed() error {
	bestBid, hasBid := b.bids.Min()
	bestAsk, hasAsk := b.asks.Min()
	if hasBid && hasAsk && bestBid.Price.GreaterThanOrEqual(bestAsk.Price) {
		return ErrInvariant
	}
	return nil
}

// Snapshot builds a top-K aggregated view of the current book state (§3).
// Safe to call concurrently with ProcessOrder: it takes mu for reading,
// the same lock ProcessOrder takes for writing, so a snapshot never
// observes a btree mid-mutation.
func (b *Book) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked()
}

// snapshotLocked is Snapshot's body, assuming the caller already holds mu
// (for reading or writing). ProcessOrder calls this directly, under its
// own write lock, to avoid re-entering mu.RLock.
func (b *Book) snapshotLocked() Snapshot {
	snap := Snapshot{
		MarketID:       b.MarketID,
		OutcomeIndex:   b.OutcomeIndex,
		LastTradePrice: b.lastTradePrice,
	}

	n := 0
	b.bids.Scan(func(lvl *level) bool {
		if n >= b.snapshotDepth {
			return false
		}
		snap.Bids = append(snap.Bids, aggregate(lvl))
		n++
		return true
	})
	n = 0
	b.asks.Scan(func(lvl *level) bool {
		if n >= b.snapshotDepth {
			return false
		}
		snap.Asks = append(snap.Asks, aggregate(lvl))
		n++
		return true
	})

	if len(snap.Bids) > 0 {
		p := snap.Bids[0].Price
		snap.BestBid = &p
	}
	if len(snap.Asks) > 0 {
		p := snap.Asks[0].Price
		snap.BestAsk = &p
	}
	return snap
}

func aggregate(lvl *level) PriceLevel {
	total := decimal.Zero
	for _, o := range lvl.Orders {
		total = total.Add(o.Quantity)
	}
	return PriceLevel{Price: lvl.Price, TotalQuantity: total}
}
