package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketcore/internal/config"
	"marketcore/internal/decimal"
	"marketcore/internal/events"
	"marketcore/internal/orderbook"
)

func TestSubmitOrderRejectsNonUUIDMarket(t *testing.T) {
	e := New(events.NewMemoryTransport(), config.Default())
	defer e.Shutdown()

	_, err := e.SubmitOrder(context.Background(), orderbook.OrderInput{
		MarketID: "not-a-uuid", Side: orderbook.Bid, Type: orderbook.Market,
		Quantity: decimal.MustNewFromString("1"), UserID: "a",
	})
	assert.ErrorIs(t, err, ErrInvalidMarketID)
}

func TestSubmitOrderRejectsNegativeOutcomeIndex(t *testing.T) {
	e := New(events.NewMemoryTransport(), config.Default())
	defer e.Shutdown()

	_, err := e.SubmitOrder(context.Background(), orderbook.OrderInput{
		MarketID: uuid.NewString(), OutcomeIndex: -1, Side: orderbook.Bid, Type: orderbook.Market,
		Quantity: decimal.MustNewFromString("1"), UserID: "a",
	})
	assert.ErrorIs(t, err, ErrInvalidOutcomeIndex)
}

func TestSubmitOrderEndToEnd(t *testing.T) {
	e := New(events.NewMemoryTransport(), config.Default())
	defer e.Shutdown()

	marketID := uuid.NewString()
	price := decimal.MustNewFromString("0.6")

	askCh, err := e.SubmitOrder(context.Background(), orderbook.OrderInput{
		MarketID: marketID, OutcomeIndex: 0, Side: orderbook.Ask, Type: orderbook.Limit,
		Price: &price, Quantity: decimal.MustNewFromString("10"), UserID: "a",
	})
	require.NoError(t, err)
	res := <-askCh
	require.NoError(t, res.Err)

	bidCh, err := e.SubmitOrder(context.Background(), orderbook.OrderInput{
		MarketID: marketID, OutcomeIndex: 0, Side: orderbook.Bid, Type: orderbook.Limit,
		Price: &price, Quantity: decimal.MustNewFromString("4"), UserID: "b",
	})
	require.NoError(t, err)
	res = <-bidCh
	require.NoError(t, res.Err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "4.000000000000000000", res.Trades[0].Quantity.String())

	snap, ok := e.Snapshot(marketID, 0)
	require.True(t, ok)
	require.NotNil(t, snap.BestAsk)
	assert.Equal(t, "0.600000000000000000", snap.BestAsk.String())
}

func TestSnapshotUnknownBook(t *testing.T) {
	e := New(events.NewMemoryTransport(), config.Default())
	defer e.Shutdown()

	_, ok := e.Snapshot(uuid.NewString(), 0)
	assert.False(t, ok)
}
