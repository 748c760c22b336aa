package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketcore/internal/decimal"
)

func price(s string) *decimal.Decimal {
	d := decimal.MustNewFromString(s)
	return &d
}

func qty(s string) decimal.Decimal {
	return decimal.MustNewFromString(s)
}

func TestCrossingLimitMatch(t *testing.T) {
	b := New("m1", 0, DefaultSnapshotDepth)

	_, err := b.ProcessOrder(OrderInput{
		MarketID: "m1", OutcomeIndex: 0, Side: Ask, Type: Limit,
		Price: price("0.60"), Quantity: qty("10"), UserID: "u1",
	})
	require.NoError(t, err)

	result, err := b.ProcessOrder(OrderInput{
		MarketID: "m1", OutcomeIndex: 0, Side: Bid, Type: Limit,
		Price: price("0.65"), Quantity: qty("4"), UserID: "u2",
	})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	assert.Equal(t, "0.600000000000000000", result.Trades[0].Price.String())
	assert.Equal(t, "4.000000000000000000", result.Trades[0].Quantity.String())
	assert.Equal(t, Filled, result.Order.Status)

	snap := result.Snapshot
	require.NotNil(t, snap.BestAsk)
	assert.Equal(t, "0.600000000000000000", snap.BestAsk.String())
	assert.Nil(t, snap.BestBid)
	require.Len(t, snap.Asks, 1)
	assert.Equal(t, "6.000000000000000000", snap.Asks[0].TotalQuantity.String())
}

func TestFIFOSamePrice(t *testing.T) {
	b := New("m1", 0, DefaultSnapshotDepth)

	_, err := b.ProcessOrder(OrderInput{
		MarketID: "m1", OutcomeIndex: 0, Side: Ask, Type: Limit,
		Price: price("0.50"), Quantity: qty("5"), UserID: "a",
	})
	require.NoError(t, err)
	_, err = b.ProcessOrder(OrderInput{
		MarketID: "m1", OutcomeIndex: 0, Side: Ask, Type: Limit,
		Price: price("0.50"), Quantity: qty("5"), UserID: "b",
	})
	require.NoError(t, err)

	result, err := b.ProcessOrder(OrderInput{
		MarketID: "m1", OutcomeIndex: 0, Side: Bid, Type: Limit,
		Price: price("0.50"), Quantity: qty("7"), UserID: "c",
	})
	require.NoError(t, err)

	require.Len(t, result.Trades, 2)
	assert.Equal(t, "5.000000000000000000", result.Trades[0].Quantity.String())
	assert.Equal(t, "2.000000000000000000", result.Trades[1].Quantity.String())
	assert.Equal(t, Filled, result.Order.Status)
	assert.Equal(t, "3.000000000000000000", result.Snapshot.Asks[0].TotalQuantity.String())
}

func TestIOCPartial(t *testing.T) {
	b := New("m1", 0, DefaultSnapshotDepth)

	_, err := b.ProcessOrder(OrderInput{
		MarketID: "m1", OutcomeIndex: 0, Side: Ask, Type: Limit,
		Price: price("0.70"), Quantity: qty("2"), UserID: "a",
	})
	require.NoError(t, err)

	result, err := b.ProcessOrder(OrderInput{
		MarketID: "m1", OutcomeIndex: 0, Side: Bid, Type: IOC,
		Price: price("0.70"), Quantity: qty("5"), UserID: "b",
	})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	assert.Equal(t, "2.000000000000000000", result.Trades[0].Quantity.String())
	assert.Equal(t, PartiallyFilled, result.Order.Status)
	assert.Equal(t, "3.000000000000000000", result.Order.RemainingQuantity.String())
}

func TestMarketOrderEmptyBookCancels(t *testing.T) {
	b := New("m1", 0, DefaultSnapshotDepth)

	result, err := b.ProcessOrder(OrderInput{
		MarketID: "m1", OutcomeIndex: 0, Side: Bid, Type: Market,
		Quantity: qty("5"), UserID: "a",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Trades)
	assert.Equal(t, CancelledIOC, result.Order.Status)
}

func TestLimitRestsWhenNotCrossing(t *testing.T) {
	b := New("m1", 0, DefaultSnapshotDepth)

	result, err := b.ProcessOrder(OrderInput{
		MarketID: "m1", OutcomeIndex: 0, Side: Bid, Type: Limit,
		Price: price("0.40"), Quantity: qty("3"), UserID: "a",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Trades)
	assert.Equal(t, Resting, result.Order.Status)
	require.NotNil(t, result.Snapshot.BestBid)
	assert.Equal(t, "0.400000000000000000", result.Snapshot.BestBid.String())
}

func TestZeroQuantityRejected(t *testing.T) {
	b := New("m1", 0, DefaultSnapshotDepth)
	_, err := b.ProcessOrder(OrderInput{
		MarketID: "m1", OutcomeIndex: 0, Side: Bid, Type: Market,
		Quantity: qty("0"), UserID: "a",
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestLimitWithoutPriceRejected(t *testing.T) {
	b := New("m1", 0, DefaultSnapshotDepth)
	_, err := b.ProcessOrder(OrderInput{
		MarketID: "m1", OutcomeIndex: 0, Side: Bid, Type: Limit,
		Quantity: qty("1"), UserID: "a",
	})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestIdentityMustBeExactlyOne(t *testing.T) {
	b := New("m1", 0, DefaultSnapshotDepth)
	_, err := b.ProcessOrder(OrderInput{
		MarketID: "m1", OutcomeIndex: 0, Side: Bid, Type: Market,
		Quantity: qty("1"),
	})
	assert.ErrorIs(t, err, ErrInvalidIdentity)

	_, err = b.ProcessOrder(OrderInput{
		MarketID: "m1", OutcomeIndex: 0, Side: Bid, Type: Market,
		Quantity: qty("1"), UserID: "a", AgentID: "b",
	})
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestSelfTradeIsAllowed(t *testing.T) {
	b := New("m1", 0, DefaultSnapshotDepth)
	_, err := b.ProcessOrder(OrderInput{
		MarketID: "m1", OutcomeIndex: 0, Side: Ask, Type: Limit,
		Price: price("0.5"), Quantity: qty("1"), UserID: "same",
	})
	require.NoError(t, err)

	result, err := b.ProcessOrder(OrderInput{
		MarketID: "m1", OutcomeIndex: 0, Side: Bid, Type: Limit,
		Price: price("0.5"), Quantity: qty("1"), UserID: "same",
	})
	require.NoError(t, err)
	assert.Len(t, result.Trades, 1)
}

func TestBookNeverEndsUpCrossed(t *testing.T) {
	b := New("m1", 0, DefaultSnapshotDepth)

	orders := []OrderInput{
		{Side: Ask, Type: Limit, Price: price("1.00"), Quantity: qty("10")},
		{Side: Bid, Type: Limit, Price: price("0.90"), Quantity: qty("10")},
		{Side: Bid, Type: Limit, Price: price("0.95"), Quantity: qty("5")},
		{Side: Ask, Type: Limit, Price: price("0.92"), Quantity: qty("3")},
	}
	for i := range orders {
		orders[i].MarketID = "m1"
		orders[i].UserID = "a"
		_, err := b.ProcessOrder(orders[i])
		require.NoError(t, err)
	}

	snap := b.Snapshot()
	if snap.BestBid != nil && snap.BestAsk != nil {
		assert.True(t, snap.BestBid.LessThan(*snap.BestAsk))
	}
}

func TestTotalTradedQuantityNeverExceedsSubmitted(t *testing.T) {
	b := New("m1", 0, DefaultSnapshotDepth)
	_, err := b.ProcessOrder(OrderInput{
		MarketID: "m1", Side: Ask, Type: Limit, Price: price("1"), Quantity: qty("3"), UserID: "a",
	})
	require.NoError(t, err)

	result, err := b.ProcessOrder(OrderInput{
		MarketID: "m1", Side: Bid, Type: IOC, Price: price("1"), Quantity: qty("100"), UserID: "b",
	})
	require.NoError(t, err)

	traded := decimal.Zero
	for _, tr := range result.Trades {
		traded = traded.Add(tr.Quantity)
	}
	assert.True(t, traded.LessThanOrEqual(qty("100")))
	assert.Equal(t, "3.000000000000000000", traded.String())
}
