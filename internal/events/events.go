// Package events implements the publisher described in §4.5: after every
// successfully processed order it emits, in order, an ORDER_BOOK_UPDATE, a
// MARKET_UPDATES notification, and one TRADES message per executed trade,
// all as JSON payloads on named channels (§6).
//
// The actual transport — the thing a websocket fan-out service or another
// out-of-process subscriber would connect to — is an external collaborator
// per §1, so it is represented here purely as the Transport interface.
// Two concrete transports are provided: an in-memory fan-out broker for
// tests and the demo harness, and a github.com/redis/go-redis/v9-backed
// PUBLISH transport for a real process boundary.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"marketcore/internal/orderbook"
)

// Channel names, fixed by §6.
type Channel string

const (
	ChannelOrderBookUpdate Channel = "order-book-update"
	ChannelMarketUpdates   Channel = "market-updates"
	ChannelTrades          Channel = "trades"
)

// ErrPublishFailed wraps any transport error so callers can distinguish it
// from a structural or invariant failure (§7).
var ErrPublishFailed = errors.New("events: publish failed")

// Transport is the pub/sub boundary: JSON-encoded UTF-8 payloads on named
// channels (§6).
type Transport interface {
	Publish(ctx context.Context, channel Channel, payload []byte) error
}

// OrderBookUpdatePayload is the body of an ORDER_BOOK_UPDATE message.
type OrderBookUpdatePayload struct {
	MarketID     string             `json:"marketId"`
	OutcomeIndex int                `json:"outcomeIndex"`
	Snapshot     orderbook.Snapshot `json:"snapshot"`
}

// MarketUpdatePayload is the body of a MARKET_UPDATES message.
type MarketUpdatePayload struct {
	MarketID string  `json:"marketId"`
	Reason   string  `json:"reason"`
	Volume   *string `json:"volume,omitempty"`
}

// TradePayload is the body of a single TRADES message.
type TradePayload struct {
	Trade orderbook.ExecutedTrade `json:"trade"`
}

// Publisher emits the three categories of events for a processed order, in
// order, awaiting each publish before sending the next (§4.5, §5: "Across
// channels for the same order: ORDER_BOOK_UPDATE precedes MARKET_UPDATES
// precedes the first TRADE").
type Publisher struct {
	transport Transport
}

// NewPublisher builds a Publisher over the given transport.
func NewPublisher(transport Transport) *Publisher {
	return &Publisher{transport: transport}
}

// PublishProcessedOrder publishes all events for one ProcessedOrder.
func (p *Publisher) PublishProcessedOrder(ctx context.Context, processed orderbook.ProcessedOrder) error {
	if err := p.publish(ctx, ChannelOrderBookUpdate, OrderBookUpdatePayload{
		MarketID:     processed.Order.MarketID,
		OutcomeIndex: processed.Order.OutcomeIndex,
		Snapshot:     processed.Snapshot,
	}); err != nil {
		return err
	}

	if err := p.publish(ctx, ChannelMarketUpdates, MarketUpdatePayload{
		MarketID: processed.Order.MarketID,
		Reason:   "orderbook",
	}); err != nil {
		return err
	}

	for _, trade := range processed.Trades {
		if err := p.publish(ctx, ChannelTrades, TradePayload{Trade: trade}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, channel Channel, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding %s payload: %v", ErrPublishFailed, channel, err)
	}
	if err := p.transport.Publish(ctx, channel, payload); err != nil {
		log.Error().Err(err).Str("channel", string(channel)).Msg("publish failed")
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return nil
}
