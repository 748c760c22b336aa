// Command marketengine is a thin demo harness wiring together the engine
// package over an in-memory transport, grounded on the teacher's cmd/main.go
// signal-handling shape (signal.NotifyContext over SIGINT/SIGTERM) but
// submitting a handful of orders against one market instead of listening
// for TCP connections, since this module's external surface is the
// internal/engine API, not a bespoke wire protocol.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"marketcore/internal/config"
	"marketcore/internal/decimal"
	"marketcore/internal/engine"
	"marketcore/internal/events"
	"marketcore/internal/orderbook"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	eng := engine.New(events.NewMemoryTransport(), config.Default())
	defer eng.Shutdown()

	marketID := uuid.NewString()
	price := decimal.MustNewFromString("0.55")

	submit := func(side orderbook.Side, qty string, userID string) {
		ch, err := eng.SubmitOrder(ctx, orderbook.OrderInput{
			MarketID: marketID,
			Side:     side,
			Type:     orderbook.Limit,
			Price:    &price,
			Quantity: decimal.MustNewFromString(qty),
			UserID:   userID,
		})
		if err != nil {
			log.Error().Err(err).Msg("order rejected")
			return
		}
		res := <-ch
		if res.Err != nil {
			log.Error().Err(res.Err).Msg("order failed")
			return
		}
		log.Info().Int("trades", len(res.Trades)).Msg("order processed")
	}

	submit(orderbook.Ask, "100", "maker")
	submit(orderbook.Bid, "40", "taker")

	if snap, ok := eng.Snapshot(marketID, 0); ok {
		log.Info().
			Interface("bestBid", snap.BestBid).
			Interface("bestAsk", snap.BestAsk).
			Msg("final book state")
	}
}
