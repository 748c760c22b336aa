// Package matching implements the per-book order queue from §4.4: the
// critical concurrency primitive that guarantees at most one processOrder
// call in flight per (marketId, outcomeIndex) at a time, processed strictly
// in submission order, while independent books proceed fully in parallel.
//
// Grounded on the teacher's internal/worker.go WorkerPool pattern
// (gopkg.in/tomb.v2-supervised goroutines draining a task channel), but
// reshaped from a fixed-size pool of interchangeable workers into exactly
// one dedicated goroutine per book key, lazily started on first submission
// and running only while its queue is non-empty (§9: "pin each
// (marketId, outcomeIndex) to a single worker").
package matching

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"

	"marketcore/internal/orderbook"
	"marketcore/internal/persistence"
)

// Publisher is the subset of internal/events.Publisher this package needs,
// kept as a narrow interface so the queue is testable without a real
// transport.
type Publisher interface {
	PublishProcessedOrder(ctx context.Context, processed orderbook.ProcessedOrder) error
}

// Sink is the subset of internal/persistence.Sink this package needs.
type Sink interface {
	Enqueue(ctx context.Context, job persistence.Job) error
}

// Result is what a caller's future resolves to: either the trades and
// snapshot produced by a successful processOrder call, or an error.
type Result struct {
	Trades   []orderbook.ExecutedTrade
	Snapshot orderbook.Snapshot
	Err      error
}

type job struct {
	ctx    context.Context
	input  orderbook.OrderInput
	result chan Result
}

// Queue is the FIFO serializer for exactly one (marketId, outcomeIndex).
type Queue struct {
	key       string
	book      *orderbook.Book
	publisher Publisher
	sink      Sink

	mu         sync.Mutex
	pending    []*job
	processing bool
}

// New builds a Queue bound to one book. It starts no goroutine until the
// first Submit (§3: "queues are created on first submission").
func New(key string, book *orderbook.Book, publisher Publisher, sink Sink) *Queue {
	return &Queue{key: key, book: book, publisher: publisher, sink: sink}
}

// Submit appends input to this queue and, if no drain is currently
// running, starts one. It never blocks on processing; the returned channel
// is resolved once this order's trades have been published and enqueued
// for persistence (§4.4).
func (q *Queue) Submit(ctx context.Context, input orderbook.OrderInput) <-chan Result {
	resultCh := make(chan Result, 1)
	j := &job{ctx: ctx, input: input, result: resultCh}

	q.mu.Lock()
	q.pending = append(q.pending, j)
	startDrain := !q.processing
	if startDrain {
		q.processing = true
	}
	q.mu.Unlock()

	if startDrain {
		go q.drain()
	}
	return resultCh
}

// drain is the per-queue drain loop (§4.4's "drain protocol"). At most one
// drain goroutine runs per Queue at a time: a new Submit only starts one
// when none is already processing.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.processing = false
			q.mu.Unlock()
			return
		}
		head := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		head.result <- q.processOne(head.ctx, head.input)
		close(head.result)

		// Cooperative deferral between orders on the same queue so a hot
		// book cannot starve other queues or the runtime's I/O pollers
		// (§4.4, §5's "explicit yield between successive orders").
		runtime.Gosched()
	}
}

func (q *Queue) processOne(ctx context.Context, input orderbook.OrderInput) Result {
	processed, err := q.book.ProcessOrder(input)
	if err != nil {
		if errors.Is(err, orderbook.ErrInvariant) {
			// §7: "Invariant (fatal) ... Abort process; indicates a bug."
			log.Fatal().Str("queueKey", q.key).Err(err).Msg("order book invariant violated")
		}
		return Result{Err: err}
	}

	if err := q.publisher.PublishProcessedOrder(ctx, processed); err != nil {
		// §4.5/§9: the book mutation already happened and is not rolled
		// back; only the caller's future sees the failure.
		return Result{Trades: processed.Trades, Snapshot: processed.Snapshot, Err: err}
	}

	persistErr := q.sink.Enqueue(ctx, persistence.Job{Order: processed.Order, Trades: processed.Trades})
	if persistErr != nil {
		// §4.6/§7: logged, never surfaced to the caller.
		log.Error().Str("queueKey", q.key).Err(persistErr).Msg("persistence enqueue failed")
	}

	return Result{Trades: processed.Trades, Snapshot: processed.Snapshot}
}
