// Package persistence implements the fire-and-forget handoff described in
// §4.6: after publishing, a processed order and its trades are enqueued to
// a named background work queue so a durable worker (out of scope per §1 —
// the database ORM layer is an external collaborator) can batch-insert the
// trades with duplicate-id suppression.
//
// Grounded on the teacher's internal/worker.go WorkerPool + gopkg.in/tomb.v2
// supervision shape, repurposed from handling arbitrary TCP connection
// tasks into draining persistence jobs.
package persistence

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"marketcore/internal/orderbook"
)

// QueueName is the named background work queue from §4.6/§6.
const QueueName = "matching-engine-trades"

// DefaultRetentionLimit mirrors the "removeOnComplete retention ≈ 1000" job
// retention policy from §6, used when a MemorySink is not given an
// explicit limit via internal/config.
const DefaultRetentionLimit = 1000

// ErrQueueFull is returned by Enqueue when the background worker cannot
// keep up; per §4.6/§7 this is logged and never surfaces to the caller.
var ErrQueueFull = errors.New("persistence: job queue is full")

// Job is the unit of persistence work: one processed order and the trades
// it produced (§6: "jobs shape { trades: ExecutedTrade[], order:
// ProcessedOrderHeader }").
type Job struct {
	Order  orderbook.Order
	Trades []orderbook.ExecutedTrade
}

// Sink is the persistence boundary used by internal/matching. The real
// database-backed worker lives outside this module's scope; MemorySink is
// the in-process stand-in used by tests and the demo harness.
type Sink interface {
	Enqueue(ctx context.Context, job Job) error
}

// MemorySink is a bounded in-memory job log: a drop-in Sink that retains
// roughly the last retentionLimit jobs and suppresses duplicate trade ids,
// standing in for the out-of-scope durable worker.
type MemorySink struct {
	pool *workerPool

	retentionLimit int

	mu       sync.Mutex
	retained []Job
	seen     map[string]struct{}
}

// NewMemorySink builds a MemorySink retaining at most retentionLimit jobs
// and starts its single-worker pool under t, so the whole engine can be
// torn down with one Tomb.Kill.
func NewMemorySink(t *tomb.Tomb, retentionLimit int) *MemorySink {
	s := &MemorySink{
		pool:           newWorkerPool(1),
		retentionLimit: retentionLimit,
		seen:           make(map[string]struct{}),
	}
	log.Info().Str("queue", QueueName).Msg("persistence worker starting")
	s.pool.setup(t, func(job Job) error {
		s.store(job)
		return nil
	})
	return s
}

// Enqueue implements Sink. It never blocks: a full queue fails fast so the
// matching path is never slowed by persistence (§4.6).
func (s *MemorySink) Enqueue(_ context.Context, job Job) error {
	select {
	case s.pool.tasks <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *MemorySink) store(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var fresh []orderbook.ExecutedTrade
	for _, trade := range job.Trades {
		if _, dup := s.seen[trade.ID]; dup {
			continue
		}
		s.seen[trade.ID] = struct{}{}
		fresh = append(fresh, trade)
	}
	job.Trades = fresh

	s.retained = append(s.retained, job)
	if len(s.retained) > s.retentionLimit {
		evicted := s.retained[:len(s.retained)-s.retentionLimit]
		for _, e := range evicted {
			for _, trade := range e.Trades {
				delete(s.seen, trade.ID)
			}
		}
		s.retained = s.retained[len(s.retained)-s.retentionLimit:]
	}
}

// Retained returns a snapshot of the currently retained jobs, for tests and
// introspection. The returned slice must not be mutated.
func (s *MemorySink) Retained() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, len(s.retained))
	copy(out, s.retained)
	return out
}
