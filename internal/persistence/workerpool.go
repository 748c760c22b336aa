package persistence

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// taskChanSize mirrors the teacher's internal/worker.go TASK_CHAN_SIZE.
const taskChanSize = 100

type workerFunc func(job Job) error

// workerPool is the teacher's internal/worker.go WorkerPool, adapted from a
// generic `chan any` pool spawning workers in a busy `select default` loop
// into a fixed set of goroutines started once via t.Go, draining typed
// persistence jobs. One pool backs each MemorySink (§4.6).
type workerPool struct {
	n     int
	tasks chan Job
	work  workerFunc
}

func newWorkerPool(size int) *workerPool {
	return &workerPool{tasks: make(chan Job, taskChanSize), n: size}
}

// setup starts n supervised workers under t, each draining the shared task
// channel until t is killed.
func (p *workerPool) setup(t *tomb.Tomb, work workerFunc) {
	p.work = work
	for i := 0; i < p.n; i++ {
		t.Go(func() error { return p.loop(t) })
	}
}

func (p *workerPool) loop(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case job := <-p.tasks:
			if err := p.work(job); err != nil {
				log.Error().Err(err).Msg("persistence worker exiting")
				return err
			}
		}
	}
}
