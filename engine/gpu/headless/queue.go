package headless

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"golang.org/x/sync/errgroup"
)

// Execution describes one batch executed by the simulated GPU timeline.
type Execution struct {
	Sequence int
	Buffers  []string
}

// work is one entry on the GPU timeline: either a batch of buffers or a fence signal.
type work struct {
	buffers []*CommandBuffer
	fence   *Fence
	value   uint64
}

// Queue executes submissions in order on a goroutine standing in for the GPU.
type Queue struct {
	mu       *sync.Mutex
	timeline chan work
	latency  time.Duration
	group    *errgroup.Group
	closed   bool

	logMu    *sync.Mutex
	executed []Execution
	sequence int
}

var _ gpu.Queue = &Queue{}

func newQueue(latency time.Duration, depth int) *Queue {
	q := &Queue{
		mu:       &sync.Mutex{},
		logMu:    &sync.Mutex{},
		timeline: make(chan work, depth),
		latency:  latency,
		group:    &errgroup.Group{},
	}
	q.group.Go(q.run)
	return q
}

// run drains the timeline until it is closed.
func (q *Queue) run() error {
	for w := range q.timeline {
		if w.fence != nil {
			w.fence.Advance(w.value)
			continue
		}
		if q.latency > 0 {
			time.Sleep(q.latency)
		}
		labels := make([]string, 0, len(w.buffers))
		for _, cb := range w.buffers {
			labels = append(labels, cb.Label())
			cb.retire()
		}
		q.logMu.Lock()
		q.sequence++
		q.executed = append(q.executed, Execution{Sequence: q.sequence, Buffers: labels})
		q.logMu.Unlock()
	}
	return nil
}

func (q *Queue) Submit(buffers ...gpu.CommandBuffer) error {
	batch := make([]*CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		cb, ok := b.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("headless: cannot submit foreign command buffer %T", b)
		}
		batch = append(batch, cb)
	}
	for i, cb := range batch {
		if err := cb.markPending(); err != nil {
			for _, prev := range batch[:i] {
				prev.retire()
			}
			return fmt.Errorf("headless: submit %q: %w", cb.Label(), err)
		}
	}
	return q.push(work{buffers: batch})
}

func (q *Queue) Signal(f gpu.Fence, value uint64) error {
	hf, ok := f.(*Fence)
	if !ok {
		return fmt.Errorf("headless: cannot signal foreign fence %T", f)
	}
	return q.push(work{fence: hf, value: value})
}

func (q *Queue) push(w work) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("headless: queue is closed")
	}
	q.timeline <- w
	return nil
}

// Executed returns every batch executed so far, oldest first.
//
// Returns:
//   - []Execution: executed batches
func (q *Queue) Executed() []Execution {
	q.logMu.Lock()
	defer q.logMu.Unlock()

	out := make([]Execution, len(q.executed))
	copy(out, q.executed)
	return out
}

// close stops accepting work and waits for the timeline to drain.
func (q *Queue) close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.timeline)
	q.mu.Unlock()
	return q.group.Wait()
}
