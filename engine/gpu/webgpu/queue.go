package webgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/sync/errgroup"
)

// signal is a fence signal waiting on the timeline together with the buffers submitted
// before it.
type signal struct {
	fence   *Fence
	value   uint64
	buffers []*CommandBuffer
}

// Queue submits encoded buffers to the wgpu queue. Fence signals are played back on a
// timeline goroutine that polls the device until the queue drains, then retires the
// buffers submitted before the signal and advances the fence.
type Queue struct {
	mu       *sync.Mutex
	device   *Device
	pending  []*CommandBuffer
	timeline chan signal
	group    *errgroup.Group
	closed   bool
}

var _ gpu.Queue = &Queue{}

func newQueue(d *Device) *Queue {
	q := &Queue{
		mu:       &sync.Mutex{},
		device:   d,
		timeline: make(chan signal, 16),
		group:    &errgroup.Group{},
	}
	q.group.Go(q.run)
	return q
}

func (q *Queue) run() error {
	for s := range q.timeline {
		q.device.device.Poll(true, nil)
		for _, cb := range s.buffers {
			cb.retire()
		}
		s.fence.Advance(s.value)
	}
	return nil
}

func (q *Queue) Submit(buffers ...gpu.CommandBuffer) error {
	batch := make([]*CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		cb, ok := b.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("webgpu: cannot submit foreign command buffer %T", b)
		}
		batch = append(batch, cb)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return errors.New("webgpu: queue is closed")
	}
	finished := make([]*wgpu.CommandBuffer, 0, len(batch))
	for i, cb := range batch {
		f, err := cb.markPending()
		if err != nil {
			// Roll back the buffers already taken so they can be reset.
			for _, prev := range batch[:i] {
				prev.retire()
			}
			for _, f := range finished {
				f.Release()
			}
			return fmt.Errorf("webgpu: submit %s: %w", cb.Label(), err)
		}
		finished = append(finished, f)
	}
	q.device.queue.Submit(finished...)
	for _, f := range finished {
		f.Release()
	}
	q.pending = append(q.pending, batch...)
	return nil
}

func (q *Queue) Signal(f gpu.Fence, value uint64) error {
	fence, ok := f.(*Fence)
	if !ok {
		return fmt.Errorf("webgpu: cannot signal foreign fence %T", f)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return errors.New("webgpu: queue is closed")
	}
	q.timeline <- signal{fence: fence, value: value, buffers: q.pending}
	q.pending = nil
	return nil
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

// Fence is a counter fence advanced by the queue timeline.
type Fence struct {
	*gpu.CounterFence
}

var _ gpu.Fence = &Fence{}

func newFence(initial uint64) *Fence {
	return &Fence{CounterFence: gpu.NewCounterFence(initial)}
}
