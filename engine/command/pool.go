// Package command owns the renderer's command buffers: one per dispatcher worker plus one
// each for the clear, shadow and composite passes. Every buffer has a fixed owner and
// cycles reset, record, close and submit once per frame.
package command

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

var (
	// ErrInFlight is returned by Buffer.Reset when the previous submission has not been retired.
	ErrInFlight = errors.New("command: buffer reset before its fence was waited for")

	// ErrOpen is returned by Buffer.Reset when the buffer is already recording.
	ErrOpen = errors.New("command: buffer is already open")

	// ErrNotOpen is returned by Buffer.Close when the buffer is not recording.
	ErrNotOpen = errors.New("command: buffer is not open")

	// ErrNotClosed is returned by Pool.Submit when a buffer in the batch is not closed.
	ErrNotClosed = errors.New("command: buffer is not closed")
)

// Retirement reports fence progress. fence.Gate satisfies it.
type Retirement interface {
	// Value returns the last fence value handed out by a signal.
	Value() uint64

	// LastWaited returns the highest fence value the CPU has waited for.
	LastWaited() uint64
}

// Pool is the fixed set of owned command buffers.
type Pool interface {
	// Clear returns the clear-pass buffer.
	Clear() *Buffer

	// Shadow returns the shadow-pass buffer.
	Shadow() *Buffer

	// Composite returns the AO, lighting and tone-map buffer.
	Composite() *Buffer

	// Worker returns the buffer of worker i.
	Worker(i int) *Buffer

	// Workers returns every worker buffer in worker order.
	Workers() []*Buffer

	// Buffer returns the buffer of the given owner, or nil.
	Buffer(owner Owner) *Buffer

	// Len returns the total number of buffers (workers + 3).
	Len() int

	// Submit queues a batch of closed buffers in order. Each buffer is retired by the next
	// fence value the Retirement will hand out.
	//
	// Parameters:
	//   - q: the queue to submit to
	//   - buffers: the batch
	//
	// Returns:
	//   - error: ErrNotClosed, or the queue's submission error
	Submit(q gpu.Queue, buffers ...*Buffer) error
}

type pool struct {
	mu      *sync.Mutex
	retire  Retirement
	onReset func(ResetEvent)

	clear     *Buffer
	shadow    *Buffer
	composite *Buffer
	workers   []*Buffer
}

var _ Pool = &pool{}

// NewPool creates workers+3 command buffers on device.
//
// Parameters:
//   - device: the device creating the buffers
//   - workers: number of worker buffers (at least 1)
//   - retire: fence progress used to validate resets
//   - options: functional options for the pool
//
// Returns:
//   - Pool: the pool
//   - error: error if any buffer could not be created
func NewPool(device gpu.Device, workers int, retire Retirement, options ...PoolBuilderOption) (Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("command: pool needs at least one worker buffer, got %d", workers)
	}
	if retire == nil {
		return nil, errors.New("command: pool needs a fence retirement source")
	}
	p := &pool{
		mu:      &sync.Mutex{},
		retire:  retire,
		workers: make([]*Buffer, workers),
	}
	for _, opt := range options {
		opt(p)
	}

	var err error
	if p.clear, err = p.newBuffer(device, Owner{Kind: OwnerClear}); err != nil {
		return nil, err
	}
	if p.shadow, err = p.newBuffer(device, Owner{Kind: OwnerShadow}); err != nil {
		return nil, err
	}
	if p.composite, err = p.newBuffer(device, Owner{Kind: OwnerComposite}); err != nil {
		return nil, err
	}
	for i := range p.workers {
		if p.workers[i], err = p.newBuffer(device, WorkerOwner(i)); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *pool) newBuffer(device gpu.Device, owner Owner) (*Buffer, error) {
	cb, err := device.CreateCommandBuffer(owner.String())
	if err != nil {
		return nil, fmt.Errorf("command: create %s buffer: %w", owner, err)
	}
	return &Buffer{
		mu:    &sync.Mutex{},
		owner: owner,
		cb:    cb,
		pool:  p,
		state: StateClosed,
	}, nil
}

func (p *pool) Clear() *Buffer     { return p.clear }
func (p *pool) Shadow() *Buffer    { return p.shadow }
func (p *pool) Composite() *Buffer { return p.composite }

func (p *pool) Worker(i int) *Buffer {
	if i < 0 || i >= len(p.workers) {
		return nil
	}
	return p.workers[i]
}

func (p *pool) Workers() []*Buffer {
	out := make([]*Buffer, len(p.workers))
	copy(out, p.workers)
	return out
}

func (p *pool) Buffer(owner Owner) *Buffer {
	switch owner.Kind {
	case OwnerClear:
		return p.clear
	case OwnerShadow:
		return p.shadow
	case OwnerComposite:
		return p.composite
	case OwnerWorker:
		return p.Worker(owner.Worker)
	default:
		return nil
	}
}

func (p *pool) Len() int {
	return len(p.workers) + 3
}

func (p *pool) Submit(q gpu.Queue, buffers ...*Buffer) error {
	if len(buffers) == 0 {
		return nil
	}

	// Submissions from a single goroutine; the lock keeps marks and queue order consistent.
	p.mu.Lock()
	defer p.mu.Unlock()

	retireAt := p.retire.Value() + 1
	cbs := make([]gpu.CommandBuffer, 0, len(buffers))
	for i, b := range buffers {
		if err := b.markSubmitted(retireAt); err != nil {
			for _, prev := range buffers[:i] {
				prev.unmark()
			}
			return err
		}
		cbs = append(cbs, b.cb)
	}
	if err := q.Submit(cbs...); err != nil {
		for _, b := range buffers {
			b.unmark()
		}
		return fmt.Errorf("command: submit batch of %d: %w", len(buffers), err)
	}
	return nil
}
