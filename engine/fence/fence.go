// Package fence bounds CPU/GPU divergence to one frame. A Gate owns the frame fence,
// hands out monotonically increasing signal values and blocks the caller until the GPU
// reports a value as completed.
package fence

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

// ErrClosed is returned by WaitFor once the gate has been closed.
var ErrClosed = errors.New("fence: gate closed")

// Gate is the frame fence gate.
type Gate interface {
	// Signal increments the fence value and enqueues a GPU-side signal on q.
	//
	// Parameters:
	//   - q: the queue whose prior work the signal follows
	//
	// Returns:
	//   - uint64: the value the GPU will signal
	//   - error: error enqueueing the signal
	Signal(q gpu.Queue) (uint64, error)

	// WaitFor blocks until the GPU-reported completed value is at least value.
	// There is no timeout; a GPU that never signals blocks forever.
	//
	// Parameters:
	//   - value: the fence value to wait for
	//
	// Returns:
	//   - error: ErrClosed if the gate was closed while waiting
	WaitFor(value uint64) error

	// SignalAndWait signals q and waits for that signal, retiring all previously submitted work.
	//
	// Returns:
	//   - uint64: the value waited for
	//   - error: error from Signal or WaitFor
	SignalAndWait(q gpu.Queue) (uint64, error)

	// CurrentBackBufferIndex returns the surface back-buffer index that is safe to render
	// next. Only meaningful after a wait.
	CurrentBackBufferIndex() int

	// Value returns the last value handed out by Signal.
	Value() uint64

	// Completed returns the GPU-reported completed value.
	Completed() uint64

	// LastWaited returns the highest value a WaitFor call has observed as completed.
	LastWaited() uint64

	// Stats returns cumulative wait statistics.
	Stats() Stats

	// Close releases any blocked waiter with ErrClosed. Safe to call more than once.
	Close()
}

// Stats summarizes fence activity.
type Stats struct {
	Signals uint64
	Waits   uint64
	Blocked uint64
	Waited  time.Duration
}

type gate struct {
	mu      *sync.Mutex
	fence   gpu.Fence
	surface gpu.Surface

	value      uint64
	lastWaited atomic.Uint64
	stats      Stats

	done      chan struct{}
	closeOnce sync.Once
}

var _ Gate = &gate{}

// NewGate creates the frame fence on device. Failure to create the fence is fatal for
// the renderer and is returned to the caller.
//
// Parameters:
//   - device: the device creating the fence
//   - surface: the presentation surface queried for the back-buffer index
//
// Returns:
//   - Gate: the fence gate
//   - error: error if the fence could not be created
func NewGate(device gpu.Device, surface gpu.Surface) (Gate, error) {
	f, err := device.CreateFence(0)
	if err != nil {
		return nil, fmt.Errorf("fence: create frame fence: %w", err)
	}
	return &gate{
		mu:      &sync.Mutex{},
		fence:   f,
		surface: surface,
		done:    make(chan struct{}),
	}, nil
}

func (g *gate) Signal(q gpu.Queue) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	next := g.value + 1
	if err := q.Signal(g.fence, next); err != nil {
		return 0, fmt.Errorf("fence: signal %d: %w", next, err)
	}
	g.value = next
	g.stats.Signals++
	return next, nil
}

func (g *gate) WaitFor(value uint64) error {
	start := time.Now()
	blocked := false

	if g.fence.Completed() < value {
		blocked = true
		select {
		case <-g.fence.Notify(value):
		case <-g.done:
			return ErrClosed
		}
	}

	for {
		prev := g.lastWaited.Load()
		if value <= prev || g.lastWaited.CompareAndSwap(prev, value) {
			break
		}
	}

	g.mu.Lock()
	g.stats.Waits++
	if blocked {
		g.stats.Blocked++
		g.stats.Waited += time.Since(start)
	}
	g.mu.Unlock()
	return nil
}

func (g *gate) SignalAndWait(q gpu.Queue) (uint64, error) {
	v, err := g.Signal(q)
	if err != nil {
		return 0, err
	}
	return v, g.WaitFor(v)
}

func (g *gate) CurrentBackBufferIndex() int {
	if g.surface == nil {
		return 0
	}
	return g.surface.CurrentBackBufferIndex()
}

func (g *gate) Value() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

func (g *gate) Completed() uint64 {
	return g.fence.Completed()
}

func (g *gate) LastWaited() uint64 {
	return g.lastWaited.Load()
}

func (g *gate) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

func (g *gate) Close() {
	g.closeOnce.Do(func() {
		close(g.done)
	})
}
