package gpu

import "sync"

// CounterFence is a Fence implemented as a CPU-side counter. Backends without native fence
// objects advance it from their queue timeline; waiters register a channel per value and
// are released when the counter reaches it.
type CounterFence struct {
	mu        *sync.Mutex
	completed uint64
	waiters   map[uint64]chan struct{}
}

var _ Fence = &CounterFence{}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// NewCounterFence creates a counter starting at initial.
func NewCounterFence(initial uint64) *CounterFence {
	return &CounterFence{
		mu:        &sync.Mutex{},
		completed: initial,
		waiters:   make(map[uint64]chan struct{}),
	}
}

func (f *CounterFence) Completed() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

func (f *CounterFence) Notify(value uint64) <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.completed >= value {
		return closedChan
	}
	ch, ok := f.waiters[value]
	if !ok {
		ch = make(chan struct{})
		f.waiters[value] = ch
	}
	return ch
}

// Advance raises the completed value and releases every waiter at or below it.
// Lower values never move the counter backwards.
//
// Parameters:
//   - value: the value the GPU timeline has reached
func (f *CounterFence) Advance(value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if value <= f.completed {
		return
	}
	f.completed = value
	for v, ch := range f.waiters {
		if v <= value {
			close(ch)
			delete(f.waiters, v)
		}
	}
}
