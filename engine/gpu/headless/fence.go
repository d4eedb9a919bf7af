package headless

import "github.com/Carmen-Shannon/oxy-deferred/engine/gpu"

// Fence is a counter fence advanced by the headless queue timeline.
type Fence struct {
	*gpu.CounterFence
}

var _ gpu.Fence = &Fence{}

func newFence(initial uint64) *Fence {
	return &Fence{CounterFence: gpu.NewCounterFence(initial)}
}
