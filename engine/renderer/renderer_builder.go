package renderer

import "github.com/Carmen-Shannon/oxy-deferred/engine/command"

// RendererBuilderOption is a functional option for configuring a Renderer.
// Use the With* functions to create options.
type RendererBuilderOption func(*renderer)

// WithResetHook observes every command buffer reset, e.g. for profiling.
//
// Parameters:
//   - hook: called after each successful reset
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithResetHook(hook func(command.ResetEvent)) RendererBuilderOption {
	return func(r *renderer) {
		r.onReset = hook
	}
}

// WithClaimHook observes every object index a G-buffer worker claims. The hook runs on the
// worker goroutine.
//
// Parameters:
//   - hook: called with the worker index and the claimed object index
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithClaimHook(hook func(worker, index int)) RendererBuilderOption {
	return func(r *renderer) {
		r.onClaim = hook
	}
}

// WithComputeWorkers sets the number of goroutines the scene uses for setup and constant
// flushes. 0 keeps the scene default.
func WithComputeWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.computeWorkers = max(n, 0)
	}
}
