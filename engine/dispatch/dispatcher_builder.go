package dispatch

// DispatcherBuilderOption is a functional option for configuring a Dispatcher.
type DispatcherBuilderOption func(*dispatcher)

// WithThreads selects threaded recording (the default) or synchronous recording on the
// goroutine calling Dispatch. Both modes claim objects through the same cursor logic.
//
// Parameters:
//   - enabled: true to run one worker goroutine per buffer
//
// Returns:
//   - DispatcherBuilderOption: option function to apply
func WithThreads(enabled bool) DispatcherBuilderOption {
	return func(d *dispatcher) {
		d.threaded = enabled
	}
}

// WithClaimHook registers a function called for every successful claim, from the claiming
// worker's goroutine.
//
// Parameters:
//   - hook: receives the worker and the claimed object index
//
// Returns:
//   - DispatcherBuilderOption: option function to apply
func WithClaimHook(hook func(worker, index int)) DispatcherBuilderOption {
	return func(d *dispatcher) {
		d.onClaim = hook
	}
}
