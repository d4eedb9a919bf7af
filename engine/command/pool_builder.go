package command

// PoolBuilderOption is a functional option for configuring a Pool.
type PoolBuilderOption func(*pool)

// WithResetHook registers a function called before every buffer reset, from the goroutine
// performing the reset.
//
// Parameters:
//   - hook: receives the owner and fence progress at reset time
//
// Returns:
//   - PoolBuilderOption: option function to apply
func WithResetHook(hook func(ResetEvent)) PoolBuilderOption {
	return func(p *pool) {
		p.onReset = hook
	}
}
