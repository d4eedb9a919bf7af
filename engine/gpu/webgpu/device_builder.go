package webgpu

// DeviceBuilderOption is a functional option for configuring a wgpu Device.
type DeviceBuilderOption func(*Device)

// WithForceFallbackAdapter requests the software fallback adapter.
func WithForceFallbackAdapter(enabled bool) DeviceBuilderOption {
	return func(d *Device) {
		d.forceFallbackAdapter = enabled
	}
}

// WithVSync selects FIFO presentation when enabled, immediate presentation otherwise.
//
// Parameters:
//   - enabled: true to wait for vertical blank on present
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithVSync(enabled bool) DeviceBuilderOption {
	return func(d *Device) {
		d.vsync = enabled
	}
}

// WithBackBuffers sets the number of logical back buffers the surface rotates through.
// Values below 2 are raised to 2.
func WithBackBuffers(n int) DeviceBuilderOption {
	return func(d *Device) {
		d.backBuffers = max(n, 2)
	}
}
