package headless

import "time"

// DeviceBuilderOption is a functional option for configuring a headless Device.
type DeviceBuilderOption func(*Device)

// WithLatency makes the simulated GPU spend the given time on every submitted batch.
//
// Parameters:
//   - latency: execution time per batch
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithLatency(latency time.Duration) DeviceBuilderOption {
	return func(d *Device) {
		d.latency = latency
	}
}

// WithQueueDepth sets how many submissions may wait on the timeline before Submit blocks.
//
// Parameters:
//   - depth: timeline capacity (values below 1 are raised to 1)
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithQueueDepth(depth int) DeviceBuilderOption {
	return func(d *Device) {
		d.depth = max(depth, 1)
	}
}

// WithFailingCommandBuffers makes CreateCommandBuffer fail, for exercising setup errors.
func WithFailingCommandBuffers() DeviceBuilderOption {
	return func(d *Device) {
		d.failBuffers = true
	}
}

// WithFailingFences makes CreateFence fail, for exercising setup errors.
func WithFailingFences() DeviceBuilderOption {
	return func(d *Device) {
		d.failFences = true
	}
}
