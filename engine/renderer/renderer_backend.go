package renderer

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/headless"
)

// RendererBackendType identifies the GPU backend implementation behind a Backend.
type RendererBackendType int

const (
	// BackendTypeWGPU is the WebGPU backend presenting to a window.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeHeadless is the in-memory recording backend.
	BackendTypeHeadless
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeHeadless:
		return "headless"
	default:
		return "unknown"
	}
}

// Backend is a device together with the surface it presents to.
type Backend struct {
	Type    RendererBackendType
	Device  gpu.Device
	Surface gpu.Surface

	// Close releases the device once the renderer has retired its last frame. May be nil.
	Close func() error
}

// NewHeadlessBackend creates a recording backend with a surface of the configured size.
//
// Parameters:
//   - opts: renderer options; Width and Height size the surface
//   - options: headless device options, e.g. simulated latency
//
// Returns:
//   - Backend: the headless backend
func NewHeadlessBackend(opts config.Options, options ...headless.DeviceBuilderOption) Backend {
	device := headless.NewDevice(options...)
	return Backend{
		Type:    BackendTypeHeadless,
		Device:  device,
		Surface: headless.NewSurface(opts.Width, opts.Height, 2),
		Close:   device.Close,
	}
}
