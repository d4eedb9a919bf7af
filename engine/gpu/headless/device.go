// Package headless is an in-memory GPU backend. Command buffers record into slices, a
// goroutine plays the GPU timeline in submission order and fences advance when that
// timeline reaches them. It drives the benchmark command and every test that needs
// observable command streams.
package headless

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

// Device creates headless GPU objects.
type Device struct {
	mu      *sync.Mutex
	queue   *Queue
	latency time.Duration
	depth   int

	buffers   []*CommandBuffer
	pipelines map[string]*pipeline

	failBuffers bool
	failFences  bool
}

var _ gpu.Device = &Device{}

// NewDevice creates a headless device and starts its queue timeline.
//
// Parameters:
//   - options: functional options for the device
//
// Returns:
//   - *Device: the device; Close it to stop the timeline
func NewDevice(options ...DeviceBuilderOption) *Device {
	d := &Device{
		mu:        &sync.Mutex{},
		depth:     64,
		pipelines: make(map[string]*pipeline),
	}
	for _, opt := range options {
		opt(d)
	}
	d.queue = newQueue(d.latency, d.depth)
	return d
}

func (d *Device) Queue() gpu.Queue {
	return d.queue
}

// HeadlessQueue returns the concrete queue for inspection.
func (d *Device) HeadlessQueue() *Queue {
	return d.queue
}

func (d *Device) CreateCommandBuffer(label string) (gpu.CommandBuffer, error) {
	if d.failBuffers {
		return nil, errors.New("headless: command buffer creation disabled")
	}
	cb := newCommandBuffer(label)

	d.mu.Lock()
	d.buffers = append(d.buffers, cb)
	d.mu.Unlock()

	return cb, nil
}

func (d *Device) CreateFence(initial uint64) (gpu.Fence, error) {
	if d.failFences {
		return nil, errors.New("headless: fence creation disabled")
	}
	return newFence(initial), nil
}

func (d *Device) CreateConstantBuffer(label string, size int) (gpu.ConstantBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("headless: constant buffer %q has invalid size %d", label, size)
	}
	return &constantBuffer{
		mu:    &sync.Mutex{},
		label: label,
		data:  make([]byte, size),
	}, nil
}

func (d *Device) CreateResource(desc gpu.ResourceDesc) (gpu.Resource, error) {
	switch desc.Kind {
	case gpu.KindColorTarget, gpu.KindDepthTarget, gpu.KindTexture:
		if desc.Width <= 0 || desc.Height <= 0 {
			return nil, fmt.Errorf("headless: resource %q has invalid size %dx%d", desc.Label, desc.Width, desc.Height)
		}
	case gpu.KindStorageBuffer:
		if desc.Size <= 0 {
			return nil, fmt.Errorf("headless: storage buffer %q has invalid size %d", desc.Label, desc.Size)
		}
	default:
		return nil, fmt.Errorf("headless: resource %q has unsupported kind %d", desc.Label, desc.Kind)
	}
	return &resource{label: desc.Label, kind: desc.Kind, desc: desc}, nil
}

func (d *Device) CreateMesh(label string, vertices []gpu.Vertex, indices []uint32) (gpu.Mesh, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("headless: mesh %q has no indices", label)
	}
	return &mesh{label: label, vertices: len(vertices), indexCount: uint32(len(indices))}, nil
}

func (d *Device) CreatePipeline(desc gpu.PipelineDesc) (gpu.Pipeline, error) {
	if desc.Name == "" {
		return nil, errors.New("headless: pipeline has no name")
	}
	p := &pipeline{desc: desc}

	d.mu.Lock()
	d.pipelines[desc.Name] = p
	d.mu.Unlock()

	return p, nil
}

// CommandBuffers returns every command buffer created by the device, in creation order.
//
// Returns:
//   - []*CommandBuffer: created buffers
func (d *Device) CommandBuffers() []*CommandBuffer {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]*CommandBuffer, len(d.buffers))
	copy(out, d.buffers)
	return out
}

// CommandBuffer returns the buffer with the given label, or nil.
func (d *Device) CommandBuffer(label string) *CommandBuffer {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, cb := range d.buffers {
		if cb.label == label {
			return cb
		}
	}
	return nil
}

// Pipeline returns the description of a created pipeline.
func (d *Device) Pipeline(name string) (gpu.PipelineDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pipelines[name]
	if !ok {
		return gpu.PipelineDesc{}, false
	}
	return p.desc, true
}

// Close drains the queue timeline and stops it.
//
// Returns:
//   - error: error from the timeline goroutine
func (d *Device) Close() error {
	return d.queue.close()
}
