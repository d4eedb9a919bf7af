// Package webgpu implements the gpu contracts on top of wgpu-native through
// github.com/cogentcore/webgpu. It drives the windowed demo.
//
// wgpu has no explicit barriers or fences: barriers are dropped at record time, and
// fences advance on a timeline goroutine that blocks in Device.Poll until the queue
// has drained.
package webgpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logging"
	"github.com/cogentcore/webgpu/wgpu"
)

// vertexStride is the byte size of gpu.Vertex.
const vertexStride = uint64(unsafe.Sizeof(gpu.Vertex{}))

// Device wraps a wgpu device and its single queue.
type Device struct {
	mu       *sync.Mutex
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	wq       *Queue

	surfaceFormat wgpu.TextureFormat
	surface       *Surface

	forceFallbackAdapter bool
	vsync                bool
	backBuffers          int

	linear  *wgpu.Sampler
	nearest *wgpu.Sampler

	// defaults fill bind groups a pass leaves unbound.
	defaults map[gpu.BindingKind]gpu.Resource

	groups  map[groupKey]*wgpu.BindGroup
	buffers []*CommandBuffer
}

type groupKey struct {
	layout   *wgpu.BindGroupLayout
	resource gpu.Resource
}

var _ gpu.Device = &Device{}

// New creates a wgpu instance, a device compatible with the given surface descriptor and the
// configured swap chain. The calling goroutine is locked to its OS thread, as windowing
// systems require.
//
// Parameters:
//   - descriptor: the platform surface descriptor, usually from window.Window.SurfaceDescriptor
//   - width, height: the surface size in pixels
//   - options: functional options for the device
//
// Returns:
//   - *Device: the device
//   - *Surface: the configured surface
//   - error: error if no adapter or device could be obtained
func New(descriptor *wgpu.SurfaceDescriptor, width, height int, options ...DeviceBuilderOption) (*Device, *Surface, error) {
	runtime.LockOSThread()
	d := &Device{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		backBuffers: 2,
		defaults:    make(map[gpu.BindingKind]gpu.Resource),
		groups:      make(map[groupKey]*wgpu.BindGroup),
	}
	for _, opt := range options {
		opt(d)
	}

	surface := d.instance.CreateSurface(descriptor)
	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    surface,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("webgpu: request adapter: %w", err)
	}
	d.adapter = adapter

	// The lighting pass reads six bind groups.
	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 8

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("webgpu: request device: %w", err)
	}
	d.device = device
	d.queue = device.GetQueue()
	d.wq = newQueue(d)

	d.surface = newSurface(d, surface, d.backBuffers)
	d.surface.configure(width, height, d.vsync)
	d.surfaceFormat = d.surface.format

	if err := d.createDefaults(); err != nil {
		return nil, nil, err
	}
	logging.For("webgpu").Info("device ready", "width", width, "height", height, "vsync", d.vsync)
	return d, d.surface, nil
}

func (d *Device) Queue() gpu.Queue {
	return d.wq
}

func (d *Device) CreateCommandBuffer(label string) (gpu.CommandBuffer, error) {
	cb := newCommandBuffer(label, d)

	d.mu.Lock()
	d.buffers = append(d.buffers, cb)
	d.mu.Unlock()

	return cb, nil
}

func (d *Device) CreateFence(initial uint64) (gpu.Fence, error) {
	return newFence(initial), nil
}

func (d *Device) CreateConstantBuffer(label string, size int) (gpu.ConstantBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("webgpu: constant buffer %q has invalid size %d", label, size)
	}
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create constant buffer %q: %w", label, err)
	}
	return &buffer{label: label, kind: gpu.KindConstantBuffer, size: size, buffer: buf, queue: d.queue}, nil
}

func (d *Device) CreateResource(desc gpu.ResourceDesc) (gpu.Resource, error) {
	switch desc.Kind {
	case gpu.KindStorageBuffer:
		if desc.Size <= 0 {
			return nil, fmt.Errorf("webgpu: storage buffer %q has invalid size %d", desc.Label, desc.Size)
		}
		buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: desc.Label,
			Size:  uint64(desc.Size),
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("webgpu: create storage buffer %q: %w", desc.Label, err)
		}
		return &buffer{label: desc.Label, kind: gpu.KindStorageBuffer, size: desc.Size, buffer: buf, queue: d.queue}, nil
	case gpu.KindColorTarget, gpu.KindDepthTarget, gpu.KindTexture:
		return d.createTexture(desc)
	default:
		return nil, fmt.Errorf("webgpu: resource %q has unsupported kind %d", desc.Label, desc.Kind)
	}
}

func (d *Device) createTexture(desc gpu.ResourceDesc) (*texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("webgpu: resource %q has invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	format, err := textureFormat(desc.Format, d.surfaceFormat)
	if err != nil {
		return nil, err
	}
	size := wgpu.Extent3D{
		Width:              uint32(desc.Width),
		Height:             uint32(desc.Height),
		DepthOrArrayLayers: 1,
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         textureUsage(desc.Kind),
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create texture %q: %w", desc.Label, err)
	}
	if desc.Kind == gpu.KindTexture && len(desc.Pixels) > 0 {
		d.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			desc.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(desc.Width) * 4,
				RowsPerImage: uint32(desc.Height),
			},
			&size,
		)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("webgpu: create view %q: %w", desc.Label, err)
	}
	return &texture{label: desc.Label, kind: desc.Kind, format: format, texture: tex, view: view}, nil
}

func (d *Device) CreateMesh(label string, vertices []gpu.Vertex, indices []uint32) (gpu.Mesh, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("webgpu: mesh %q has no indices", label)
	}
	vb, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Vertex Buffer",
		Size:  uint64(len(vertices)) * vertexStride,
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create mesh %q: %w", label, err)
	}
	d.queue.WriteBuffer(vb, 0, vertexBytes(vertices))

	ib, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Index Buffer",
		Size:  uint64(len(indices)) * 4,
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		vb.Release()
		return nil, fmt.Errorf("webgpu: create mesh %q: %w", label, err)
	}
	d.queue.WriteBuffer(ib, 0, indexBytes(indices))

	return &mesh{label: label, vertices: vb, indices: ib, indexCount: uint32(len(indices))}, nil
}

// Close waits for the queue to drain, stops the fence timeline and releases the device
// objects this package created.
//
// Returns:
//   - error: error from the fence timeline
func (d *Device) Close() error {
	err := d.wq.close()

	d.mu.Lock()
	buffers := d.buffers
	d.buffers = nil
	for _, bg := range d.groups {
		bg.Release()
	}
	clear(d.groups)
	d.mu.Unlock()

	for _, cb := range buffers {
		cb.release()
	}
	d.surface.release()
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
	return err
}

// createDefaults builds the samplers and the stand-in resources bound to unused slots.
func (d *Device) createDefaults() error {
	var err error
	d.linear, err = d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Linear Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0.0,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("webgpu: create sampler: %w", err)
	}
	d.nearest, err = d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Nearest Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0.0,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("webgpu: create sampler: %w", err)
	}

	white, err := d.CreateResource(gpu.ResourceDesc{
		Label: "Default Texture", Kind: gpu.KindTexture, Format: gpu.FormatRGBA8Unorm,
		Width: 1, Height: 1, Pixels: []byte{255, 255, 255, 255},
	})
	if err != nil {
		return err
	}
	depth, err := d.CreateResource(gpu.ResourceDesc{
		Label: "Default Depth", Kind: gpu.KindDepthTarget, Format: gpu.FormatDepth32Float,
		Width: 1, Height: 1,
	})
	if err != nil {
		return err
	}
	uniform, err := d.CreateConstantBuffer("Default Constants", rootStride)
	if err != nil {
		return err
	}
	storage, err := d.CreateResource(gpu.ResourceDesc{
		Label: "Default Storage", Kind: gpu.KindStorageBuffer, Size: rootStride,
	})
	if err != nil {
		return err
	}
	d.defaults[gpu.BindTexture] = white
	d.defaults[gpu.BindDepthTexture] = depth
	d.defaults[gpu.BindConstantBuffer] = uniform
	d.defaults[gpu.BindRootConstants] = uniform
	d.defaults[gpu.BindStorageRead] = storage
	d.defaults[gpu.BindStorageReadWrite] = storage
	return nil
}

// bindGroup returns the cached bind group exposing res through layout, creating it on first
// use. A nil res binds the default resource for the slot kind.
func (d *Device) bindGroup(layout *wgpu.BindGroupLayout, kind gpu.BindingKind, res gpu.Resource) (*wgpu.BindGroup, error) {
	if res == nil {
		res = d.defaults[kind]
	}
	key := groupKey{layout: layout, resource: res}

	d.mu.Lock()
	defer d.mu.Unlock()

	if bg, ok := d.groups[key]; ok {
		return bg, nil
	}
	entries, err := d.groupEntries(kind, res)
	if err != nil {
		return nil, err
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   res.Label() + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	d.groups[key] = bg
	return bg, nil
}

func (d *Device) groupEntries(kind gpu.BindingKind, res gpu.Resource) ([]wgpu.BindGroupEntry, error) {
	switch r := res.(type) {
	case *buffer:
		if kind == gpu.BindTexture || kind == gpu.BindDepthTexture {
			return nil, fmt.Errorf("buffer %q bound to a texture slot", r.label)
		}
		return []wgpu.BindGroupEntry{{Binding: 0, Buffer: r.buffer, Offset: 0, Size: wgpu.WholeSize}}, nil
	case *texture:
		if kind != gpu.BindTexture && kind != gpu.BindDepthTexture {
			return nil, fmt.Errorf("texture %q bound to a buffer slot", r.label)
		}
		sampler := d.linear
		if kind == gpu.BindDepthTexture {
			sampler = d.nearest
		}
		return []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: r.view},
			{Binding: 1, Sampler: sampler},
		}, nil
	case *backBuffer:
		return nil, errors.New("back buffers cannot be sampled")
	default:
		return nil, fmt.Errorf("foreign resource %T", res)
	}
}

// renderPassDescriptor builds the attachments of one planned render pass.
func (d *Device) renderPassDescriptor(p *pass) (*wgpu.RenderPassDescriptor, error) {
	desc := &wgpu.RenderPassDescriptor{}
	for i, c := range p.colors {
		view, err := d.attachmentView(c)
		if err != nil {
			return nil, err
		}
		att := wgpu.RenderPassColorAttachment{
			View:    view,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}
		if rgba := p.clearColors[i]; rgba != nil {
			att.LoadOp = wgpu.LoadOpClear
			att.ClearValue = wgpu.Color{
				R: float64(rgba[0]), G: float64(rgba[1]), B: float64(rgba[2]), A: float64(rgba[3]),
			}
		}
		desc.ColorAttachments = append(desc.ColorAttachments, att)
	}
	if p.depth != nil {
		view, err := d.attachmentView(p.depth)
		if err != nil {
			return nil, err
		}
		att := &wgpu.RenderPassDepthStencilAttachment{
			View:         view,
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		}
		if p.clearDepth != nil {
			att.DepthLoadOp = wgpu.LoadOpClear
			att.DepthClearValue = *p.clearDepth
		}
		desc.DepthStencilAttachment = att
	}
	return desc, nil
}

func (d *Device) attachmentView(res gpu.Resource) (*wgpu.TextureView, error) {
	switch r := res.(type) {
	case *texture:
		return r.view, nil
	case *backBuffer:
		return r.surface.acquire()
	default:
		return nil, fmt.Errorf("%q cannot be a render target", res.Label())
	}
}

func vertexBytes(vertices []gpu.Vertex) []byte {
	out := make([]byte, 0, len(vertices)*int(vertexStride))
	for _, v := range vertices {
		for _, f := range v.Position {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
		}
		for _, f := range v.Normal {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
		}
		for _, f := range v.UV {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
		}
	}
	return out
}

func indexBytes(indices []uint32) []byte {
	out := make([]byte, 0, len(indices)*4)
	for _, i := range indices {
		out = binary.LittleEndian.AppendUint32(out, i)
	}
	return out
}
