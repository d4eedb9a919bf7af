package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

type bufferState int

const (
	bufferClosed bufferState = iota
	bufferOpen
	bufferPending
)

// rootStride is the spacing of root-constant blocks inside a command buffer's root-constant
// buffer, the minimum uniform buffer offset alignment wgpu guarantees.
const rootStride = 256

// rootSize is the size of one RootConstants block.
const rootSize = 16

// CommandBuffer records calls in memory and encodes them into a wgpu command buffer on
// Close, on the goroutine that recorded them. One recording may become several render and
// compute passes.
type CommandBuffer struct {
	mu     *sync.Mutex
	label  string
	device *Device
	state  bufferState
	err    error

	commands []command
	finished *wgpu.CommandBuffer

	// roots holds this buffer's root constants; it is rewritten only after the buffer retires.
	roots     *wgpu.Buffer
	rootCap   int
	rootCache map[rootKey]*wgpu.BindGroup
}

type rootKey struct {
	layout *wgpu.BindGroupLayout
	offset uint64
}

var _ gpu.CommandBuffer = &CommandBuffer{}

func newCommandBuffer(label string, device *Device) *CommandBuffer {
	return &CommandBuffer{
		mu:        &sync.Mutex{},
		label:     label,
		device:    device,
		state:     bufferClosed,
		rootCache: make(map[rootKey]*wgpu.BindGroup),
	}
}

func (c *CommandBuffer) Label() string { return c.label }

func (c *CommandBuffer) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == bufferPending {
		return gpu.ErrInFlight
	}
	if c.finished != nil {
		c.finished.Release()
		c.finished = nil
	}
	c.state = bufferOpen
	c.err = nil
	c.commands = c.commands[:0]
	return nil
}

func (c *CommandBuffer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != bufferOpen {
		return gpu.ErrNotRecording
	}
	c.state = bufferClosed
	if c.err != nil {
		return c.err
	}
	finished, err := c.encode()
	if err != nil {
		c.err = fmt.Errorf("webgpu: encode %s: %w", c.label, err)
		return c.err
	}
	c.finished = finished
	return nil
}

func (c *CommandBuffer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *CommandBuffer) record(cmd command) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != bufferOpen {
		if c.err == nil {
			c.err = gpu.ErrNotRecording
		}
		return
	}
	c.commands = append(c.commands, cmd)
}

func (c *CommandBuffer) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *CommandBuffer) ResourceBarrier(barriers ...gpu.Barrier) {}

func (c *CommandBuffer) SetRenderTargets(colors []gpu.Resource, depth gpu.Resource) {
	c.record(command{op: opSetRenderTargets, colors: append([]gpu.Resource(nil), colors...), depth: depth})
}

func (c *CommandBuffer) ClearRenderTarget(target gpu.Resource, rgba [4]float32) {
	c.record(command{op: opClearRenderTarget, resource: target, rgba: rgba})
}

func (c *CommandBuffer) ClearDepth(target gpu.Resource, depth float32) {
	c.record(command{op: opClearDepth, resource: target, value: depth})
}

func (c *CommandBuffer) SetPipeline(p gpu.Pipeline) {
	wp, ok := p.(*pipeline)
	if !ok {
		c.fail(fmt.Errorf("webgpu: foreign pipeline %T", p))
		return
	}
	c.record(command{op: opSetPipeline, pipeline: wp})
}

func (c *CommandBuffer) SetConstantBuffer(slot uint32, buf gpu.ConstantBuffer) {
	c.record(command{op: opSetConstantBuffer, slot: slot, resource: buf})
}

func (c *CommandBuffer) SetShaderResource(slot uint32, res gpu.Resource) {
	c.record(command{op: opSetShaderResource, slot: slot, resource: res})
}

// SetRootConstants keeps at most four values, the size of the RootConstants block.
func (c *CommandBuffer) SetRootConstants(slot uint32, values ...float32) {
	cmd := command{op: opSetRootConstants, slot: slot}
	copy(cmd.values[:], values)
	c.record(cmd)
}

func (c *CommandBuffer) DrawIndexed(m gpu.Mesh, instanceCount uint32) {
	wm, ok := m.(*mesh)
	if !ok {
		c.fail(fmt.Errorf("webgpu: foreign mesh %T", m))
		return
	}
	c.record(command{op: opDrawIndexed, mesh: wm, counts: [3]uint32{wm.indexCount, instanceCount}})
}

func (c *CommandBuffer) Draw(vertexCount, instanceCount uint32) {
	c.record(command{op: opDraw, counts: [3]uint32{vertexCount, instanceCount}})
}

func (c *CommandBuffer) Dispatch(x, y, z uint32) {
	c.record(command{op: opDispatch, counts: [3]uint32{x, y, z}})
}

// encode turns the recorded commands into a finished wgpu command buffer. Every bind group
// is resolved before the encoder opens so a failure never leaves a pass half-recorded.
func (c *CommandBuffer) encode() (*wgpu.CommandBuffer, error) {
	p, err := planPasses(c.commands)
	if err != nil {
		return nil, err
	}
	if err := c.uploadRoots(p.roots); err != nil {
		return nil, err
	}

	groups := make([][][]*wgpu.BindGroup, len(p.passes))
	for i, ps := range p.passes {
		groups[i] = make([][]*wgpu.BindGroup, len(ps.calls))
		for j, cl := range ps.calls {
			bgs, err := c.bindGroups(cl)
			if err != nil {
				return nil, err
			}
			groups[i][j] = bgs
		}
	}
	descs := make([]*wgpu.RenderPassDescriptor, len(p.passes))
	for i, ps := range p.passes {
		if ps.kind != passRender {
			continue
		}
		desc, err := c.device.renderPassDescriptor(ps)
		if err != nil {
			return nil, err
		}
		descs[i] = desc
	}

	encoder, err := c.device.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Release()

	for i, ps := range p.passes {
		switch ps.kind {
		case passRender:
			rp := encoder.BeginRenderPass(descs[i])
			for j, cl := range ps.calls {
				rp.SetPipeline(cl.pipeline.render)
				for g, bg := range groups[i][j] {
					rp.SetBindGroup(uint32(g), bg, nil)
				}
				if cl.mesh != nil {
					rp.SetVertexBuffer(0, cl.mesh.vertices, 0, wgpu.WholeSize)
					rp.SetIndexBuffer(cl.mesh.indices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
					rp.DrawIndexed(cl.mesh.indexCount, cl.instances, 0, 0, 0)
				} else {
					rp.Draw(cl.vertices, cl.instances, 0, 0)
				}
			}
			rp.End()
		case passCompute:
			cp := encoder.BeginComputePass(nil)
			for j, cl := range ps.calls {
				cp.SetPipeline(cl.pipeline.compute)
				for g, bg := range groups[i][j] {
					cp.SetBindGroup(uint32(g), bg, nil)
				}
				cp.DispatchWorkgroups(cl.groups[0], cl.groups[1], cl.groups[2])
			}
			cp.End()
		}
	}
	return encoder.Finish(nil)
}

// uploadRoots writes every root-constant block of the recording into the buffer's own
// root-constant buffer, growing it when needed.
func (c *CommandBuffer) uploadRoots(roots [][4]float32) error {
	if len(roots) == 0 {
		return nil
	}
	if len(roots) > c.rootCap {
		size := max(c.rootCap*2, len(roots), 64)
		buf, err := c.device.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: c.label + " Root Constants",
			Size:  uint64(size * rootStride),
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		if c.roots != nil {
			c.roots.Release()
		}
		c.roots, c.rootCap = buf, size
		for _, bg := range c.rootCache {
			bg.Release()
		}
		clear(c.rootCache)
	}
	data := make([]byte, len(roots)*rootStride)
	for i, r := range roots {
		for k, v := range r {
			binary.LittleEndian.PutUint32(data[i*rootStride+k*4:], math.Float32bits(v))
		}
	}
	c.device.queue.WriteBuffer(c.roots, 0, data)
	return nil
}

// bindGroups resolves one bind group per slot of the call's pipeline.
func (c *CommandBuffer) bindGroups(cl call) ([]*wgpu.BindGroup, error) {
	out := make([]*wgpu.BindGroup, len(cl.bindings))
	for i, b := range cl.bindings {
		layout := cl.pipeline.layouts[i]
		if b.rooted {
			bg, err := c.rootBindGroup(layout, uint64(b.root*rootStride))
			if err != nil {
				return nil, err
			}
			out[i] = bg
			continue
		}
		bg, err := c.device.bindGroup(layout, cl.pipeline.desc.Bindings[i], b.resource)
		if err != nil {
			return nil, fmt.Errorf("%s slot %d: %w", cl.pipeline.desc.Name, i, err)
		}
		out[i] = bg
	}
	return out, nil
}

func (c *CommandBuffer) rootBindGroup(layout *wgpu.BindGroupLayout, offset uint64) (*wgpu.BindGroup, error) {
	key := rootKey{layout: layout, offset: offset}
	if bg, ok := c.rootCache[key]; ok {
		return bg, nil
	}
	bg, err := c.device.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  c.label + " Root Constants Bind Group",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: c.roots, Offset: offset, Size: rootSize},
		},
	})
	if err != nil {
		return nil, err
	}
	c.rootCache[key] = bg
	return bg, nil
}

// markPending moves a closed, encoded buffer into the pending state and hands out the
// finished wgpu buffer for submission.
func (c *CommandBuffer) markPending() (*wgpu.CommandBuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != bufferClosed || c.err != nil || c.finished == nil {
		return nil, gpu.ErrNotClosed
	}
	c.state = bufferPending
	finished := c.finished
	c.finished = nil
	return finished, nil
}

func (c *CommandBuffer) retire() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == bufferPending {
		c.state = bufferClosed
	}
}

func (c *CommandBuffer) release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, bg := range c.rootCache {
		bg.Release()
	}
	clear(c.rootCache)
	if c.roots != nil {
		c.roots.Release()
		c.roots = nil
	}
	if c.finished != nil {
		c.finished.Release()
		c.finished = nil
	}
}
