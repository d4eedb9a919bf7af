package headless

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

// Op identifies a recorded command.
type Op int

// Recorded command opcodes, one per CommandBuffer method.
const (
	OpBarrier Op = iota
	OpSetRenderTargets
	OpClearRenderTarget
	OpClearDepth
	OpSetPipeline
	OpSetConstantBuffer
	OpSetShaderResource
	OpSetRootConstants
	OpDrawIndexed
	OpDraw
	OpDispatch
)

// Command is one recorded command. Only the fields relevant to Op are set.
type Command struct {
	Op        Op
	Barriers  []gpu.Barrier
	Targets   []string
	Resource  string
	Pipeline  string
	Slot      uint32
	Values    []float32
	Data      []byte
	Mesh      string
	Counts    [3]uint32
	ClearRGBA [4]float32
}

type bufferState int

const (
	bufferClosed bufferState = iota
	bufferOpen
	bufferPending
)

// CommandBuffer records commands into memory and enforces the reset/record/close/submit
// lifecycle. Recording is not synchronized beyond the state lock; a buffer is used by one
// goroutine at a time.
type CommandBuffer struct {
	mu       *sync.Mutex
	label    string
	state    bufferState
	err      error
	commands []Command

	resets    int
	submitted int
}

var _ gpu.CommandBuffer = &CommandBuffer{}

func newCommandBuffer(label string) *CommandBuffer {
	return &CommandBuffer{
		mu:    &sync.Mutex{},
		label: label,
		state: bufferClosed,
	}
}

func (c *CommandBuffer) Label() string { return c.label }

func (c *CommandBuffer) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == bufferPending {
		return gpu.ErrInFlight
	}
	c.state = bufferOpen
	c.err = nil
	c.commands = c.commands[:0]
	c.resets++
	return nil
}

func (c *CommandBuffer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != bufferOpen {
		return gpu.ErrNotRecording
	}
	c.state = bufferClosed
	return c.err
}

func (c *CommandBuffer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Commands returns a copy of the commands recorded since the last Reset.
//
// Returns:
//   - []Command: the recorded commands in order
func (c *CommandBuffer) Commands() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.commands)
}

// Resets returns how many times the buffer has been reset.
func (c *CommandBuffer) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

// Submitted returns how many times the buffer has been submitted.
func (c *CommandBuffer) Submitted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted
}

func (c *CommandBuffer) record(cmd Command) {
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

func (c *CommandBuffer) ResourceBarrier(barriers ...gpu.Barrier) {
	c.record(Command{Op: OpBarrier, Barriers: slices.Clone(barriers)})
}

func (c *CommandBuffer) SetRenderTargets(colors []gpu.Resource, depth gpu.Resource) {
	targets := make([]string, 0, len(colors)+1)
	for _, r := range colors {
		targets = append(targets, r.Label())
	}
	if depth != nil {
		targets = append(targets, depth.Label())
	}
	c.record(Command{Op: OpSetRenderTargets, Targets: targets})
}

func (c *CommandBuffer) ClearRenderTarget(target gpu.Resource, rgba [4]float32) {
	c.record(Command{Op: OpClearRenderTarget, Resource: target.Label(), ClearRGBA: rgba})
}

func (c *CommandBuffer) ClearDepth(target gpu.Resource, depth float32) {
	c.record(Command{Op: OpClearDepth, Resource: target.Label(), Values: []float32{depth}})
}

func (c *CommandBuffer) SetPipeline(p gpu.Pipeline) {
	c.record(Command{Op: OpSetPipeline, Pipeline: p.Name()})
}

// SetConstantBuffer records the buffer contents as they are at record time.
func (c *CommandBuffer) SetConstantBuffer(slot uint32, buf gpu.ConstantBuffer) {
	cmd := Command{Op: OpSetConstantBuffer, Slot: slot, Resource: buf.Label()}
	if cb, ok := buf.(*constantBuffer); ok {
		cmd.Data = cb.snapshot()
	}
	c.record(cmd)
}

func (c *CommandBuffer) SetShaderResource(slot uint32, res gpu.Resource) {
	c.record(Command{Op: OpSetShaderResource, Slot: slot, Resource: res.Label()})
}

func (c *CommandBuffer) SetRootConstants(slot uint32, values ...float32) {
	c.record(Command{Op: OpSetRootConstants, Slot: slot, Values: slices.Clone(values)})
}

func (c *CommandBuffer) DrawIndexed(m gpu.Mesh, instanceCount uint32) {
	c.record(Command{Op: OpDrawIndexed, Mesh: m.Label(), Counts: [3]uint32{m.IndexCount(), instanceCount}})
}

func (c *CommandBuffer) Draw(vertexCount, instanceCount uint32) {
	c.record(Command{Op: OpDraw, Counts: [3]uint32{vertexCount, instanceCount}})
}

func (c *CommandBuffer) Dispatch(x, y, z uint32) {
	c.record(Command{Op: OpDispatch, Counts: [3]uint32{x, y, z}})
}

// markPending moves a closed buffer into the pending state.
func (c *CommandBuffer) markPending() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != bufferClosed || c.err != nil {
		return gpu.ErrNotClosed
	}
	c.state = bufferPending
	c.submitted++
	return nil
}

// retire is called by the queue once the buffer has executed.
func (c *CommandBuffer) retire() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == bufferPending {
		c.state = bufferClosed
	}
}
