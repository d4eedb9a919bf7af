package webgpu

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

type opcode int

const (
	opSetRenderTargets opcode = iota
	opClearRenderTarget
	opClearDepth
	opSetPipeline
	opSetConstantBuffer
	opSetShaderResource
	opSetRootConstants
	opDrawIndexed
	opDraw
	opDispatch
)

// command is one recorded call. Barriers are not recorded: wgpu tracks usage itself.
type command struct {
	op       opcode
	colors   []gpu.Resource
	depth    gpu.Resource
	resource gpu.Resource
	rgba     [4]float32
	value    float32
	pipeline *pipeline
	slot     uint32
	values   [4]float32
	mesh     *mesh
	counts   [3]uint32
}

type passKind int

const (
	passRender passKind = iota
	passCompute
)

// binding is what a draw sees at one bind group. A rooted binding refers to an entry of
// plan.roots; an empty binding is filled with a default resource at encode time.
type binding struct {
	resource gpu.Resource
	root     int
	rooted   bool
}

// call is one draw or dispatch with its bindings captured.
type call struct {
	pipeline  *pipeline
	bindings  []binding
	mesh      *mesh
	vertices  uint32
	instances uint32
	groups    [3]uint32
}

// pass is one render or compute pass. Render passes load their attachments unless a clear
// was recorded for them since the targets were bound.
type pass struct {
	kind        passKind
	colors      []gpu.Resource
	depth       gpu.Resource
	clearColors []*[4]float32
	clearDepth  *float32
	calls       []call
}

// plan is the pass structure of one command buffer.
type plan struct {
	passes []*pass
	roots  [][4]float32
}

var errNoPipeline = errors.New("webgpu: draw without a pipeline")

// planPasses groups recorded commands into render and compute passes. A render pass opens
// on the first draw after SetRenderTargets; clears recorded before it become its load
// operations, and clears with no draw after them get a pass of their own.
//
// Parameters:
//   - commands: the recorded commands in order
//
// Returns:
//   - plan: the passes to encode
//   - error: error if a draw has no pipeline or a clear names an unbound target
func planPasses(commands []command) (plan, error) {
	var (
		out        plan
		open       *pass
		colors     []gpu.Resource
		depth      gpu.Resource
		clearColor = map[gpu.Resource]*[4]float32{}
		clearDepth *float32
		current    *pipeline
		bound      = map[uint32]binding{}
	)

	begin := func() *pass {
		p := &pass{
			kind:        passRender,
			colors:      colors,
			depth:       depth,
			clearColors: make([]*[4]float32, len(colors)),
			clearDepth:  clearDepth,
		}
		for i, c := range colors {
			p.clearColors[i] = clearColor[c]
		}
		clear(clearColor)
		clearDepth = nil
		out.passes = append(out.passes, p)
		return p
	}
	flushClears := func() {
		if len(clearColor) > 0 || clearDepth != nil {
			begin()
		}
	}
	capture := func() []binding {
		snapshot := make([]binding, len(current.desc.Bindings))
		for i := range snapshot {
			snapshot[i] = bound[uint32(i)]
		}
		return snapshot
	}
	isBound := func(r gpu.Resource) bool {
		if r == depth && r != nil {
			return true
		}
		for _, c := range colors {
			if c == r {
				return true
			}
		}
		return false
	}

	for _, cmd := range commands {
		switch cmd.op {
		case opSetRenderTargets:
			open = nil
			flushClears()
			colors, depth = cmd.colors, cmd.depth
		case opClearRenderTarget:
			if !isBound(cmd.resource) {
				return plan{}, fmt.Errorf("webgpu: clear of unbound target %q", cmd.resource.Label())
			}
			open = nil
			rgba := cmd.rgba
			clearColor[cmd.resource] = &rgba
		case opClearDepth:
			if !isBound(cmd.resource) {
				return plan{}, fmt.Errorf("webgpu: clear of unbound target %q", cmd.resource.Label())
			}
			open = nil
			v := cmd.value
			clearDepth = &v
		case opSetPipeline:
			current = cmd.pipeline
		case opSetConstantBuffer, opSetShaderResource:
			bound[cmd.slot] = binding{resource: cmd.resource}
		case opSetRootConstants:
			bound[cmd.slot] = binding{root: len(out.roots), rooted: true}
			out.roots = append(out.roots, cmd.values)
		case opDraw, opDrawIndexed:
			if current == nil || current.desc.Stage != gpu.StageRender {
				return plan{}, errNoPipeline
			}
			if open == nil {
				open = begin()
			}
			c := call{pipeline: current, bindings: capture(), instances: cmd.counts[1]}
			if cmd.op == opDrawIndexed {
				c.mesh = cmd.mesh
			} else {
				c.vertices = cmd.counts[0]
			}
			open.calls = append(open.calls, c)
		case opDispatch:
			if current == nil || current.desc.Stage != gpu.StageCompute {
				return plan{}, errors.New("webgpu: dispatch without a compute pipeline")
			}
			open = nil
			out.passes = append(out.passes, &pass{
				kind:  passCompute,
				calls: []call{{pipeline: current, bindings: capture(), groups: cmd.counts}},
			})
		}
	}
	flushClears()
	return out, nil
}
