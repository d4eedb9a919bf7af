package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

// Describe builds the reflected part of a pipeline description for pass p: source, stage,
// entry points, vertex input and per-slot bindings. Attachment formats are left to the caller.
//
// Parameters:
//   - p: the pass
//
// Returns:
//   - gpu.PipelineDesc: the partially filled description
//   - error: unknown pass or inconsistent binding layout
func Describe(p Pass) (gpu.PipelineDesc, error) {
	src, err := Source(p)
	if err != nil {
		return gpu.PipelineDesc{}, err
	}
	r := Reflect(src)
	slots, err := r.Slots()
	if err != nil {
		return gpu.PipelineDesc{}, fmt.Errorf("shader: describe %s: %w", p, err)
	}

	desc := gpu.PipelineDesc{
		Name:          string(p),
		Stage:         r.Stage(),
		Source:        src,
		VertexEntry:   r.VertexEntry,
		FragmentEntry: r.FragmentEntry,
		ComputeEntry:  r.ComputeEntry,
		Vertex:        gpu.VertexNone,
		Bindings:      slots,
	}
	if r.VertexStride > 0 {
		desc.Vertex = gpu.VertexMesh
	}
	return desc, nil
}
