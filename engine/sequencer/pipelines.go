package sequencer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/shader"
)

// shadowDepthBias is the constant depth bias of the shadow pipeline.
const shadowDepthBias = 2

// Pipelines holds one pre-built pipeline per pass.
type Pipelines struct {
	Shadow    gpu.Pipeline
	GBuffer   gpu.Pipeline
	AO        gpu.Pipeline
	Blur      gpu.Pipeline
	Lighting  gpu.Pipeline
	Intensity gpu.Pipeline
	ToneMap   gpu.Pipeline
}

// NewPipelines reflects and validates every embedded shader and builds its pipeline on device.
//
// Parameters:
//   - device: the device building the pipelines
//
// Returns:
//   - *Pipelines: the pipelines
//   - error: reflection, shader compile or pipeline creation error
func NewPipelines(device gpu.Device) (*Pipelines, error) {
	return buildPipelines(device, shader.Describe)
}

func buildPipelines(device gpu.Device, describe func(shader.Pass) (gpu.PipelineDesc, error)) (*Pipelines, error) {
	depth := gpu.FormatDepth32Float
	hdr := []gpu.Format{gpu.FormatRGBA16Float}

	p := &Pipelines{}
	passes := []struct {
		pass   shader.Pass
		out    *gpu.Pipeline
		colors []gpu.Format
		depth  *gpu.Format
		bias   int32
	}{
		{shader.PassShadow, &p.Shadow, nil, &depth, shadowDepthBias},
		{shader.PassGBuffer, &p.GBuffer, []gpu.Format{gpu.FormatRGBA16Float, gpu.FormatRGBA16Float, gpu.FormatRGBA16Float}, &depth, 0},
		{shader.PassAO, &p.AO, hdr, nil, 0},
		{shader.PassBlur, &p.Blur, hdr, nil, 0},
		{shader.PassLighting, &p.Lighting, hdr, nil, 0},
		{shader.PassIntensity, &p.Intensity, nil, nil, 0},
		{shader.PassToneMap, &p.ToneMap, []gpu.Format{gpu.FormatSurface}, nil, 0},
	}
	for _, ps := range passes {
		desc, err := describe(ps.pass)
		if err != nil {
			return nil, err
		}
		if _, err := shader.CompileSource(desc.Name, desc.Source); err != nil {
			return nil, fmt.Errorf("sequencer: %s pipeline: %w", ps.pass, err)
		}
		desc.ColorFormats = ps.colors
		desc.DepthFormat = ps.depth
		desc.DepthBias = ps.bias

		pl, err := device.CreatePipeline(desc)
		if err != nil {
			return nil, fmt.Errorf("sequencer: create %s pipeline: %w", ps.pass, err)
		}
		*ps.out = pl
	}
	return p, nil
}
