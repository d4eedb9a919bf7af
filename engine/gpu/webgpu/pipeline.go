package webgpu

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// layoutEntries returns the bind group layout entries of one slot: the resource at binding 0
// and, for textures, its sampler at binding 1.
//
// Parameters:
//   - kind: what the slot holds
//   - stage: the pipeline stage
//
// Returns:
//   - []wgpu.BindGroupLayoutEntry: the layout entries of the slot
func layoutEntries(kind gpu.BindingKind, stage gpu.PipelineStage) []wgpu.BindGroupLayoutEntry {
	visibility := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	sampled := wgpu.ShaderStageFragment
	if stage == gpu.StageCompute {
		visibility, sampled = wgpu.ShaderStageCompute, wgpu.ShaderStageCompute
	}

	entry := wgpu.BindGroupLayoutEntry{Binding: 0, Visibility: visibility}
	switch kind {
	case gpu.BindConstantBuffer, gpu.BindRootConstants:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case gpu.BindStorageRead:
		entry.Visibility = sampled
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	case gpu.BindStorageReadWrite:
		entry.Visibility = sampled
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
	case gpu.BindTexture, gpu.BindDepthTexture:
		entry.Visibility = sampled
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
		sampler := wgpu.BindGroupLayoutEntry{Binding: 1, Visibility: sampled}
		if kind == gpu.BindDepthTexture {
			entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
			sampler.Sampler.Type = wgpu.SamplerBindingTypeNonFiltering
		} else {
			entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
			sampler.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		}
		return []wgpu.BindGroupLayoutEntry{entry, sampler}
	}
	return []wgpu.BindGroupLayoutEntry{entry}
}

func (d *Device) CreatePipeline(desc gpu.PipelineDesc) (gpu.Pipeline, error) {
	if desc.Name == "" {
		return nil, errors.New("webgpu: pipeline has no name")
	}
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: pipeline %s: shader module: %w", desc.Name, err)
	}

	p := &pipeline{desc: desc, layouts: make([]*wgpu.BindGroupLayout, len(desc.Bindings))}
	for g, kind := range desc.Bindings {
		layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", desc.Name, g),
			Entries: layoutEntries(kind, desc.Stage),
		})
		if err != nil {
			return nil, fmt.Errorf("webgpu: pipeline %s: bind group layout %d: %w", desc.Name, g, err)
		}
		p.layouts[g] = layout
	}
	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Name,
		BindGroupLayouts: p.layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: pipeline %s: layout: %w", desc.Name, err)
	}

	if desc.Stage == gpu.StageCompute {
		p.compute, err = d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label:  desc.Name + " Compute Pipeline",
			Layout: layout,
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     module,
				EntryPoint: desc.ComputeEntry,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("webgpu: pipeline %s: %w", desc.Name, err)
		}
		return p, nil
	}

	renderDesc, err := d.renderPipelineDescriptor(desc, module, layout)
	if err != nil {
		return nil, err
	}
	p.render, err = d.device.CreateRenderPipeline(renderDesc)
	if err != nil {
		return nil, fmt.Errorf("webgpu: pipeline %s: %w", desc.Name, err)
	}
	return p, nil
}

func (d *Device) renderPipelineDescriptor(desc gpu.PipelineDesc, module *wgpu.ShaderModule, layout *wgpu.PipelineLayout) (*wgpu.RenderPipelineDescriptor, error) {
	out := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Name + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntry,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
	if desc.Vertex == gpu.VertexMesh {
		out.Vertex.Buffers = []wgpu.VertexBufferLayout{vertexLayout()}
	}

	if desc.FragmentEntry != "" {
		targets := make([]wgpu.ColorTargetState, 0, len(desc.ColorFormats))
		for _, f := range desc.ColorFormats {
			format, err := textureFormat(f, d.surfaceFormat)
			if err != nil {
				return nil, fmt.Errorf("webgpu: pipeline %s: %w", desc.Name, err)
			}
			targets = append(targets, wgpu.ColorTargetState{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			})
		}
		out.Fragment = &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntry,
			Targets:    targets,
		}
	}

	if desc.DepthFormat != nil {
		format, err := textureFormat(*desc.DepthFormat, d.surfaceFormat)
		if err != nil {
			return nil, fmt.Errorf("webgpu: pipeline %s: %w", desc.Name, err)
		}
		var slope float32
		if desc.DepthBias != 0 {
			slope = 2.0
		}
		out.DepthStencil = &wgpu.DepthStencilState{
			Format:              format,
			DepthWriteEnabled:   true,
			DepthCompare:        wgpu.CompareFunctionLess,
			DepthBias:           desc.DepthBias,
			DepthBiasSlopeScale: slope,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}
	return out, nil
}
