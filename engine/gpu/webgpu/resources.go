package webgpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// texture is a color target, depth target or sampled image.
type texture struct {
	label   string
	kind    gpu.ResourceKind
	format  wgpu.TextureFormat
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

var _ gpu.Resource = &texture{}

func (t *texture) Label() string          { return t.label }
func (t *texture) Kind() gpu.ResourceKind { return t.kind }

// buffer backs constant buffers and storage buffers.
type buffer struct {
	label  string
	kind   gpu.ResourceKind
	size   int
	buffer *wgpu.Buffer
	queue  *wgpu.Queue
}

var _ gpu.ConstantBuffer = &buffer{}

func (b *buffer) Label() string          { return b.label }
func (b *buffer) Kind() gpu.ResourceKind { return b.kind }
func (b *buffer) Size() int              { return b.size }

func (b *buffer) Write(data []byte) error {
	if len(data) > b.size {
		return fmt.Errorf("webgpu: write of %d bytes exceeds %q capacity %d", len(data), b.label, b.size)
	}
	b.queue.WriteBuffer(b.buffer, 0, data)
	return nil
}

// mesh owns the vertex and index buffers of one shared mesh.
type mesh struct {
	label      string
	vertices   *wgpu.Buffer
	indices    *wgpu.Buffer
	indexCount uint32
}

var _ gpu.Mesh = &mesh{}

func (m *mesh) Label() string      { return m.label }
func (m *mesh) IndexCount() uint32 { return m.indexCount }

// pipeline holds either a render or a compute pipeline plus one layout per bind group.
type pipeline struct {
	desc    gpu.PipelineDesc
	layouts []*wgpu.BindGroupLayout
	render  *wgpu.RenderPipeline
	compute *wgpu.ComputePipeline
}

var _ gpu.Pipeline = &pipeline{}

func (p *pipeline) Name() string { return p.desc.Name }

// textureFormat maps a backend-neutral format to its wgpu format. FormatSurface resolves
// to the configured surface format.
//
// Parameters:
//   - f: the format to map
//   - surface: the surface format
//
// Returns:
//   - wgpu.TextureFormat: the wgpu format
//   - error: error if the format is unknown
func textureFormat(f gpu.Format, surface wgpu.TextureFormat) (wgpu.TextureFormat, error) {
	switch f {
	case gpu.FormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float, nil
	case gpu.FormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8UnormSrgb, nil
	case gpu.FormatDepth32Float:
		return wgpu.TextureFormatDepth32Float, nil
	case gpu.FormatSurface:
		return surface, nil
	default:
		return wgpu.TextureFormatUndefined, fmt.Errorf("webgpu: unknown format %d", f)
	}
}

// textureUsage returns the usage flags a resource kind needs.
func textureUsage(kind gpu.ResourceKind) wgpu.TextureUsage {
	switch kind {
	case gpu.KindColorTarget, gpu.KindDepthTarget:
		return wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	default:
		return wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	}
}

// vertexLayout is the interleaved position, normal, uv layout of gpu.Vertex.
func vertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: vertexStride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
		},
	}
}
