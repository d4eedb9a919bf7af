package gpu

import "fmt"

// ResourceState is the logical usage mode of a resource between passes.
type ResourceState int

const (
	// StateCommon is the state of a freshly created resource with no recorded usage.
	StateCommon ResourceState = iota

	// StateRenderTarget is writable as a color attachment.
	StateRenderTarget

	// StateDepthWrite is writable as a depth attachment.
	StateDepthWrite

	// StateShaderReadable is sampled by pixel or compute shaders.
	StateShaderReadable

	// StateUnorderedAccess is read-write from compute shaders.
	StateUnorderedAccess

	// StateConstantBuffer is readable as constant/uniform data.
	StateConstantBuffer

	// StatePresent is owned by the presentation engine.
	StatePresent
)

func (s ResourceState) String() string {
	switch s {
	case StateCommon:
		return "Common"
	case StateRenderTarget:
		return "RenderTarget"
	case StateDepthWrite:
		return "DepthWrite"
	case StateShaderReadable:
		return "ShaderReadable"
	case StateUnorderedAccess:
		return "UnorderedAccess"
	case StateConstantBuffer:
		return "ConstantBuffer"
	case StatePresent:
		return "Present"
	default:
		return fmt.Sprintf("ResourceState(%d)", int(s))
	}
}

// Writable reports whether the state allows the GPU to write the resource.
func (s ResourceState) Writable() bool {
	return s == StateRenderTarget || s == StateDepthWrite || s == StateUnorderedAccess
}

// Barrier is a single resource state transition.
type Barrier struct {
	Resource Resource
	From     ResourceState
	To       ResourceState
}

func (b Barrier) String() string {
	return fmt.Sprintf("%s: %s -> %s", b.Resource.Label(), b.From, b.To)
}

// ResourceKind classifies a Resource for binding and attachment purposes.
type ResourceKind int

const (
	// KindColorTarget is a color render target that can also be sampled.
	KindColorTarget ResourceKind = iota

	// KindDepthTarget is a depth render target that can also be sampled.
	KindDepthTarget

	// KindTexture is a sampled, read-only image.
	KindTexture

	// KindStorageBuffer is a compute-writable buffer.
	KindStorageBuffer

	// KindConstantBuffer is a CPU-written uniform buffer.
	KindConstantBuffer

	// KindBackBuffer is a swap-chain image.
	KindBackBuffer
)

// Format is the texel format of an image resource.
type Format int

const (
	// FormatRGBA16Float is the format of every intermediate color target.
	FormatRGBA16Float Format = iota

	// FormatRGBA8Unorm is the format of sampled object textures.
	FormatRGBA8Unorm

	// FormatDepth32Float is the format of depth targets.
	FormatDepth32Float

	// FormatSurface resolves to whatever the presentation surface uses.
	FormatSurface
)

// ResourceDesc describes a resource to create.
type ResourceDesc struct {
	Label  string
	Kind   ResourceKind
	Format Format
	Width  int
	Height int

	// Size is the byte size of storage buffers.
	Size int

	// Pixels optionally initializes a KindTexture with tightly packed RGBA8 data.
	Pixels []byte
}

// Vertex is the interleaved layout shared by every mesh.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

// PipelineStage selects the kind of pipeline to build.
type PipelineStage int

const (
	// StageRender builds a vertex + fragment pipeline.
	StageRender PipelineStage = iota

	// StageCompute builds a compute pipeline.
	StageCompute
)

// BindingKind describes what a pipeline expects at one binding slot.
type BindingKind int

const (
	// BindConstantBuffer expects a ConstantBuffer.
	BindConstantBuffer BindingKind = iota

	// BindTexture expects a sampled color image.
	BindTexture

	// BindDepthTexture expects a sampled depth image.
	BindDepthTexture

	// BindStorageRead expects a read-only storage buffer.
	BindStorageRead

	// BindStorageReadWrite expects a read-write storage buffer.
	BindStorageReadWrite

	// BindRootConstants expects inline values set with SetRootConstants.
	BindRootConstants
)

// VertexInput selects the vertex fetch layout of a render pipeline.
type VertexInput int

const (
	// VertexMesh reads Vertex data from the bound mesh.
	VertexMesh VertexInput = iota

	// VertexNone generates vertices in the shader (fullscreen passes).
	VertexNone
)

// PipelineDesc describes a pipeline-state object. Bindings are indexed by slot; slot i is
// bind group i in backends that group bindings.
type PipelineDesc struct {
	Name   string
	Stage  PipelineStage
	Source string

	VertexEntry   string
	FragmentEntry string
	ComputeEntry  string

	Vertex       VertexInput
	ColorFormats []Format
	DepthFormat  *Format
	DepthBias    int32

	Bindings []BindingKind
}
