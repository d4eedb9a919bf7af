package sequencer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/state"
)

// Resources are the images, buffers and constant buffers shared between passes.
type Resources struct {
	// ShadowMap is the light's depth map, written by the shadow pass and sampled by lighting.
	ShadowMap gpu.Resource

	// GBuffer holds the diffuse, normal and linear-depth color targets plus the depth target.
	GBuffer *gpu.TargetSet

	// AO and Blur are the raw and blurred ambient-occlusion targets.
	AO   gpu.Resource
	Blur gpu.Resource

	// HDR is the lighting output before tone mapping.
	HDR gpu.Resource

	// Intensity holds one average luminance value per HDR row.
	Intensity gpu.Resource

	ViewConstants   gpu.ConstantBuffer
	ShadowConstants gpu.ConstantBuffer
	SceneConstants  gpu.ConstantBuffer

	Width  int
	Height int
}

// Diffuse returns the G-buffer albedo target.
func (r *Resources) Diffuse() gpu.Resource { return r.GBuffer.Colors[0] }

// Normal returns the G-buffer normal target.
func (r *Resources) Normal() gpu.Resource { return r.GBuffer.Colors[1] }

// Depth returns the G-buffer linear-depth color target.
func (r *Resources) Depth() gpu.Resource { return r.GBuffer.Colors[2] }

// NewResources creates every pass resource at the given size.
//
// Parameters:
//   - device: the device allocating the resources
//   - width, height: screen size in pixels
//   - shadowMapSize: edge length of the square shadow map
//
// Returns:
//   - *Resources: the resources
//   - error: resource creation error
func NewResources(device gpu.Device, width, height, shadowMapSize int) (*Resources, error) {
	r := &Resources{Width: width, Height: height}

	var err error
	target := func(label string, kind gpu.ResourceKind, format gpu.Format, w, h int) gpu.Resource {
		if err != nil {
			return nil
		}
		var res gpu.Resource
		res, err = device.CreateResource(gpu.ResourceDesc{Label: label, Kind: kind, Format: format, Width: w, Height: h})
		return res
	}

	r.ShadowMap = target("ShadowMap", gpu.KindDepthTarget, gpu.FormatDepth32Float, shadowMapSize, shadowMapSize)
	diffuse := target("GBufferDiffuse", gpu.KindColorTarget, gpu.FormatRGBA16Float, width, height)
	normal := target("GBufferNormal", gpu.KindColorTarget, gpu.FormatRGBA16Float, width, height)
	depth := target("GBufferDepth", gpu.KindColorTarget, gpu.FormatRGBA16Float, width, height)
	depthStencil := target("DepthStencil", gpu.KindDepthTarget, gpu.FormatDepth32Float, width, height)
	r.AO = target("AO", gpu.KindColorTarget, gpu.FormatRGBA16Float, width, height)
	r.Blur = target("AOBlur", gpu.KindColorTarget, gpu.FormatRGBA16Float, width, height)
	r.HDR = target("HDR", gpu.KindColorTarget, gpu.FormatRGBA16Float, width, height)
	if err != nil {
		return nil, fmt.Errorf("sequencer: create targets: %w", err)
	}
	// Linear depth 0 marks background pixels for the lighting pass.
	r.GBuffer = gpu.NewTargetSet([4]float32{}, depthStencil, diffuse, normal, depth)

	if r.Intensity, err = device.CreateResource(gpu.ResourceDesc{
		Label: "Intensity",
		Kind:  gpu.KindStorageBuffer,
		Size:  IntensitySize(height),
	}); err != nil {
		return nil, fmt.Errorf("sequencer: create intensity buffer: %w", err)
	}

	if r.ViewConstants, err = device.CreateConstantBuffer("ViewConstants", camera.GPUCameraUniformSize); err != nil {
		return nil, fmt.Errorf("sequencer: create view constants: %w", err)
	}
	if r.ShadowConstants, err = device.CreateConstantBuffer("ShadowConstants", camera.GPUCameraUniformSize); err != nil {
		return nil, fmt.Errorf("sequencer: create shadow constants: %w", err)
	}
	if r.SceneConstants, err = device.CreateConstantBuffer("SceneConstants", scene.SceneConstantsSize); err != nil {
		return nil, fmt.Errorf("sequencer: create scene constants: %w", err)
	}
	return r, nil
}

// IntensitySize returns the byte size of the intensity buffer for a screen height.
func IntensitySize(height int) int {
	return 4 * max(height, 1)
}

// IntensityGroups returns the compute dispatch width covering every row.
func IntensityGroups(height int) uint32 {
	return uint32(height/32) + 1
}

// register enters every shared resource into the tracker in the state the first frame
// expects. The shadow map starts readable so a frame without a shadow pass binds it
// without barriers.
func (r *Resources) register(t state.Tracker, surface gpu.Surface) {
	t.Register(r.ShadowMap, gpu.StateShaderReadable)
	for _, c := range r.GBuffer.Colors {
		t.Register(c, gpu.StateShaderReadable)
	}
	t.Register(r.GBuffer.Depth, gpu.StateDepthWrite)
	t.Register(r.AO, gpu.StateShaderReadable)
	t.Register(r.Blur, gpu.StateShaderReadable)
	t.Register(r.HDR, gpu.StateShaderReadable)
	t.Register(r.Intensity, gpu.StateConstantBuffer)
	for i := range surface.BackBufferCount() {
		t.Register(surface.BackBuffer(i), gpu.StatePresent)
	}
}
