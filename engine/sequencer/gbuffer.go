package sequencer

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
)

// G-buffer binding slots, matching gbuffer.wgsl.
const (
	slotCamera  uint32 = 0
	slotObject  uint32 = 1
	slotRoot    uint32 = 2
	slotTexture uint32 = 3
)

// gbufferRecorder records G-buffer draws from the dispatcher's workers. It only reads
// the scene, the resources and the pipelines.
type gbufferRecorder struct {
	scene         scene.Scene
	resources     *Resources
	pipeline      gpu.Pipeline
	textures      []gpu.Resource
	rootConstants bool
}

var _ dispatch.Recorder = &gbufferRecorder{}

// Begin binds the G-buffer as left by the clear pass. RenderFrame checks those states
// with the tracker before dispatching.
func (r *gbufferRecorder) Begin(worker int, cb gpu.CommandBuffer) error {
	r.resources.GBuffer.Bind(cb)
	cb.SetPipeline(r.pipeline)
	cb.SetConstantBuffer(slotCamera, r.resources.ViewConstants)
	return cb.Err()
}

func (r *gbufferRecorder) Record(worker int, cb gpu.CommandBuffer, index int) error {
	o := r.scene.Object(index)
	cb.SetConstantBuffer(slotObject, o.ConstantBuffer())
	if r.rootConstants {
		cb.SetRootConstants(slotRoot, o.Shift(), 0, 0, 0)
	}
	if len(r.textures) > 0 {
		cb.SetShaderResource(slotTexture, r.textures[o.TextureIndex()%len(r.textures)])
	}
	return o.Draw(cb)
}
