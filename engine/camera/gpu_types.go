package camera

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// GPUCameraUniformSize is the WGSL size of CameraUniform: mat4x4<f32> + vec3<f32> + pad.
const GPUCameraUniformSize = 80

// GPUCameraUniform is the per-frame camera constant block shared by the shadow and G-buffer
// passes. Layout matches the WGSL CameraUniform struct in the shader package.
type GPUCameraUniform struct {
	ViewProj       common.Mat4 // offset  0: combined view-projection matrix (mat4x4<f32>)
	CameraPosition common.Vec3 // offset 64: world-space camera position (vec3<f32>)
}

// Marshal serializes the uniform into a little-endian buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer (GPUCameraUniformSize bytes)
func (g GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, GPUCameraUniformSize)
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.CameraPosition[i]))
	}
	return buf
}
