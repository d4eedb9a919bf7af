package scene

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

const (
	// ObjectConstantsSize is the WGSL size of ObjectUniform.
	ObjectConstantsSize = 64

	// SceneConstantsSize is the WGSL size of SceneUniform.
	SceneConstantsSize = 208
)

// ObjectConstants is the per-object constant block.
type ObjectConstants struct {
	World common.Mat4 // offset 0: world matrix (mat4x4<f32>)
}

// Marshal serializes the constants into a little-endian buffer.
//
// Returns:
//   - []byte: ObjectConstantsSize bytes
func (c ObjectConstants) Marshal() []byte {
	buf := make([]byte, ObjectConstantsSize)
	putMat4(buf, c.World)
	return buf
}

// SceneConstants is the per-frame block read by the AO, lighting and tone-map passes.
// Layout matches the WGSL SceneUniform struct in the shader package.
type SceneConstants struct {
	LightPosition   [4]float32  // offset   0
	AmbientColor    common.Vec3 // offset  16
	ShadowMapSize   float32     // offset  28
	FogColor        common.Vec3 // offset  32
	SceneSize       float32     // offset  44
	ShadowMatrix    common.Mat4 // offset  48
	InverseViewProj common.Mat4 // offset 112
	CameraPosition  [4]float32  // offset 176
	ScreenSize      [2]float32  // offset 192
	_               [2]float32  // offset 200: padding to 208
}

// Marshal serializes the constants into a little-endian buffer.
//
// Returns:
//   - []byte: SceneConstantsSize bytes
func (c SceneConstants) Marshal() []byte {
	buf := make([]byte, SceneConstantsSize)
	putFloats(buf[0:], c.LightPosition[:]...)
	putFloats(buf[16:], c.AmbientColor[:]...)
	putFloats(buf[28:], c.ShadowMapSize)
	putFloats(buf[32:], c.FogColor[:]...)
	putFloats(buf[44:], c.SceneSize)
	putMat4(buf[48:], c.ShadowMatrix)
	putMat4(buf[112:], c.InverseViewProj)
	putFloats(buf[176:], c.CameraPosition[:]...)
	putFloats(buf[192:], c.ScreenSize[:]...)
	return buf
}

func putMat4(buf []byte, m common.Mat4) {
	putFloats(buf, m[:]...)
}

func putFloats(buf []byte, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
}
