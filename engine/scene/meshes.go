package scene

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

// face is one axis-aligned quad of a unit cube; u × v == normal so the quad winds
// counter-clockwise seen from outside.
type face struct {
	normal, u, v common.Vec3
}

var (
	facePosX = face{common.Vec3{1, 0, 0}, common.Vec3{0, 0, -1}, common.Vec3{0, 1, 0}}
	faceNegX = face{common.Vec3{-1, 0, 0}, common.Vec3{0, 0, 1}, common.Vec3{0, 1, 0}}
	facePosY = face{common.Vec3{0, 1, 0}, common.Vec3{1, 0, 0}, common.Vec3{0, 0, -1}}
	faceNegY = face{common.Vec3{0, -1, 0}, common.Vec3{1, 0, 0}, common.Vec3{0, 0, 1}}
	facePosZ = face{common.Vec3{0, 0, 1}, common.Vec3{1, 0, 0}, common.Vec3{0, 1, 0}}
	faceNegZ = face{common.Vec3{0, 0, -1}, common.Vec3{-1, 0, 0}, common.Vec3{0, 1, 0}}
)

// appendQuad appends a quad centered at f.normal*offset with half extent 0.5. inward flips
// the normal and the winding so the quad faces the cube's interior.
func appendQuad(vertices []gpu.Vertex, indices []uint32, f face, offset float32, inward bool) ([]gpu.Vertex, []uint32) {
	base := uint32(len(vertices))
	center := f.normal.Scale(offset)
	normal := f.normal
	if inward {
		normal = normal.Scale(-1)
	}
	corners := [4]struct {
		du, dv float32
		uv     [2]float32
	}{
		{-0.5, -0.5, [2]float32{0, 1}},
		{0.5, -0.5, [2]float32{1, 1}},
		{0.5, 0.5, [2]float32{1, 0}},
		{-0.5, 0.5, [2]float32{0, 0}},
	}
	for _, c := range corners {
		p := center.Add(f.u.Scale(c.du)).Add(f.v.Scale(c.dv))
		vertices = append(vertices, gpu.Vertex{Position: p, Normal: normal, UV: c.uv})
	}
	if inward {
		indices = append(indices, base, base+2, base+1, base, base+3, base+2)
	} else {
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}

// FilledCube returns a closed unit cube centered on the origin.
//
// Returns:
//   - []gpu.Vertex: 24 vertices, 4 per face
//   - []uint32: 36 indices
func FilledCube() ([]gpu.Vertex, []uint32) {
	var vertices []gpu.Vertex
	var indices []uint32
	for _, f := range []face{facePosX, faceNegX, facePosY, faceNegY, facePosZ, faceNegZ} {
		vertices, indices = appendQuad(vertices, indices, f, 0.5, false)
	}
	return vertices, indices
}

// OpenedCube returns a unit cube without its top and bottom faces. The four side walls are
// double-sided so the interior is visible through the openings.
//
// Returns:
//   - []gpu.Vertex: 32 vertices
//   - []uint32: 48 indices
func OpenedCube() ([]gpu.Vertex, []uint32) {
	var vertices []gpu.Vertex
	var indices []uint32
	sides := []face{faceNegZ, facePosZ, facePosX, faceNegX}
	for _, f := range sides {
		vertices, indices = appendQuad(vertices, indices, f, 0.5, false)
	}
	for _, f := range sides {
		vertices, indices = appendQuad(vertices, indices, f, 0.5, true)
	}
	return vertices, indices
}

// Plane returns a unit quad in the XZ plane facing +Y.
//
// Returns:
//   - []gpu.Vertex: 4 vertices
//   - []uint32: 6 indices
func Plane() ([]gpu.Vertex, []uint32) {
	return appendQuad(nil, nil, facePosY, 0, false)
}
