package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestPointOnSphere(t *testing.T) {
	tests := []struct {
		name        string
		rotation    float32
		inclination float32
		want        common.Vec3
	}{
		{"top", 0, 0, common.Vec3{0, 2, 0}},
		{"equator +x", 0, 90, common.Vec3{2, 0, 0}},
		{"equator +z", 90, 90, common.Vec3{0, 0, 2}},
		{"bottom", 0, 180, common.Vec3{0, -2, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PointOnSphere(common.Vec3{}, 2, tt.rotation, tt.inclination)
			for i := range got {
				if !near(got[i], tt.want[i]) {
					t.Fatalf("PointOnSphere() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestEyeDistanceMatchesRadius(t *testing.T) {
	c := NewCamera(WithCenter(common.Vec3{1, 2, 3}), WithRadius(7), WithInclination(-30), WithRotation(12))
	if d := c.Eye().Sub(c.Center()).Length(); !near(d, 7) {
		t.Errorf("|eye - center| = %v, want 7", d)
	}
	c.SetRadius(11)
	if d := c.Eye().Sub(c.Center()).Length(); !near(d, 11) {
		t.Errorf("|eye - center| after SetRadius = %v, want 11", d)
	}
}

func TestViewProjectionPutsCenterInFront(t *testing.T) {
	c := NewCamera(WithRadius(10), WithInclination(60), WithClip(0.1, 50))
	p := c.ViewProjectionMatrix().MulPoint(common.Vec3{})
	if !near(p[0], 0) || !near(p[1], 0) {
		t.Errorf("center projects to %v, want screen center", p)
	}
	if p[2] <= 0 || p[2] >= 1 {
		t.Errorf("center depth = %v, want inside (0, 1)", p[2])
	}
}

func TestStraightDownStaysFinite(t *testing.T) {
	c := NewCamera(WithRadius(5), WithInclination(0))
	for i, v := range c.ViewMatrix() {
		if math.IsNaN(float64(v)) {
			t.Fatalf("view[%d] is NaN with eye on the up axis", i)
		}
	}
}

func TestUniformMarshal(t *testing.T) {
	c := NewCamera(WithRadius(3), WithInclination(45), WithRotation(30))
	u := c.Uniform()
	buf := u.Marshal()
	if len(buf) != GPUCameraUniformSize {
		t.Fatalf("len(Marshal()) = %d, want %d", len(buf), GPUCameraUniformSize)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[64:])); got != c.Eye()[0] {
		t.Errorf("marshaled eye.x = %v, want %v", got, c.Eye()[0])
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[0:])); got != c.ViewProjectionMatrix()[0] {
		t.Errorf("marshaled viewProj[0] = %v, want %v", got, c.ViewProjectionMatrix()[0])
	}
}
