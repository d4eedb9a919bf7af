package scene

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/headless"
)

func newTestScene(t *testing.T, n int, options ...SceneBuilderOption) Scene {
	t.Helper()
	device := headless.NewDevice()
	t.Cleanup(func() { device.Close() })

	s, err := NewScene(device, append([]SceneBuilderOption{WithObjectsInRow(n)}, options...)...)
	if err != nil {
		t.Fatalf("NewScene() = %v", err)
	}
	return s
}

func TestMeshSizes(t *testing.T) {
	v, i := FilledCube()
	if len(v) != 24 || len(i) != 36 {
		t.Errorf("FilledCube() = %d vertices, %d indices, want 24, 36", len(v), len(i))
	}
	v, i = OpenedCube()
	if len(v) != 32 || len(i) != 48 {
		t.Errorf("OpenedCube() = %d vertices, %d indices, want 32, 48", len(v), len(i))
	}
	v, i = Plane()
	if len(v) != 4 || len(i) != 6 {
		t.Errorf("Plane() = %d vertices, %d indices, want 4, 6", len(v), len(i))
	}
	for _, p := range v {
		if p.Position[1] != 0 || p.Normal != [3]float32{0, 1, 0} {
			t.Errorf("plane vertex %+v, want y = 0 facing +Y", p)
		}
	}
}

func TestGridLayout(t *testing.T) {
	s := newTestScene(t, 3, WithComputeWorkers(4))
	if s.Cubes() != 27 || s.Len() != 28 {
		t.Fatalf("Cubes() = %d, Len() = %d, want 27, 28", s.Cubes(), s.Len())
	}

	var sum common.Vec3
	for i, o := range s.Objects()[:s.Cubes()] {
		if o.Index() != i {
			t.Errorf("object %d has Index() = %d", i, o.Index())
		}
		sum = sum.Add(o.Position())
		wantIndices := uint32(36)
		if i%2 == 1 {
			wantIndices = 48
		}
		if got := o.Mesh().IndexCount(); got != wantIndices {
			t.Errorf("object %d mesh has %d indices, want %d", i, got, wantIndices)
		}
		if got, want := o.TextureIndex(), (i+1)%3; got != want {
			t.Errorf("object %d TextureIndex() = %d, want %d", i, got, want)
		}
		if got, want := o.Shift(), 0.125*float32(i); got != want {
			t.Errorf("object %d Shift() = %v, want %v", i, got, want)
		}
	}
	if sum.Length() > 1e-4 {
		t.Errorf("grid center = %v, want origin", sum.Scale(1.0/27))
	}

	plane := s.Object(s.Len() - 1)
	if plane.Position() != (common.Vec3{0, -3, 0}) || plane.Scale() != (common.Vec3{9, 1, 9}) {
		t.Errorf("plane pose = %v / %v, want (0,-3,0) / (9,1,9)", plane.Position(), plane.Scale())
	}
}

func TestGridSpacing(t *testing.T) {
	s := newTestScene(t, 2, WithObjectDistance(3))
	a, b := s.Object(0).Position(), s.Object(1).Position()
	if d := b.Sub(a).Length(); math.Abs(float64(d-3)) > 1e-5 {
		t.Errorf("neighbor distance = %v, want 3", d)
	}
}

func TestEmptyScene(t *testing.T) {
	s := newTestScene(t, 0)
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if err := s.Update(); err != nil {
		t.Errorf("Update() = %v", err)
	}
}

func TestUpdateRotatesCubesOnly(t *testing.T) {
	s := newTestScene(t, 2)
	before := s.Object(0).WorldMatrix()
	planeBefore := s.Object(s.Len() - 1).WorldMatrix()

	for range 3 {
		if err := s.Update(); err != nil {
			t.Fatalf("Update() = %v", err)
		}
	}
	if s.Ticks() != 3 {
		t.Errorf("Ticks() = %d, want 3", s.Ticks())
	}
	if got := s.Object(0).Rotation(); math.Abs(float64(got-0.03)) > 1e-6 {
		t.Errorf("cube rotation = %v, want 0.03", got)
	}
	if s.Object(0).WorldMatrix() == before {
		t.Error("cube world matrix unchanged after Update()")
	}
	if s.Object(s.Len()-1).WorldMatrix() != planeBefore {
		t.Error("plane world matrix changed after Update()")
	}
	if got := s.ViewCamera().Rotation(); math.Abs(float64(got-0.15)) > 1e-5 {
		t.Errorf("view camera rotation = %v, want 0.15", got)
	}
}

func TestUpdateIsDeterministic(t *testing.T) {
	a := newTestScene(t, 4, WithComputeWorkers(1))
	b := newTestScene(t, 4, WithComputeWorkers(8))
	for range 5 {
		if err := a.Update(); err != nil {
			t.Fatal(err)
		}
		if err := b.Update(); err != nil {
			t.Fatal(err)
		}
	}
	for i := range a.Len() {
		if a.Object(i).WorldMatrix() != b.Object(i).WorldMatrix() {
			t.Fatalf("object %d world matrix differs between pool sizes", i)
		}
	}
	if a.SceneConstants() != b.SceneConstants() {
		t.Error("scene constants differ between pool sizes")
	}
}

func TestSceneConstants(t *testing.T) {
	s := newTestScene(t, 3, WithShadowMapSize(1024), WithScreenSize(800, 600))
	c := s.SceneConstants()
	if c.ShadowMapSize != 1024 {
		t.Errorf("ShadowMapSize = %v, want 1024", c.ShadowMapSize)
	}
	if want := float32(math.Cbrt(28)); math.Abs(float64(c.SceneSize-want)) > 1e-5 {
		t.Errorf("SceneSize = %v, want %v", c.SceneSize, want)
	}
	if c.FogColor != (common.Vec3{ClearColor[0], ClearColor[1], ClearColor[2]}) {
		t.Errorf("FogColor = %v, want clear color", c.FogColor)
	}
	if c.ScreenSize != [2]float32{800, 600} {
		t.Errorf("ScreenSize = %v, want [800 600]", c.ScreenSize)
	}
	if len(c.Marshal()) != SceneConstantsSize {
		t.Errorf("len(Marshal()) = %d, want %d", len(c.Marshal()), SceneConstantsSize)
	}

	s.SetScreenSize(1000, 500)
	if got := s.ViewCamera().Aspect(); got != 2 {
		t.Errorf("Aspect() after SetScreenSize = %v, want 2", got)
	}
}
