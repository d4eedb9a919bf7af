package scene

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logging"
)

// ClearColor is the color the G-buffer and HDR targets are cleared to; the lighting pass
// also uses it as fog color.
var ClearColor = [4]float32{0.0, 0.4, 0.7, 1.0}

// AmbientColor is the constant ambient term of the lighting pass.
var AmbientColor = common.Vec3{0.2, 0.2, 0.2}

const (
	// rotationStep is added to every cube's rotation each update, in radians.
	rotationStep = 0.01

	// viewRotationStep is added to the main camera's rotation each update, in degrees.
	viewRotationStep = 0.05

	// viewInclination is the main camera's fixed inclination in degrees.
	viewInclination = -30

	// minChunk is the smallest number of objects one pool task handles.
	minChunk = 128
)

type scene struct {
	mu *sync.RWMutex

	objectsInRow   int
	objectDistance float32
	shadowMapSize  int
	screenWidth    int
	screenHeight   int

	objects  []Object
	cubes    int
	meshes   [3]gpu.Mesh // filled cube, opened cube, plane
	textures []gpu.Resource

	viewCamera   camera.Camera
	shadowCamera camera.Camera
	viewRotation float32
	rotation     float32
	ticks        int

	// computePool runs setup-time object creation and per-frame constant flushes. Workers
	// persist across frames; a WaitGroup gives the per-call barrier.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
}

// Scene is the renderer's world: a grid of objectsInRow³ cubes spaced objectDistance apart
// around the origin, a ground plane below it, the main and shadow cameras and the textures
// the cubes cycle through. Update advances the animation by one frame and flushes every
// changed object's constants; it must not run while a frame is being recorded.
type Scene interface {
	// Objects returns every drawable in draw order: the cubes followed by the plane.
	Objects() []Object

	// Object returns the object at index i.
	Object(i int) Object

	// Len returns the number of drawables.
	Len() int

	// Cubes returns the number of grid cubes.
	Cubes() int

	// ObjectsInRow returns the grid edge length.
	ObjectsInRow() int

	// Textures returns the textures objects index into.
	Textures() []gpu.Resource

	// ViewCamera returns the main camera.
	ViewCamera() camera.Camera

	// ShadowCamera returns the light's camera.
	ShadowCamera() camera.Camera

	// Ticks returns the number of updates applied so far.
	Ticks() int

	// Update advances the scene by one frame and flushes object constants.
	//
	// Returns:
	//   - error: constant buffer write error
	Update() error

	// Flush writes the constants of every object whose pose changed.
	//
	// Returns:
	//   - error: joined constant buffer write errors
	Flush() error

	// SetScreenSize updates the main camera's aspect ratio and the screen size constant.
	//
	// Parameters:
	//   - width, height: surface size in pixels
	SetScreenSize(width, height int)

	// ViewConstants returns the per-frame constants of the G-buffer pass.
	ViewConstants() camera.GPUCameraUniform

	// ShadowConstants returns the per-frame constants of the shadow pass.
	ShadowConstants() camera.GPUCameraUniform

	// SceneConstants returns the per-frame constants of the AO, lighting and tone-map passes.
	SceneConstants() SceneConstants
}

var _ Scene = &scene{}

// NewScene builds the cube grid, the plane, the textures and both cameras on device. Object
// constant buffers are created in parallel on the scene's compute pool.
//
// Parameters:
//   - device: device allocating meshes, textures and constant buffers
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the scene
//   - error: resource creation error
func NewScene(device gpu.Device, options ...SceneBuilderOption) (Scene, error) {
	s := &scene{
		mu:             &sync.RWMutex{},
		objectsInRow:   10,
		objectDistance: 1.0,
		shadowMapSize:  2048,
		screenWidth:    1280,
		screenHeight:   720,
		computeWorkers: max(runtime.NumCPU()-1, 1),
	}
	for _, opt := range options {
		opt(s)
	}

	n := float32(max(s.objectsInRow, 1))
	s.viewCamera = camera.NewCamera(
		camera.WithRadius(n),
		camera.WithInclination(viewInclination),
		camera.WithFov(common.Radians(50)),
		camera.WithClip(0.1, n*5),
		camera.WithAspect(float32(s.screenWidth)/float32(s.screenHeight)),
	)
	s.shadowCamera = camera.NewCamera(
		camera.WithRadius(n*2),
		camera.WithFov(common.Radians(90)),
		camera.WithClip(1.0, n*5),
		camera.WithAspect(1),
	)

	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)

	if err := s.createMeshes(device); err != nil {
		return nil, err
	}
	textures, err := createTextures(device)
	if err != nil {
		return nil, err
	}
	s.textures = textures
	if err := s.createObjects(device); err != nil {
		return nil, err
	}

	logging.For("scene").Debug("scene created",
		"cubes", s.cubes, "drawables", len(s.objects), "compute_workers", s.computeWorkers)
	return s, nil
}

func (s *scene) createMeshes(device gpu.Device) error {
	builders := []struct {
		label string
		build func() ([]gpu.Vertex, []uint32)
	}{
		{"filled cube", FilledCube},
		{"opened cube", OpenedCube},
		{"plane", Plane},
	}
	for i, b := range builders {
		vertices, indices := b.build()
		m, err := device.CreateMesh(b.label, vertices, indices)
		if err != nil {
			return fmt.Errorf("scene: mesh %q: %w", b.label, err)
		}
		s.meshes[i] = m
	}
	return nil
}

// gridPosition returns the center of cube i, with the grid centered on the origin.
func (s *scene) gridPosition(i int) common.Vec3 {
	n := s.objectsInRow
	plane := i / (n * n)
	row := i / n % n
	col := i % n
	offset := float32(n-1) * s.objectDistance / 2
	return common.Vec3{
		s.objectDistance*float32(col) - offset,
		s.objectDistance*float32(plane) - offset,
		s.objectDistance*float32(row) - offset,
	}
}

func (s *scene) createObjects(device gpu.Device) error {
	n := s.objectsInRow
	s.cubes = n * n * n
	if s.cubes == 0 {
		return nil
	}

	objects := make([]Object, s.cubes)
	texCount := len(s.textures)
	err := s.parallel(s.cubes, func(start, end int) error {
		var errs []error
		for id := start; id < end; id++ {
			mesh := s.meshes[0]
			if id%2 == 1 {
				mesh = s.meshes[1]
			}
			o, err := NewObject(device, id, mesh, texCount,
				WithPosition(s.gridPosition(id)),
				WithScale(common.Vec3{0.5, 0.5, 0.5}),
			)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			objects[id] = o
		}
		return errors.Join(errs...)
	})
	if err != nil {
		return err
	}

	side := float32(n * n)
	plane, err := NewObject(device, s.cubes, s.meshes[2], texCount,
		WithPosition(common.Vec3{0, -float32(n), 0}),
		WithScale(common.Vec3{side, 1, side}),
	)
	if err != nil {
		return err
	}
	s.objects = append(objects, plane)
	return nil
}

func (s *scene) Objects() []Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects
}

func (s *scene) Object(i int) Object {
	return s.objects[i]
}

func (s *scene) Len() int { return len(s.objects) }

func (s *scene) Cubes() int { return s.cubes }

func (s *scene) ObjectsInRow() int { return s.objectsInRow }

func (s *scene) Textures() []gpu.Resource { return s.textures }

func (s *scene) ViewCamera() camera.Camera { return s.viewCamera }

func (s *scene) ShadowCamera() camera.Camera { return s.shadowCamera }

func (s *scene) Ticks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticks
}

func (s *scene) Update() error {
	s.mu.Lock()
	s.rotation += rotationStep
	s.ticks++
	s.viewRotation += viewRotationStep
	t := float64(s.ticks)
	rotation := s.rotation
	viewRotation := s.viewRotation
	s.mu.Unlock()

	for _, o := range s.objects[:s.cubes] {
		o.SetRotation(rotation)
	}

	s.shadowCamera.SetRotation(float32(t * 0.1))
	s.shadowCamera.SetInclination(float32(math.Sin(t*0.01) * 45))

	n := float64(max(s.objectsInRow, 1))
	s.viewCamera.SetInclination(viewInclination)
	s.viewCamera.SetRotation(viewRotation)
	s.viewCamera.SetRadius(float32((math.Sin(t*0.005)+1)*n/2 + n))

	return s.Flush()
}

func (s *scene) Flush() error {
	return s.parallel(len(s.objects), func(start, end int) error {
		return flushRange(s.objects[start:end])
	})
}

// parallel splits [0, total) into at most computeWorkers chunks of at least minChunk
// items and runs fn on each chunk through the compute pool, returning once all finish.
func (s *scene) parallel(total int, fn func(start, end int) error) error {
	if total == 0 {
		return nil
	}
	chunk := max(minChunk, (total+s.computeWorkers-1)/s.computeWorkers)
	if chunk >= total {
		return fn(0, total)
	}

	var wg sync.WaitGroup
	var errMu sync.Mutex
	var errs []error
	for start, id := 0, 0; start < total; start, id = start+chunk, id+1 {
		end := min(start+chunk, total)
		wg.Add(1)
		s.computePool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				err := fn(start, end)
				if err != nil {
					errMu.Lock()
					errs = append(errs, err)
					errMu.Unlock()
				}
				return nil, err
			},
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}

func flushRange(objects []Object) error {
	var errs []error
	for _, o := range objects {
		if err := o.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *scene) SetScreenSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.mu.Lock()
	s.screenWidth, s.screenHeight = width, height
	s.mu.Unlock()
	s.viewCamera.SetAspect(float32(width) / float32(height))
}

func (s *scene) ViewConstants() camera.GPUCameraUniform {
	return s.viewCamera.Uniform()
}

func (s *scene) ShadowConstants() camera.GPUCameraUniform {
	return s.shadowCamera.Uniform()
}

func (s *scene) SceneConstants() SceneConstants {
	s.mu.RLock()
	width, height := s.screenWidth, s.screenHeight
	s.mu.RUnlock()

	light := s.shadowCamera.Eye()
	eye := s.viewCamera.Eye()
	inverse, _ := s.viewCamera.ViewProjectionMatrix().Invert()
	return SceneConstants{
		LightPosition:   [4]float32{light[0], light[1], light[2], 1},
		AmbientColor:    AmbientColor,
		ShadowMapSize:   float32(s.shadowMapSize),
		FogColor:        common.Vec3{ClearColor[0], ClearColor[1], ClearColor[2]},
		SceneSize:       float32(math.Pow(float64(len(s.objects)), 1.0/3.0)),
		ShadowMatrix:    s.shadowCamera.ViewProjectionMatrix(),
		InverseViewProj: inverse,
		CameraPosition:  [4]float32{eye[0], eye[1], eye[2], 1},
		ScreenSize:      [2]float32{float32(width), float32(height)},
	}
}
