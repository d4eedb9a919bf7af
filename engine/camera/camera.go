package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

type cameraImpl struct {
	mu *sync.Mutex

	center      common.Vec3
	radius      float32
	inclination float32 // degrees from the up axis
	rotation    float32 // degrees around the up axis
	up          common.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32

	eye                  common.Vec3
	viewMatrix           common.Mat4
	projectionMatrix     common.Mat4
	viewProjectionMatrix common.Mat4
}

// Camera is a spherical camera: the eye sits on a sphere around a center point, placed by
// an inclination measured from the up axis and a rotation around it. Every setter
// recomputes the view and projection matrices.
type Camera interface {
	// Center returns the point the camera orbits and looks at.
	Center() common.Vec3

	// Radius returns the distance from the center to the eye.
	Radius() float32

	// Inclination returns the angle from the up axis in degrees.
	Inclination() float32

	// Rotation returns the angle around the up axis in degrees.
	Rotation() float32

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// Eye returns the world-space eye position.
	//
	// Returns:
	//   - common.Vec3: the eye position
	Eye() common.Vec3

	// ViewMatrix returns the current view matrix (column-major).
	//
	// Returns:
	//   - common.Mat4: the view matrix
	ViewMatrix() common.Mat4

	// ProjectionMatrix returns the current projection matrix (column-major).
	//
	// Returns:
	//   - common.Mat4: the projection matrix
	ProjectionMatrix() common.Mat4

	// ViewProjectionMatrix returns projection * view.
	//
	// Returns:
	//   - common.Mat4: the combined view-projection matrix
	ViewProjectionMatrix() common.Mat4

	// Uniform returns the per-frame camera constants for GPU upload.
	//
	// Returns:
	//   - GPUCameraUniform: view-projection and eye position
	Uniform() GPUCameraUniform

	// SetCenter moves the orbit center.
	//
	// Parameters:
	//   - center: new center in world space
	SetCenter(center common.Vec3)

	// SetRadius sets the eye distance from the center.
	//
	// Parameters:
	//   - radius: new radius
	SetRadius(radius float32)

	// SetInclination sets the angle from the up axis.
	//
	// Parameters:
	//   - degrees: inclination in degrees
	SetInclination(degrees float32)

	// SetRotation sets the angle around the up axis.
	//
	// Parameters:
	//   - degrees: rotation in degrees
	SetRotation(degrees float32)

	// SetAspect sets the aspect ratio, typically after a surface resize.
	//
	// Parameters:
	//   - aspect: width / height
	SetAspect(aspect float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a spherical camera with the given options.
// Defaults: center at the origin, radius 1, fov 50°, aspect 16:9, near 0.1, far 100.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the configured camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		radius: 1,
		up:     common.Vec3{0, 1, 0},
		fov:    common.Radians(50),
		aspect: 16.0 / 9.0,
		near:   0.1,
		far:    100,
	}
	for _, opt := range options {
		opt(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Center() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.center
}

func (c *cameraImpl) Radius() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.radius
}

func (c *cameraImpl) Inclination() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inclination
}

func (c *cameraImpl) Rotation() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotation
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Eye() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye
}

func (c *cameraImpl) ViewMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCameraUniform{
		ViewProj:       c.viewProjectionMatrix,
		CameraPosition: c.eye,
	}
}

func (c *cameraImpl) SetCenter(center common.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.center = center
	c.updateMatrices()
}

func (c *cameraImpl) SetRadius(radius float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.radius = radius
	c.updateMatrices()
}

func (c *cameraImpl) SetInclination(degrees float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inclination = degrees
	c.updateMatrices()
}

func (c *cameraImpl) SetRotation(degrees float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rotation = degrees
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

// PointOnSphere returns the point at the given radius from center, inclination degrees away
// from the +Y axis and rotation degrees around it.
//
// Parameters:
//   - center: sphere center
//   - radius: sphere radius
//   - rotation: azimuth in degrees
//   - inclination: polar angle in degrees
//
// Returns:
//   - common.Vec3: the point in world space
func PointOnSphere(center common.Vec3, radius, rotation, inclination float32) common.Vec3 {
	inc := float64(common.Radians(inclination))
	rot := float64(common.Radians(rotation))
	return common.Vec3{
		center[0] + radius*float32(math.Sin(inc)*math.Cos(rot)),
		center[1] + radius*float32(math.Cos(inc)),
		center[2] + radius*float32(math.Sin(inc)*math.Sin(rot)),
	}
}

// updateMatrices recalculates the eye and all matrices. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	c.eye = PointOnSphere(c.center, c.radius, c.rotation, c.inclination)
	up := c.up
	// Looking straight along the up axis leaves the view basis undefined.
	if c.eye.Sub(c.center).Normalize().Cross(up).Length() < 1e-6 {
		up = common.Vec3{0, 0, 1}
	}
	c.viewMatrix = common.LookAt(c.eye, c.center, up)
	c.projectionMatrix = common.Perspective(c.fov, c.aspect, c.near, c.far)
	c.viewProjectionMatrix = c.projectionMatrix.Mul(c.viewMatrix)
}
