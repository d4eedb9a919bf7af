package camera

import "github.com/Carmen-Shannon/oxy-deferred/common"

type CameraBuilderOption func(*cameraImpl)

// WithCenter sets the point the camera orbits.
//
// Parameters:
//   - center: world-space center
//
// Returns:
//   - CameraBuilderOption: a function that sets the center
func WithCenter(center common.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.center = center
	}
}

// WithRadius sets the eye distance from the center.
//
// Parameters:
//   - radius: sphere radius
//
// Returns:
//   - CameraBuilderOption: a function that sets the radius
func WithRadius(radius float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.radius = radius
	}
}

// WithInclination sets the initial angle from the up axis in degrees.
func WithInclination(degrees float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.inclination = degrees
	}
}

// WithRotation sets the initial angle around the up axis in degrees.
func WithRotation(degrees float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.rotation = degrees
	}
}

// WithFov sets the camera's vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithClip sets the near and far clipping plane distances.
//
// Parameters:
//   - near: near plane distance (must be > 0)
//   - far: far plane distance (must be > near)
//
// Returns:
//   - CameraBuilderOption: a function that sets both planes
func WithClip(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
		c.far = far
	}
}
