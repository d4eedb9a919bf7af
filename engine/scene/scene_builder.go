package scene

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithObjectsInRow sets the grid edge length; the scene holds n³ cubes plus the plane.
// 0 builds an empty scene with no drawables.
//
// Parameters:
//   - n: cubes per grid row
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjectsInRow(n int) SceneBuilderOption {
	return func(s *scene) {
		s.objectsInRow = max(n, 0)
	}
}

// WithObjectDistance sets the spacing between neighboring cubes.
//
// Parameters:
//   - d: distance between cube centers
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjectDistance(d float32) SceneBuilderOption {
	return func(s *scene) {
		s.objectDistance = d
	}
}

// WithShadowMapSize sets the shadow map edge length reported in the scene constants.
func WithShadowMapSize(n int) SceneBuilderOption {
	return func(s *scene) {
		s.shadowMapSize = n
	}
}

// WithScreenSize sets the initial surface size used for the main camera's aspect ratio.
func WithScreenSize(width, height int) SceneBuilderOption {
	return func(s *scene) {
		if width > 0 && height > 0 {
			s.screenWidth, s.screenHeight = width, height
		}
	}
}

// WithComputeWorkers sets the number of worker goroutines used for setup and per-frame
// constant flushes. Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}
