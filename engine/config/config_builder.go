package config

// OptionsBuilderOption is a functional option applied on top of default or loaded Options.
type OptionsBuilderOption func(*Options)

// WithThreads enables or disables threaded G-buffer recording.
func WithThreads(enabled bool) OptionsBuilderOption {
	return func(o *Options) {
		o.Threads = enabled
	}
}

// WithWorkers sets the worker count; 0 selects the CPU count.
func WithWorkers(n int) OptionsBuilderOption {
	return func(o *Options) {
		o.Workers = n
	}
}

// WithShadowPass enables or disables the shadow depth pass.
func WithShadowPass(enabled bool) OptionsBuilderOption {
	return func(o *Options) {
		o.ShadowPass = enabled
	}
}

// WithTextures enables or disables per-object texture binding.
func WithTextures(enabled bool) OptionsBuilderOption {
	return func(o *Options) {
		o.Textures = enabled
	}
}

// WithRootConstants enables or disables per-object root constants.
func WithRootConstants(enabled bool) OptionsBuilderOption {
	return func(o *Options) {
		o.RootConstants = enabled
	}
}

// WithObjectsInRow sets the cube grid edge length.
func WithObjectsInRow(n int) OptionsBuilderOption {
	return func(o *Options) {
		o.ObjectsInRow = n
	}
}

// WithSize sets the initial surface size in pixels.
//
// Parameters:
//   - width, height: surface size
//
// Returns:
//   - OptionsBuilderOption: option function to apply
func WithSize(width, height int) OptionsBuilderOption {
	return func(o *Options) {
		o.Width = width
		o.Height = height
	}
}

// WithShadowMapSize sets the shadow depth target edge length.
func WithShadowMapSize(n int) OptionsBuilderOption {
	return func(o *Options) {
		o.ShadowMapSize = n
	}
}

// WithVSync selects FIFO presentation.
func WithVSync(enabled bool) OptionsBuilderOption {
	return func(o *Options) {
		o.VSync = enabled
	}
}

// WithFrames limits the render loop to n frames; 0 runs until closed.
func WithFrames(n int) OptionsBuilderOption {
	return func(o *Options) {
		o.Frames = n
	}
}

// WithObjectDistance sets the spacing between neighboring cubes.
func WithObjectDistance(d float32) OptionsBuilderOption {
	return func(o *Options) {
		o.ObjectDistance = d
	}
}
