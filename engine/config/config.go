// Package config holds the renderer's options record. Options are assembled once, from
// defaults, an optional YAML file and command-line overrides, and are read-only afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FallbackWorkers is used when the CPU count cannot be determined.
const FallbackWorkers = 8

// Options configures the renderer.
type Options struct {
	// Threads records G-buffer draws on worker goroutines; false records on the main goroutine.
	Threads bool `yaml:"threads"`

	// Workers is the worker count used when Threads is set. 0 selects the CPU count.
	Workers int `yaml:"workers"`

	// ShadowPass enables the shadow depth pass.
	ShadowPass bool `yaml:"shadow_pass"`

	// Textures binds a per-object texture during G-buffer recording.
	Textures bool `yaml:"textures"`

	// RootConstants uploads a per-object shift as root constants.
	RootConstants bool `yaml:"root_constants"`

	// ObjectsInRow is the edge length of the cube grid; the scene has ObjectsInRow³ cubes.
	ObjectsInRow int `yaml:"objects_in_row"`

	// ObjectDistance is the spacing between neighboring cubes.
	ObjectDistance float32 `yaml:"object_distance"`

	// Width and Height are the initial surface size in pixels.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// ShadowMapSize is the edge length of the square shadow depth target.
	ShadowMapSize int `yaml:"shadow_map_size"`

	// VSync presents with FIFO pacing instead of immediately.
	VSync bool `yaml:"vsync"`

	// Frames stops the render loop after this many frames; 0 runs until closed.
	Frames int `yaml:"frames"`
}

// Default returns the options the renderer runs with when nothing is configured.
//
// Returns:
//   - Options: default options
func Default() Options {
	return Options{
		Threads:        true,
		Workers:        0,
		ShadowPass:     true,
		Textures:       true,
		RootConstants:  true,
		ObjectsInRow:   10,
		ObjectDistance: 1.0,
		Width:          1280,
		Height:         720,
		ShadowMapSize:  2048,
		VSync:          false,
		Frames:         0,
	}
}

// New builds options from the defaults and the given overrides.
//
// Parameters:
//   - options: functional options applied in order
//
// Returns:
//   - Options: the options
//   - error: validation error
func New(options ...OptionsBuilderOption) (Options, error) {
	o := Default()
	for _, opt := range options {
		opt(&o)
	}
	return o, o.Validate()
}

// Load reads a YAML options file on top of the defaults. Keys missing from the file keep
// their default values.
//
// Parameters:
//   - path: path to the YAML file
//   - options: overrides applied after the file
//
// Returns:
//   - Options: the options
//   - error: read, parse or validation error
func Load(path string, options ...OptionsBuilderOption) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	return Parse(data, options...)
}

// Parse decodes YAML options on top of the defaults.
//
// Parameters:
//   - data: YAML document
//   - options: overrides applied after the document
//
// Returns:
//   - Options: the options
//   - error: parse or validation error
func Parse(data []byte, options ...OptionsBuilderOption) (Options, error) {
	o := Default()
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Options{}, fmt.Errorf("config: parse options: %w", err)
	}
	for _, opt := range options {
		opt(&o)
	}
	return o, o.Validate()
}

// Validate reports the first nonsensical value.
func (o Options) Validate() error {
	var errs []error
	if o.Workers < 0 {
		errs = append(errs, fmt.Errorf("config: workers must be >= 0, got %d", o.Workers))
	}
	if o.ObjectsInRow < 0 {
		errs = append(errs, fmt.Errorf("config: objects_in_row must be >= 0, got %d", o.ObjectsInRow))
	}
	if o.ObjectDistance <= 0 {
		errs = append(errs, fmt.Errorf("config: object_distance must be > 0, got %g", o.ObjectDistance))
	}
	if o.Width <= 0 || o.Height <= 0 {
		errs = append(errs, fmt.Errorf("config: surface size must be positive, got %dx%d", o.Width, o.Height))
	}
	if o.ShadowMapSize <= 0 {
		errs = append(errs, fmt.Errorf("config: shadow_map_size must be > 0, got %d", o.ShadowMapSize))
	}
	if o.Frames < 0 {
		errs = append(errs, fmt.Errorf("config: frames must be >= 0, got %d", o.Frames))
	}
	return errors.Join(errs...)
}

// WorkerCount returns the number of worker buffers the renderer creates: 1 when threading is
// off, otherwise Workers or the CPU count.
func (o Options) WorkerCount() int {
	if !o.Threads {
		return 1
	}
	if o.Workers > 0 {
		return o.Workers
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return FallbackWorkers
}

// ObjectCount returns the number of cubes in the grid.
func (o Options) ObjectCount() int {
	return o.ObjectsInRow * o.ObjectsInRow * o.ObjectsInRow
}
