// Package renderer assembles the deferred renderer: scene, frame fence gate, command buffer
// pool, resource state tracker, worker draw dispatcher and pass sequencer over one backend.
package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/engine/command"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-deferred/engine/fence"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logging"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/sequencer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/state"
)

// ErrShutdown is returned by RenderFrame and Update after Shutdown.
var ErrShutdown = errors.New("renderer: shut down")

// Renderer draws the scene one frame at a time. Update and RenderFrame must be called from
// the same goroutine.
type Renderer interface {
	// Update advances the scene by one frame.
	//
	// Returns:
	//   - error: scene update error, or ErrShutdown
	Update() error

	// RenderFrame records, submits and presents one frame and waits for it to retire.
	//
	// Returns:
	//   - sequencer.FrameStats: statistics of the frame
	//   - error: the frame's fatal error, or ErrShutdown
	RenderFrame() (sequencer.FrameStats, error)

	// Scene returns the scene being drawn.
	Scene() scene.Scene

	// Gate returns the frame fence gate.
	Gate() fence.Gate

	// Workers returns the number of G-buffer workers.
	Workers() int

	// Threaded reports whether G-buffer workers run on their own goroutines.
	Threaded() bool

	// Options returns the options the renderer was built with.
	Options() config.Options

	// Backend returns the backend type.
	Backend() RendererBackendType

	// Shutdown stops the workers, waits for the GPU to retire all submitted work and closes
	// the backend. Safe to call more than once.
	//
	// Returns:
	//   - error: error from the final fence wait or the backend close
	Shutdown() error
}

type renderer struct {
	mu      *sync.Mutex
	backend Backend
	opts    config.Options

	scene      scene.Scene
	gate       fence.Gate
	pool       command.Pool
	tracker    state.Tracker
	dispatcher dispatch.Dispatcher
	sequencer  sequencer.Sequencer

	onReset        func(command.ResetEvent)
	onClaim        func(worker, index int)
	computeWorkers int

	shutdown    bool
	shutdownErr error
}

var _ Renderer = &renderer{}

// NewRenderer builds every frame orchestration component on the backend.
//
// Parameters:
//   - backend: the device and surface to render with
//   - opts: validated renderer options
//   - options: functional options for the renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: error if the options are invalid or any component could not be created
func NewRenderer(backend Backend, opts config.Options, options ...RendererBuilderOption) (Renderer, error) {
	if backend.Device == nil || backend.Surface == nil {
		return nil, errors.New("renderer: backend has no device or surface")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	r := &renderer{
		mu:      &sync.Mutex{},
		backend: backend,
		opts:    opts,
	}
	for _, opt := range options {
		opt(r)
	}

	width, height := backend.Surface.Size()
	sceneOptions := []scene.SceneBuilderOption{
		scene.WithObjectsInRow(opts.ObjectsInRow),
		scene.WithObjectDistance(opts.ObjectDistance),
		scene.WithShadowMapSize(opts.ShadowMapSize),
		scene.WithScreenSize(width, height),
	}
	if r.computeWorkers > 0 {
		sceneOptions = append(sceneOptions, scene.WithComputeWorkers(r.computeWorkers))
	}

	var err error
	if r.scene, err = scene.NewScene(backend.Device, sceneOptions...); err != nil {
		return nil, fmt.Errorf("renderer: scene: %w", err)
	}
	if r.gate, err = fence.NewGate(backend.Device, backend.Surface); err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}

	var poolOptions []command.PoolBuilderOption
	if r.onReset != nil {
		poolOptions = append(poolOptions, command.WithResetHook(r.onReset))
	}
	if r.pool, err = command.NewPool(backend.Device, opts.WorkerCount(), r.gate, poolOptions...); err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	r.tracker = state.NewTracker()

	dispatchOptions := []dispatch.DispatcherBuilderOption{dispatch.WithThreads(opts.Threads)}
	if r.onClaim != nil {
		dispatchOptions = append(dispatchOptions, dispatch.WithClaimHook(r.onClaim))
	}
	if r.dispatcher, err = dispatch.NewDispatcher(r.pool.Workers(), dispatchOptions...); err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}

	resources, err := sequencer.NewResources(backend.Device, width, height, opts.ShadowMapSize)
	if err != nil {
		r.dispatcher.Shutdown()
		return nil, fmt.Errorf("renderer: %w", err)
	}
	pipelines, err := sequencer.NewPipelines(backend.Device)
	if err != nil {
		r.dispatcher.Shutdown()
		return nil, fmt.Errorf("renderer: %w", err)
	}
	r.sequencer, err = sequencer.NewSequencer(
		backend.Device,
		backend.Surface,
		r.gate,
		r.pool,
		r.tracker,
		r.dispatcher,
		r.scene,
		resources,
		pipelines,
		sequencer.WithShadowPass(opts.ShadowPass),
		sequencer.WithTextures(opts.Textures),
		sequencer.WithRootConstants(opts.RootConstants),
	)
	if err != nil {
		r.dispatcher.Shutdown()
		return nil, fmt.Errorf("renderer: %w", err)
	}

	logging.For("renderer").Info("renderer ready",
		"backend", backend.Type,
		"objects", r.scene.Len(),
		"workers", r.dispatcher.Workers(),
		"threads", r.dispatcher.Threaded(),
		"shadow_pass", opts.ShadowPass,
		"textures", opts.Textures,
		"root_constants", opts.RootConstants,
	)
	return r, nil
}

func (r *renderer) Update() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		return ErrShutdown
	}
	return r.scene.Update()
}

func (r *renderer) RenderFrame() (sequencer.FrameStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		return sequencer.FrameStats{}, ErrShutdown
	}
	return r.sequencer.RenderFrame()
}

func (r *renderer) Scene() scene.Scene {
	return r.scene
}

func (r *renderer) Gate() fence.Gate {
	return r.gate
}

func (r *renderer) Workers() int {
	return r.dispatcher.Workers()
}

func (r *renderer) Threaded() bool {
	return r.dispatcher.Threaded()
}

func (r *renderer) Options() config.Options {
	return r.opts
}

func (r *renderer) Backend() RendererBackendType {
	return r.backend.Type
}

func (r *renderer) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		return r.shutdownErr
	}
	r.shutdown = true

	// Workers first so no goroutine records while the queue drains.
	r.dispatcher.Shutdown()

	var errs []error
	if _, err := r.gate.SignalAndWait(r.backend.Device.Queue()); err != nil {
		errs = append(errs, fmt.Errorf("renderer: final fence wait: %w", err))
	}
	r.gate.Close()
	if r.backend.Close != nil {
		if err := r.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("renderer: close backend: %w", err))
		}
	}
	r.shutdownErr = errors.Join(errs...)

	stats := r.gate.Stats()
	logging.For("renderer").Info("renderer shut down",
		"frames", r.sequencer.FrameIndex(),
		"fence_value", r.gate.Value(),
		"waits", stats.Waits,
		"blocked", stats.Blocked,
	)
	return r.shutdownErr
}
