// Package engine runs the render loop: each iteration updates the scene, then renders one
// frame, until the frame limit is reached, the window closes or a frame fails.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/logging"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/sequencer"
)

// MessageLoop is a platform message loop run on the goroutine that calls Engine.Run.
// window.Window satisfies it.
type MessageLoop interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	SetUpdateCallback(callback func())

	// ProcessMessages blocks until the loop exits.
	ProcessMessages()

	// RequestClose asks the loop to exit. Safe to call from any goroutine.
	RequestClose()
}

// engine implements the Engine interface.
// Coordinates the render goroutine and the message loop.
type engine struct {
	renderer renderer.Renderer
	loop     MessageLoop

	wg sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	frameLimit       int
	frames           atomic.Uint64
	frameCallback    func(stats sequencer.FrameStats)
	renderFrameLimit atomic.Int64 // minimum frame duration in nanoseconds; 0 = uncapped

	errMu     *sync.Mutex
	renderErr error
}

// Engine is the main entry point for the engine.
// It owns the render loop and the renderer's shutdown.
type Engine interface {
	// Renderer returns the renderer driven by the engine.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// ToggleProfiler flips profiling output on or off.
	ToggleProfiler()

	// SetFrameCallback registers the function called after each rendered frame, on the
	// render goroutine. Must be called before Run.
	//
	// Parameters:
	//   - callback: function receiving the frame's statistics
	SetFrameCallback(callback func(stats sequencer.FrameStats))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Frames returns the number of frames rendered so far.
	Frames() uint64

	// Run starts the render loop and blocks until it stops, then shuts the renderer down.
	// With a message loop, the loop runs on the calling goroutine.
	//
	// Returns:
	//   - error: the first fatal frame error joined with any shutdown error
	Run() error

	// Quit signals the render loop to stop after the current frame.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine driving r. The frame limit defaults to the renderer's
// Frames option.
//
// Parameters:
//   - r: the renderer to drive
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(r renderer.Renderer, options ...EngineBuilderOption) Engine {
	e := &engine{
		renderer:    r,
		quitChannel: make(chan struct{}),
		profiler:    profiler.NewProfiler(),
		frameLimit:  r.Options().Frames,
		errMu:       &sync.Mutex{},
	}

	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() error {
	e.wg.Add(1)
	go e.handleRender()

	if e.loop != nil {
		e.loop.SetUpdateCallback(func() {
			select {
			case <-e.quitChannel:
				e.loop.RequestClose()
			default:
			}
		})
		e.loop.ProcessMessages()
		e.signalQuit()
	} else {
		<-e.quitChannel
	}
	e.wg.Wait()

	logging.For("engine").Info("render loop stopped", "frames", e.frames.Load())
	return errors.Join(e.err(), e.renderer.Shutdown())
}

// Quit signals all engine goroutines to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) fail(err error) {
	e.errMu.Lock()
	if e.renderErr == nil {
		e.renderErr = err
	}
	e.errMu.Unlock()
	e.signalQuit()
}

func (e *engine) err() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.renderErr
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.fail(fmt.Errorf("engine: render goroutine panic: %v", r))
		}
	}()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		start := time.Now()
		if err := e.renderer.Update(); err != nil {
			e.fail(fmt.Errorf("engine: update: %w", err))
			return
		}
		stats, err := e.renderer.RenderFrame()
		if err != nil {
			e.fail(fmt.Errorf("engine: frame %d: %w", stats.Index, err))
			return
		}
		n := e.frames.Add(1)

		if e.frameCallback != nil {
			e.frameCallback(stats)
		}
		if e.profilingEnabled.Load() {
			e.profiler.Tick(stats)
		}
		if e.frameLimit > 0 && n >= uint64(e.frameLimit) {
			e.signalQuit()
			return
		}

		// Frame rate limiting
		if limit := time.Duration(e.renderFrameLimit.Load()); limit > 0 {
			if remaining := limit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

func (e *engine) ToggleProfiler() {
	for {
		old := e.profilingEnabled.Load()
		if e.profilingEnabled.CompareAndSwap(old, !old) {
			return
		}
	}
}

func (e *engine) SetFrameCallback(callback func(stats sequencer.FrameStats)) {
	e.frameCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit.Store(0)
		return
	}
	e.renderFrameLimit.Store(int64(time.Duration(float64(time.Second) / fps)))
}

func (e *engine) Frames() uint64 {
	return e.frames.Load()
}
