package engine

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/sequencer"
)

func newTestRenderer(t *testing.T, options ...config.OptionsBuilderOption) renderer.Renderer {
	t.Helper()
	base := []config.OptionsBuilderOption{
		config.WithObjectsInRow(2),
		config.WithWorkers(2),
		config.WithSize(64, 48),
		config.WithShadowMapSize(64),
	}
	opts, err := config.New(append(base, options...)...)
	if err != nil {
		t.Fatalf("config.New() = %v", err)
	}
	r, err := renderer.NewRenderer(renderer.NewHeadlessBackend(opts), opts, renderer.WithComputeWorkers(2))
	if err != nil {
		t.Fatalf("NewRenderer() = %v", err)
	}
	t.Cleanup(func() { _ = r.Shutdown() })
	return r
}

func runWithTimeout(t *testing.T, e Engine) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- e.Run() }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return")
		return nil
	}
}

// failingRenderer fails RenderFrame once failAt frames have rendered.
type failingRenderer struct {
	renderer.Renderer
	failAt   int
	rendered int
}

var errFrame = errors.New("frame failed")

func (f *failingRenderer) RenderFrame() (sequencer.FrameStats, error) {
	if f.rendered == f.failAt {
		return sequencer.FrameStats{Index: uint64(f.rendered)}, errFrame
	}
	f.rendered++
	return f.Renderer.RenderFrame()
}

// fakeLoop spins until RequestClose, calling the update callback each iteration.
type fakeLoop struct {
	update func()
	closed atomic.Bool
}

func (l *fakeLoop) SetUpdateCallback(callback func()) { l.update = callback }
func (l *fakeLoop) RequestClose()                     { l.closed.Store(true) }

func (l *fakeLoop) ProcessMessages() {
	for !l.closed.Load() {
		if l.update != nil {
			l.update()
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRunStopsAtFrameLimit(t *testing.T) {
	r := newTestRenderer(t, config.WithFrames(4))

	var seen []uint64
	e := NewEngine(r, WithFrameCallback(func(stats sequencer.FrameStats) {
		seen = append(seen, stats.Index)
	}))
	if err := runWithTimeout(t, e); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if e.Frames() != 4 {
		t.Errorf("Frames() = %d, want 4", e.Frames())
	}
	if len(seen) != 4 || seen[3] != 3 {
		t.Errorf("frame callback saw %v, want indices 0..3", seen)
	}
	if _, err := r.RenderFrame(); !errors.Is(err, renderer.ErrShutdown) {
		t.Errorf("RenderFrame() after Run = %v, want ErrShutdown", err)
	}
}

func TestRunStopsOnFirstFrameError(t *testing.T) {
	r := &failingRenderer{Renderer: newTestRenderer(t), failAt: 2}

	e := NewEngine(r)
	err := runWithTimeout(t, e)
	if !errors.Is(err, errFrame) {
		t.Fatalf("Run() = %v, want errFrame", err)
	}
	if e.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", e.Frames())
	}
}

func TestRunClosesMessageLoopOnQuit(t *testing.T) {
	r := newTestRenderer(t)
	loop := &fakeLoop{}

	e := NewEngine(r, WithMessageLoop(loop), WithFrameLimit(0))
	go func() {
		for e.Frames() < 2 {
			time.Sleep(time.Millisecond)
		}
		e.Quit()
	}()
	if err := runWithTimeout(t, e); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if !loop.closed.Load() {
		t.Error("message loop was not closed after Quit")
	}
	if e.Frames() < 2 {
		t.Errorf("Frames() = %d, want >= 2", e.Frames())
	}
}

func TestToggleProfiler(t *testing.T) {
	e := NewEngine(newTestRenderer(t)).(*engine)
	e.ToggleProfiler()
	if !e.profilingEnabled.Load() {
		t.Error("ToggleProfiler() did not enable profiling")
	}
	e.DisableProfiler()
	e.ToggleProfiler()
	e.ToggleProfiler()
	if e.profilingEnabled.Load() {
		t.Error("profiling enabled after two toggles from disabled")
	}
}

func TestSetRenderFrameLimit(t *testing.T) {
	e := NewEngine(newTestRenderer(t), WithRenderFrameLimit(100)).(*engine)
	if got := time.Duration(e.renderFrameLimit.Load()); got != 10*time.Millisecond {
		t.Errorf("render frame limit = %v, want 10ms", got)
	}
	e.SetRenderFrameLimit(0)
	if e.renderFrameLimit.Load() != 0 {
		t.Error("SetRenderFrameLimit(0) did not uncap")
	}
}
