package renderer

import (
	"errors"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/headless"
)

func testOptions(t *testing.T, options ...config.OptionsBuilderOption) config.Options {
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
	return opts
}

func newTestRenderer(t *testing.T, opts config.Options, options ...RendererBuilderOption) (Renderer, Backend) {
	t.Helper()
	backend := NewHeadlessBackend(opts)
	r, err := NewRenderer(backend, opts, append([]RendererBuilderOption{WithComputeWorkers(2)}, options...)...)
	if err != nil {
		t.Fatalf("NewRenderer() = %v", err)
	}
	t.Cleanup(func() { _ = r.Shutdown() })
	return r, backend
}

func TestRendererRendersFrames(t *testing.T) {
	for _, threads := range []bool{false, true} {
		opts := testOptions(t, config.WithThreads(threads))
		r, backend := newTestRenderer(t, opts)

		var last uint64
		for i := range 3 {
			if err := r.Update(); err != nil {
				t.Fatalf("threads=%v: Update() = %v", threads, err)
			}
			stats, err := r.RenderFrame()
			if err != nil {
				t.Fatalf("threads=%v: RenderFrame() = %v", threads, err)
			}
			if stats.Index != uint64(i) {
				t.Errorf("threads=%v: frame %d Index = %d", threads, i, stats.Index)
			}
			if stats.FenceValue <= last {
				t.Errorf("threads=%v: frame %d FenceValue = %d, want > %d", threads, i, stats.FenceValue, last)
			}
			last = stats.FenceValue
			if stats.Objects != r.Scene().Len() {
				t.Errorf("threads=%v: frame %d Objects = %d, want %d", threads, i, stats.Objects, r.Scene().Len())
			}
		}
		if got := backend.Surface.(*headless.Surface).Presents(); got != 3 {
			t.Errorf("threads=%v: Presents() = %d, want 3", threads, got)
		}
		if r.Gate().Completed() != last {
			t.Errorf("threads=%v: Completed() = %d, want %d", threads, r.Gate().Completed(), last)
		}
	}
}

func TestRendererWorkerCount(t *testing.T) {
	r, _ := newTestRenderer(t, testOptions(t, config.WithThreads(false)))
	if r.Workers() != 1 || r.Threaded() {
		t.Errorf("single-threaded renderer: Workers() = %d, Threaded() = %v", r.Workers(), r.Threaded())
	}

	r, _ = newTestRenderer(t, testOptions(t, config.WithWorkers(3)))
	if r.Workers() != 3 || !r.Threaded() {
		t.Errorf("threaded renderer: Workers() = %d, Threaded() = %v", r.Workers(), r.Threaded())
	}
	if r.Backend() != BackendTypeHeadless {
		t.Errorf("Backend() = %v, want headless", r.Backend())
	}
}

func TestRendererClaimHookSeesEveryObject(t *testing.T) {
	mu := &sync.Mutex{}
	claimed := make(map[int]int)
	r, _ := newTestRenderer(t, testOptions(t), WithClaimHook(func(worker, index int) {
		mu.Lock()
		claimed[index]++
		mu.Unlock()
	}))

	if _, err := r.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame() = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(claimed) != r.Scene().Len() {
		t.Fatalf("claimed %d distinct objects, want %d", len(claimed), r.Scene().Len())
	}
	for index, n := range claimed {
		if n != 1 {
			t.Errorf("object %d claimed %d times, want 1", index, n)
		}
	}
}

func TestRendererShutdown(t *testing.T) {
	opts := testOptions(t)
	r, _ := newTestRenderer(t, opts)
	if _, err := r.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame() = %v", err)
	}

	if err := r.Shutdown(); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}
	if err := r.Shutdown(); err != nil {
		t.Errorf("second Shutdown() = %v, want nil", err)
	}
	if _, err := r.RenderFrame(); !errors.Is(err, ErrShutdown) {
		t.Errorf("RenderFrame() after Shutdown = %v, want ErrShutdown", err)
	}
	if err := r.Update(); !errors.Is(err, ErrShutdown) {
		t.Errorf("Update() after Shutdown = %v, want ErrShutdown", err)
	}
	if r.Gate().Completed() != r.Gate().Value() {
		t.Errorf("Completed() = %d after Shutdown, want %d", r.Gate().Completed(), r.Gate().Value())
	}
}

func TestNewRendererErrors(t *testing.T) {
	opts := testOptions(t)

	if _, err := NewRenderer(Backend{}, opts); err == nil {
		t.Error("NewRenderer(empty backend) = nil, want error")
	}

	bad := opts
	bad.ObjectDistance = 0
	backend := NewHeadlessBackend(opts)
	defer backend.Close()
	if _, err := NewRenderer(backend, bad); err == nil {
		t.Error("NewRenderer(object_distance 0) = nil, want error")
	}
}

func TestBackendTypeString(t *testing.T) {
	tests := []struct {
		typ  RendererBackendType
		want string
	}{
		{BackendTypeWGPU, "wgpu"},
		{BackendTypeHeadless, "headless"},
		{RendererBackendType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
