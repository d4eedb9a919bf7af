package webgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// backBuffer stands for one swap-chain image. Its view is acquired from the surface the
// first time a pass renders into it.
type backBuffer struct {
	label   string
	index   int
	surface *Surface
}

var _ gpu.Resource = &backBuffer{}

func (b *backBuffer) Label() string          { return b.label }
func (b *backBuffer) Kind() gpu.ResourceKind { return gpu.KindBackBuffer }

// Surface is the window swap chain. wgpu does not expose image indices, so the surface keeps
// its own rotating index over BackBufferCount logical back buffers.
type Surface struct {
	mu      *sync.Mutex
	device  *Device
	surface *wgpu.Surface
	format  wgpu.TextureFormat
	width   int
	height  int

	buffers []*backBuffer
	current int

	frame *wgpu.Texture
	view  *wgpu.TextureView
}

var _ gpu.Surface = &Surface{}

func newSurface(d *Device, surface *wgpu.Surface, count int) *Surface {
	s := &Surface{
		mu:      &sync.Mutex{},
		device:  d,
		surface: surface,
		buffers: make([]*backBuffer, max(count, 2)),
	}
	for i := range s.buffers {
		s.buffers[i] = &backBuffer{label: fmt.Sprintf("BackBuffer%d", i), index: i, surface: s}
	}
	return s
}

// configure sets up the swap chain with the first supported format and alpha mode.
func (s *Surface) configure(width, height int, vsync bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	presentMode := wgpu.PresentModeImmediate
	if vsync {
		presentMode = wgpu.PresentModeFifo
	}
	capabilities := s.surface.GetCapabilities(s.device.adapter)
	s.format = capabilities.Formats[0]
	s.width, s.height = width, height

	s.surface.Configure(s.device.adapter, s.device.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      s.format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (s *Surface) CurrentBackBufferIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Surface) BackBufferCount() int {
	return len(s.buffers)
}

func (s *Surface) BackBuffer(index int) gpu.Resource {
	return s.buffers[index%len(s.buffers)]
}

func (s *Surface) Size() (int, int) {
	return s.width, s.height
}

// acquire returns the view of the current swap-chain image, acquiring it on first use in
// the frame.
func (s *Surface) acquire() (*wgpu.TextureView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view != nil {
		return s.view, nil
	}
	frame, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("webgpu: acquire back buffer: %w", err)
	}
	view, err := frame.CreateView(nil)
	if err != nil {
		frame.Release()
		return nil, fmt.Errorf("webgpu: acquire back buffer view: %w", err)
	}
	s.frame, s.view = frame, view
	return view, nil
}

func (s *Surface) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame == nil {
		return errors.New("webgpu: present without a rendered back buffer")
	}
	s.surface.Present()
	s.view.Release()
	s.frame.Release()
	s.view, s.frame = nil, nil
	s.current = (s.current + 1) % len(s.buffers)
	return nil
}

func (s *Surface) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view != nil {
		s.view.Release()
		s.frame.Release()
		s.view, s.frame = nil, nil
	}
	s.surface.Release()
}
