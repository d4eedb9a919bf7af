package headless

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

// Surface is an offscreen swap chain that rotates through its back buffers on Present.
type Surface struct {
	mu       *sync.Mutex
	width    int
	height   int
	buffers  []*resource
	current  int
	presents int
}

var _ gpu.Surface = &Surface{}

// NewSurface creates an offscreen surface.
//
// Parameters:
//   - width, height: surface size in pixels
//   - count: number of back buffers (values below 2 are raised to 2)
//
// Returns:
//   - *Surface: the surface
func NewSurface(width, height, count int) *Surface {
	count = max(count, 2)
	s := &Surface{
		mu:      &sync.Mutex{},
		width:   width,
		height:  height,
		buffers: make([]*resource, count),
	}
	for i := range s.buffers {
		s.buffers[i] = &resource{
			label: fmt.Sprintf("BackBuffer%d", i),
			kind:  gpu.KindBackBuffer,
		}
	}
	return s
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

func (s *Surface) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.presents++
	s.current = (s.current + 1) % len(s.buffers)
	return nil
}

// Presents returns how many frames have been presented.
func (s *Surface) Presents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}
