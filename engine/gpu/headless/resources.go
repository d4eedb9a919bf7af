package headless

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

type resource struct {
	label string
	kind  gpu.ResourceKind
	desc  gpu.ResourceDesc
}

var _ gpu.Resource = &resource{}

func (r *resource) Label() string         { return r.label }
func (r *resource) Kind() gpu.ResourceKind { return r.kind }

// constantBuffer keeps the bytes last written by the CPU.
type constantBuffer struct {
	mu    *sync.Mutex
	label string
	data  []byte
}

var _ gpu.ConstantBuffer = &constantBuffer{}

func (c *constantBuffer) Label() string         { return c.label }
func (c *constantBuffer) Kind() gpu.ResourceKind { return gpu.KindConstantBuffer }
func (c *constantBuffer) Size() int              { return len(c.data) }

func (c *constantBuffer) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(data) > len(c.data) {
		return fmt.Errorf("headless: write of %d bytes exceeds constant buffer %q of %d bytes", len(data), c.label, len(c.data))
	}
	copy(c.data, data)
	return nil
}

// snapshot returns a copy of the current contents.
func (c *constantBuffer) snapshot() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]byte, len(c.data))
	copy(out, c.data)
	return out
}

type mesh struct {
	label      string
	vertices   int
	indexCount uint32
}

var _ gpu.Mesh = &mesh{}

func (m *mesh) Label() string      { return m.label }
func (m *mesh) IndexCount() uint32 { return m.indexCount }

type pipeline struct {
	desc gpu.PipelineDesc
}

var _ gpu.Pipeline = &pipeline{}

func (p *pipeline) Name() string { return p.desc.Name }
