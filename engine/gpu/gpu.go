// Package gpu declares the backend-neutral contracts the frame orchestration
// core consumes: device, queue, fence, surface, command buffers and the opaque
// resource and pipeline handles. Concrete backends live in sub-packages.
package gpu

import "errors"

var (
	// ErrNotRecording is reported when a command is recorded into a buffer that is not open.
	ErrNotRecording = errors.New("gpu: command buffer is not open for recording")

	// ErrNotClosed is returned by Queue.Submit when a buffer in the batch was not closed.
	ErrNotClosed = errors.New("gpu: command buffer submitted before close")

	// ErrInFlight is returned by CommandBuffer.Reset while the buffer's previous submission is still executing.
	ErrInFlight = errors.New("gpu: command buffer reset while in flight")
)

// Resource is an opaque GPU image or buffer whose usage state is tracked across passes.
type Resource interface {
	// Label returns the debug name of the resource.
	//
	// Returns:
	//   - string: the resource label
	Label() string

	// Kind returns what sort of resource this is.
	//
	// Returns:
	//   - ResourceKind: the resource kind
	Kind() ResourceKind
}

// ConstantBuffer is a small uniform buffer written by the CPU and read by shaders.
// Writes are visible to every submission made after Write returns.
type ConstantBuffer interface {
	Resource

	// Size returns the buffer capacity in bytes.
	//
	// Returns:
	//   - int: capacity in bytes
	Size() int

	// Write copies data into the buffer at offset 0.
	//
	// Parameters:
	//   - data: bytes to upload, at most Size() long
	//
	// Returns:
	//   - error: error if data exceeds the capacity or the upload fails
	Write(data []byte) error
}

// Mesh is a shared, read-only indexed vertex set.
type Mesh interface {
	// Label returns the debug name of the mesh.
	//
	// Returns:
	//   - string: the mesh label
	Label() string

	// IndexCount returns the number of indices drawn by DrawIndexed.
	//
	// Returns:
	//   - uint32: index count
	IndexCount() uint32
}

// Pipeline is an opaque, pre-built pipeline-state handle for one logical pass.
type Pipeline interface {
	// Name returns the pipeline name given at creation.
	//
	// Returns:
	//   - string: the pipeline name
	Name() string
}

// CommandBuffer records GPU commands for later submission. A buffer is owned by exactly one
// goroutine at a time and cycles Reset -> record -> Close -> Submit.
//
// Recording methods do not return errors; the first recording failure is kept and reported
// by Err and by Close.
type CommandBuffer interface {
	// Label returns the debug name of the buffer.
	Label() string

	// Reset discards previous contents and opens the buffer for recording.
	//
	// Returns:
	//   - error: ErrInFlight if the previous submission has not retired, or a backend error
	Reset() error

	// Close finishes recording.
	//
	// Returns:
	//   - error: the first recording error, or a backend error finishing the buffer
	Close() error

	// Err returns the first error recorded since the last Reset, if any.
	Err() error

	// ResourceBarrier records state transitions for the given resources.
	ResourceBarrier(barriers ...Barrier)

	// SetRenderTargets binds color and depth targets for subsequent draws. Depth may be nil.
	SetRenderTargets(colors []Resource, depth Resource)

	// ClearRenderTarget clears a bound color target to the given RGBA value.
	ClearRenderTarget(target Resource, rgba [4]float32)

	// ClearDepth clears a bound depth target to the given depth value.
	ClearDepth(target Resource, depth float32)

	// SetPipeline binds the pipeline used by subsequent draws or dispatches.
	SetPipeline(p Pipeline)

	// SetConstantBuffer binds a constant buffer at the given slot.
	SetConstantBuffer(slot uint32, buf ConstantBuffer)

	// SetShaderResource binds a texture or storage buffer at the given slot.
	SetShaderResource(slot uint32, res Resource)

	// SetRootConstants uploads a few inline 32-bit values at the given slot.
	SetRootConstants(slot uint32, values ...float32)

	// DrawIndexed draws the mesh with the bound state.
	DrawIndexed(mesh Mesh, instanceCount uint32)

	// Draw draws non-indexed vertices generated by the vertex shader.
	Draw(vertexCount, instanceCount uint32)

	// Dispatch runs the bound compute pipeline.
	Dispatch(x, y, z uint32)
}

// Fence is a monotonically increasing GPU completion counter.
type Fence interface {
	// Completed returns the highest value the GPU has signaled.
	//
	// Returns:
	//   - uint64: completed fence value
	Completed() uint64

	// Notify returns a channel that is closed once Completed() >= value.
	// The channel is already closed when the value has been reached.
	//
	// Parameters:
	//   - value: the fence value to wait for
	//
	// Returns:
	//   - <-chan struct{}: completion channel for the value
	Notify(value uint64) <-chan struct{}
}

// Queue accepts closed command buffers and fence signal requests in submission order.
type Queue interface {
	// Submit enqueues a batch of closed command buffers for execution.
	//
	// Parameters:
	//   - buffers: the batch, executed in order
	//
	// Returns:
	//   - error: ErrNotClosed if a buffer is still open, or a backend submission error
	Submit(buffers ...CommandBuffer) error

	// Signal enqueues a GPU-side signal that sets the fence to value once prior work completes.
	//
	// Parameters:
	//   - f: the fence to signal
	//   - value: the value to set
	//
	// Returns:
	//   - error: backend error enqueueing the signal
	Signal(f Fence, value uint64) error
}

// Surface is the presentation swap chain.
type Surface interface {
	// CurrentBackBufferIndex returns the index of the back buffer that will be rendered next.
	CurrentBackBufferIndex() int

	// BackBufferCount returns the number of back buffers in the swap chain.
	BackBufferCount() int

	// BackBuffer returns the presentable resource for the given back-buffer index.
	BackBuffer(index int) Resource

	// Size returns the surface size in pixels.
	Size() (width, height int)

	// Present hands the current back buffer to the display.
	//
	// Returns:
	//   - error: presentation failure
	Present() error
}

// Device creates every GPU object the renderer needs. Creation methods are safe for
// concurrent use.
type Device interface {
	// Queue returns the device's single graphics queue.
	Queue() Queue

	// CreateCommandBuffer creates a command buffer in the Closed state.
	CreateCommandBuffer(label string) (CommandBuffer, error)

	// CreateFence creates a fence whose completed value starts at initial.
	CreateFence(initial uint64) (Fence, error)

	// CreateConstantBuffer creates a CPU-writable uniform buffer of the given size.
	CreateConstantBuffer(label string, size int) (ConstantBuffer, error)

	// CreateResource creates a render target, depth target, texture or storage buffer.
	CreateResource(desc ResourceDesc) (Resource, error)

	// CreateMesh uploads an indexed mesh.
	CreateMesh(label string, vertices []Vertex, indices []uint32) (Mesh, error)

	// CreatePipeline builds a pipeline-state object for one pass.
	CreatePipeline(desc PipelineDesc) (Pipeline, error)
}
