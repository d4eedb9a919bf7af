package scene

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

type object struct {
	mu *sync.Mutex

	index    int
	position common.Vec3
	rotation float32
	scale    common.Vec3
	dirty    bool

	world common.Mat4

	mesh         gpu.Mesh
	constants    gpu.ConstantBuffer
	textureIndex int
}

// Object is a drawable entity: a pose, a shared read-only mesh and a per-object constant
// buffer holding its world matrix. Pose setters are called by the update step only; Flush
// writes the constant buffer on the main goroutine before recording starts, so workers only
// ever read an object.
type Object interface {
	// Index returns the object's position in the scene's draw order.
	Index() int

	// Position returns the world-space translation.
	Position() common.Vec3

	// Rotation returns the rotation around the X axis in radians.
	Rotation() float32

	// Scale returns the per-axis scale.
	Scale() common.Vec3

	// SetPosition sets the world-space translation.
	//
	// Parameters:
	//   - p: new translation
	SetPosition(p common.Vec3)

	// SetRotation sets the rotation around the X axis.
	//
	// Parameters:
	//   - radians: new rotation
	SetRotation(radians float32)

	// SetScale sets the per-axis scale.
	//
	// Parameters:
	//   - s: new scale
	SetScale(s common.Vec3)

	// WorldMatrix returns the matrix computed by the last Flush.
	WorldMatrix() common.Mat4

	// Mesh returns the shared mesh.
	Mesh() gpu.Mesh

	// ConstantBuffer returns the object's constant buffer.
	ConstantBuffer() gpu.ConstantBuffer

	// TextureIndex returns the index of the texture bound when drawing this object.
	TextureIndex() int

	// Shift returns the per-object value uploaded as root constants.
	Shift() float32

	// Flush recomputes the world matrix and writes it to the constant buffer when the pose
	// changed since the last flush.
	//
	// Returns:
	//   - error: constant buffer write error
	Flush() error

	// Draw records the object's draw into cb.
	//
	// Parameters:
	//   - cb: command buffer open for recording
	//
	// Returns:
	//   - error: the buffer's recording error, if any
	Draw(cb gpu.CommandBuffer) error
}

var _ Object = &object{}

// NewObject creates an object and uploads its initial world matrix.
//
// Parameters:
//   - device: device used to allocate the constant buffer
//   - index: position in the draw order
//   - mesh: shared mesh
//   - textureCount: number of textures to cycle through; 0 disables texture indexing
//   - options: functional options for the initial pose
//
// Returns:
//   - Object: the object
//   - error: allocation or upload error
func NewObject(device gpu.Device, index int, mesh gpu.Mesh, textureCount int, options ...ObjectBuilderOption) (Object, error) {
	cb, err := device.CreateConstantBuffer(fmt.Sprintf("object %d", index), ObjectConstantsSize)
	if err != nil {
		return nil, fmt.Errorf("scene: object %d constants: %w", index, err)
	}

	o := &object{
		mu:        &sync.Mutex{},
		index:     index,
		scale:     common.Vec3{1, 1, 1},
		dirty:     true,
		mesh:      mesh,
		constants: cb,
	}
	if textureCount > 0 {
		o.textureIndex = (index + 1) % textureCount
	}
	for _, opt := range options {
		opt(o)
	}
	if err := o.Flush(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *object) Index() int { return o.index }

func (o *object) Position() common.Vec3 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.position
}

func (o *object) Rotation() float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rotation
}

func (o *object) Scale() common.Vec3 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.scale
}

func (o *object) SetPosition(p common.Vec3) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.position = p
	o.dirty = true
}

func (o *object) SetRotation(radians float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rotation = radians
	o.dirty = true
}

func (o *object) SetScale(s common.Vec3) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scale = s
	o.dirty = true
}

func (o *object) WorldMatrix() common.Mat4 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.world
}

func (o *object) Mesh() gpu.Mesh                     { return o.mesh }
func (o *object) ConstantBuffer() gpu.ConstantBuffer { return o.constants }
func (o *object) TextureIndex() int                  { return o.textureIndex }
func (o *object) Shift() float32                     { return 0.125 * float32(o.index) }

func (o *object) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.dirty {
		return nil
	}
	o.world = common.ModelMatrix(o.position, common.Vec3{o.rotation, 0, 0}, o.scale)
	c := ObjectConstants{World: o.world}
	if err := o.constants.Write(c.Marshal()); err != nil {
		return fmt.Errorf("scene: flush object %d: %w", o.index, err)
	}
	o.dirty = false
	return nil
}

func (o *object) Draw(cb gpu.CommandBuffer) error {
	cb.DrawIndexed(o.mesh, 1)
	return cb.Err()
}
