package scene

import "github.com/Carmen-Shannon/oxy-deferred/common"

// ObjectBuilderOption is a functional option for an object's initial pose.
type ObjectBuilderOption func(*object)

// WithPosition sets the initial translation.
func WithPosition(p common.Vec3) ObjectBuilderOption {
	return func(o *object) {
		o.position = p
	}
}

// WithScale sets the initial per-axis scale.
func WithScale(s common.Vec3) ObjectBuilderOption {
	return func(o *object) {
		o.scale = s
	}
}

// WithRotation sets the initial rotation around the X axis in radians.
func WithRotation(radians float32) ObjectBuilderOption {
	return func(o *object) {
		o.rotation = radians
	}
}
