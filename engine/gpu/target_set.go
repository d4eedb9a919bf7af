package gpu

// TargetSet groups the color targets and optional depth target written together by one pass,
// along with the values they are cleared to.
type TargetSet struct {
	Colors     []Resource
	Depth      Resource
	ClearColor [4]float32
	ClearDepth float32
}

// NewTargetSet creates a TargetSet that clears colors to clearColor and depth to 1.0.
//
// Parameters:
//   - clearColor: RGBA value used by Clear for every color target
//   - depth: the depth target, or nil
//   - colors: the color targets in attachment order
//
// Returns:
//   - *TargetSet: the target set
func NewTargetSet(clearColor [4]float32, depth Resource, colors ...Resource) *TargetSet {
	return &TargetSet{
		Colors:     colors,
		Depth:      depth,
		ClearColor: clearColor,
		ClearDepth: 1.0,
	}
}

// Bind binds every target of the set on cb.
func (t *TargetSet) Bind(cb CommandBuffer) {
	cb.SetRenderTargets(t.Colors, t.Depth)
}

// Clear clears every target of the set on cb. The set must be bound.
func (t *TargetSet) Clear(cb CommandBuffer) {
	for _, c := range t.Colors {
		cb.ClearRenderTarget(c, t.ClearColor)
	}
	if t.Depth != nil {
		cb.ClearDepth(t.Depth, t.ClearDepth)
	}
}

// Resources returns every resource in the set, colors first.
//
// Returns:
//   - []Resource: color targets followed by the depth target if present
func (t *TargetSet) Resources() []Resource {
	out := make([]Resource, 0, len(t.Colors)+1)
	out = append(out, t.Colors...)
	if t.Depth != nil {
		out = append(out, t.Depth)
	}
	return out
}
