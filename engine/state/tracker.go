// Package state tracks the logical usage state of every shared GPU resource and emits the
// barriers that move resources between states. Passes never write barriers by hand; they
// ask the Tracker for the state they need and the Tracker works out the source state.
package state

import (
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

var (
	// ErrUnknownResource is returned for resources that were never registered.
	ErrUnknownResource = errors.New("state: resource is not tracked")

	// ErrNotReadable is returned by RequireReadable when a resource is still writable.
	ErrNotReadable = errors.New("state: resource is bound for reading while writable")

	// ErrWrongState is returned by RequireState when a resource is not in the required state.
	ErrWrongState = errors.New("state: resource is not in the required state")
)

// Transition is a requested state for one resource.
type Transition struct {
	Resource gpu.Resource
	To       gpu.ResourceState
}

// Tracker is the explicit resource -> state table.
type Tracker interface {
	// Register starts tracking a resource in its initial state. Registering a tracked
	// resource again replaces its state.
	Register(res gpu.Resource, initial gpu.ResourceState)

	// State returns the current state of a resource.
	//
	// Returns:
	//   - gpu.ResourceState: current state
	//   - bool: false if the resource is not tracked
	State(res gpu.Resource) (gpu.ResourceState, bool)

	// Transition moves a resource to state to, recording the barrier into cb. A resource
	// already in the target state produces no barrier.
	//
	// Returns:
	//   - bool: true if a barrier was recorded
	//   - error: ErrUnknownResource
	Transition(cb gpu.CommandBuffer, res gpu.Resource, to gpu.ResourceState) (bool, error)

	// TransitionAll moves several resources in one barrier batch, skipping no-ops.
	//
	// Returns:
	//   - int: number of barriers recorded
	//   - error: ErrUnknownResource; nothing is recorded on error
	TransitionAll(cb gpu.CommandBuffer, transitions ...Transition) (int, error)

	// RequireReadable fails if a resource is in a writable state.
	RequireReadable(res gpu.Resource) error

	// RequireState fails with ErrWrongState unless a resource is exactly in state want.
	RequireState(res gpu.Resource, want gpu.ResourceState) error

	// BeginFrame clears the per-frame transition log.
	BeginFrame()

	// Log returns the barriers recorded since BeginFrame, in order.
	Log() []gpu.Barrier

	// Snapshot copies the current state table.
	Snapshot() Snapshot

	// Restore replaces the state of every resource in snap with its snapshot state.
	// Resources registered after the snapshot keep their current state.
	Restore(snap Snapshot)
}

// Snapshot is a copy of a tracker's state table.
type Snapshot map[gpu.Resource]gpu.ResourceState

type tracker struct {
	mu     *sync.Mutex
	states map[gpu.Resource]gpu.ResourceState
	log    []gpu.Barrier
}

var _ Tracker = &tracker{}

// NewTracker creates an empty tracker.
//
// Returns:
//   - Tracker: the tracker
func NewTracker() Tracker {
	return &tracker{
		mu:     &sync.Mutex{},
		states: make(map[gpu.Resource]gpu.ResourceState),
	}
}

func (t *tracker) Register(res gpu.Resource, initial gpu.ResourceState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[res] = initial
}

func (t *tracker) State(res gpu.Resource) (gpu.ResourceState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.states[res]
	return s, ok
}

func (t *tracker) Transition(cb gpu.CommandBuffer, res gpu.Resource, to gpu.ResourceState) (bool, error) {
	n, err := t.TransitionAll(cb, Transition{Resource: res, To: to})
	return n > 0, err
}

func (t *tracker) TransitionAll(cb gpu.CommandBuffer, transitions ...Transition) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	barriers := make([]gpu.Barrier, 0, len(transitions))
	pending := make(map[gpu.Resource]gpu.ResourceState, len(transitions))
	for _, tr := range transitions {
		from, ok := pending[tr.Resource]
		if !ok {
			from, ok = t.states[tr.Resource]
		}
		if !ok {
			return 0, fmt.Errorf("state: transition %s to %s: %w", tr.Resource.Label(), tr.To, ErrUnknownResource)
		}
		if from == tr.To {
			continue
		}
		barriers = append(barriers, gpu.Barrier{Resource: tr.Resource, From: from, To: tr.To})
		pending[tr.Resource] = tr.To
	}
	if len(barriers) == 0 {
		return 0, nil
	}

	cb.ResourceBarrier(barriers...)
	for res, s := range pending {
		t.states[res] = s
	}
	t.log = append(t.log, barriers...)
	return len(barriers), nil
}

func (t *tracker) RequireReadable(res gpu.Resource) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.states[res]
	if !ok {
		return fmt.Errorf("state: %s: %w", res.Label(), ErrUnknownResource)
	}
	if s.Writable() {
		return fmt.Errorf("state: %s in %s: %w", res.Label(), s, ErrNotReadable)
	}
	return nil
}

func (t *tracker) RequireState(res gpu.Resource, want gpu.ResourceState) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.states[res]
	if !ok {
		return fmt.Errorf("state: %s: %w", res.Label(), ErrUnknownResource)
	}
	if s != want {
		return fmt.Errorf("state: %s in %s, want %s: %w", res.Label(), s, want, ErrWrongState)
	}
	return nil
}

func (t *tracker) BeginFrame() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log = t.log[:0]
}

func (t *tracker) Log() []gpu.Barrier {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]gpu.Barrier, len(t.log))
	copy(out, t.log)
	return out
}

func (t *tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(Snapshot(t.states))
}

func (t *tracker) Restore(snap Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	maps.Copy(t.states, snap)
}

// Redundant returns every barrier in log whose target state equals the previous target
// state recorded for the same resource, or whose source equals its target.
//
// Parameters:
//   - log: a frame's barrier sequence
//
// Returns:
//   - []gpu.Barrier: offending barriers, empty for a well-formed log
func Redundant(log []gpu.Barrier) []gpu.Barrier {
	last := make(map[gpu.Resource]gpu.ResourceState)
	var out []gpu.Barrier
	for _, b := range log {
		prev, seen := last[b.Resource]
		if b.From == b.To || (seen && prev == b.To) {
			out = append(out, b)
		}
		last[b.Resource] = b.To
	}
	return out
}
