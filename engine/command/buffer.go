package command

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

// OwnerKind identifies which pass or worker a buffer belongs to.
type OwnerKind int

const (
	// OwnerClear is the main-thread buffer clearing the G-buffer.
	OwnerClear OwnerKind = iota

	// OwnerShadow is the main-thread buffer recording the shadow depth pass.
	OwnerShadow

	// OwnerComposite is the main-thread buffer recording AO, lighting and tone mapping.
	OwnerComposite

	// OwnerWorker is a buffer recorded by one dispatcher worker.
	OwnerWorker
)

// Owner is the fixed owner of a buffer. Worker is only meaningful for OwnerWorker.
type Owner struct {
	Kind   OwnerKind
	Worker int
}

// WorkerOwner returns the owner identity of worker i.
func WorkerOwner(i int) Owner {
	return Owner{Kind: OwnerWorker, Worker: i}
}

func (o Owner) String() string {
	switch o.Kind {
	case OwnerClear:
		return "Clear"
	case OwnerShadow:
		return "Shadow"
	case OwnerComposite:
		return "Composite"
	case OwnerWorker:
		return fmt.Sprintf("Worker%d", o.Worker)
	default:
		return fmt.Sprintf("Owner(%d)", int(o.Kind))
	}
}

// State is the lifecycle state of a pooled buffer.
type State int

const (
	// StateClosed holds finished commands that have not been submitted, or no commands yet.
	StateClosed State = iota

	// StateOpen accepts recording.
	StateOpen

	// StateSubmitted has been queued; it may only be reset once its fence value has been waited for.
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateSubmitted:
		return "Submitted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ResetEvent is reported to the pool's reset hook before a buffer is reset.
type ResetEvent struct {
	Owner Owner

	// LastWaited is the highest fence value waited for when the reset began.
	LastWaited uint64

	// RetireValue is the fence value that retires the buffer's previous submission, or 0.
	RetireValue uint64
}

// Buffer is a command buffer bound to one owner for its lifetime.
type Buffer struct {
	mu    *sync.Mutex
	owner Owner
	cb    gpu.CommandBuffer
	pool  *pool

	state       State
	retireValue uint64
	recorded    int
}

// Owner returns the fixed owner of the buffer.
func (b *Buffer) Owner() Owner {
	return b.owner
}

// Recorder returns the underlying command buffer for recording. Only the owner records.
func (b *Buffer) Recorder() gpu.CommandBuffer {
	return b.cb
}

// State returns the lifecycle state.
func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Recorded returns how many times the buffer has been reset for recording.
func (b *Buffer) Recorded() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recorded
}

// Reset reopens the buffer for recording. The previous submission must have been retired
// by a fence wait; a reset that would race the GPU returns ErrInFlight and leaves the
// buffer untouched.
//
// Returns:
//   - error: ErrInFlight, ErrOpen, or a backend reset error
func (b *Buffer) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		return fmt.Errorf("command: reset %s: %w", b.owner, ErrOpen)
	}
	waited := b.pool.retire.LastWaited()
	if b.state == StateSubmitted && waited < b.retireValue {
		return fmt.Errorf("command: reset %s (retires at %d, waited %d): %w", b.owner, b.retireValue, waited, ErrInFlight)
	}
	if b.pool.onReset != nil {
		b.pool.onReset(ResetEvent{Owner: b.owner, LastWaited: waited, RetireValue: b.retireValue})
	}
	if err := b.cb.Reset(); err != nil {
		return fmt.Errorf("command: reset %s: %w", b.owner, err)
	}
	b.state = StateOpen
	b.recorded++
	return nil
}

// Close finishes recording.
//
// Returns:
//   - error: ErrNotOpen, or the first recording error of the underlying buffer
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return fmt.Errorf("command: close %s: %w", b.owner, ErrNotOpen)
	}
	b.state = StateClosed
	if err := b.cb.Close(); err != nil {
		return fmt.Errorf("command: close %s: %w", b.owner, err)
	}
	return nil
}

// markSubmitted records the fence value that will retire this submission.
func (b *Buffer) markSubmitted(retireValue uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateClosed {
		return fmt.Errorf("command: submit %s in state %s: %w", b.owner, b.state, ErrNotClosed)
	}
	b.state = StateSubmitted
	b.retireValue = retireValue
	return nil
}

// unmark reverts a markSubmitted when the queue rejected the batch.
func (b *Buffer) unmark() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateSubmitted {
		b.state = StateClosed
	}
}
