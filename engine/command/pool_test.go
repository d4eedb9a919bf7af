package command

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/fence"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/headless"
)

func newTestPool(t *testing.T, workers int, opts ...PoolBuilderOption) (*headless.Device, fence.Gate, Pool) {
	t.Helper()
	d := headless.NewDevice(headless.WithLatency(5 * time.Millisecond))
	t.Cleanup(func() { _ = d.Close() })

	g, err := fence.NewGate(d, nil)
	if err != nil {
		t.Fatalf("NewGate() = %v", err)
	}
	p, err := NewPool(d, workers, g, opts...)
	if err != nil {
		t.Fatalf("NewPool() = %v", err)
	}
	return d, g, p
}

func TestPoolOwners(t *testing.T) {
	d, _, p := newTestPool(t, 4)

	if got := p.Len(); got != 7 {
		t.Errorf("Len() = %d, want 7", got)
	}
	if got := len(d.CommandBuffers()); got != 7 {
		t.Errorf("device buffers = %d, want 7", got)
	}

	tests := []struct {
		owner Owner
		want  string
	}{
		{Owner{Kind: OwnerClear}, "Clear"},
		{Owner{Kind: OwnerShadow}, "Shadow"},
		{Owner{Kind: OwnerComposite}, "Composite"},
		{WorkerOwner(0), "Worker0"},
		{WorkerOwner(3), "Worker3"},
	}
	for _, tt := range tests {
		b := p.Buffer(tt.owner)
		if b == nil {
			t.Fatalf("Buffer(%v) = nil", tt.owner)
		}
		if b.Owner() != tt.owner {
			t.Errorf("Buffer(%v).Owner() = %v", tt.owner, b.Owner())
		}
		if b.Recorder().Label() != tt.want {
			t.Errorf("Buffer(%v) label = %q, want %q", tt.owner, b.Recorder().Label(), tt.want)
		}
	}
	if p.Worker(4) != nil {
		t.Error("Worker(4) != nil, want nil")
	}
}

func TestBufferLifecycle(t *testing.T) {
	d, g, p := newTestPool(t, 1)
	b := p.Clear()

	if err := b.Close(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Close() before Reset = %v, want ErrNotOpen", err)
	}
	if err := b.Reset(); err != nil {
		t.Fatalf("Reset() = %v", err)
	}
	if err := b.Reset(); !errors.Is(err, ErrOpen) {
		t.Errorf("second Reset() = %v, want ErrOpen", err)
	}
	if err := p.Submit(d.Queue(), b); !errors.Is(err, ErrNotClosed) {
		t.Errorf("Submit(open) = %v, want ErrNotClosed", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := p.Submit(d.Queue(), b); err != nil {
		t.Fatalf("Submit() = %v", err)
	}
	if b.State() != StateSubmitted {
		t.Errorf("State() = %v, want Submitted", b.State())
	}

	// The frame's fence has not even been signaled yet.
	if err := b.Reset(); !errors.Is(err, ErrInFlight) {
		t.Errorf("Reset() before fence wait = %v, want ErrInFlight", err)
	}

	if _, err := g.SignalAndWait(d.Queue()); err != nil {
		t.Fatalf("SignalAndWait() = %v", err)
	}
	if err := b.Reset(); err != nil {
		t.Errorf("Reset() after fence wait = %v, want nil", err)
	}
}

func TestResetHookSeesWaitedFence(t *testing.T) {
	var events []ResetEvent
	d, g, p := newTestPool(t, 2, WithResetHook(func(e ResetEvent) {
		events = append(events, e)
	}))

	for frame := 1; frame <= 3; frame++ {
		for _, b := range p.Workers() {
			if err := b.Reset(); err != nil {
				t.Fatalf("frame %d: Reset() = %v", frame, err)
			}
			_ = b.Close()
		}
		if err := p.Submit(d.Queue(), p.Workers()...); err != nil {
			t.Fatalf("frame %d: Submit() = %v", frame, err)
		}
		if _, err := g.SignalAndWait(d.Queue()); err != nil {
			t.Fatalf("frame %d: SignalAndWait() = %v", frame, err)
		}
	}

	if len(events) != 6 {
		t.Fatalf("reset events = %d, want 6", len(events))
	}
	for _, e := range events {
		if e.LastWaited < e.RetireValue {
			t.Errorf("%v reset with LastWaited %d before RetireValue %d", e.Owner, e.LastWaited, e.RetireValue)
		}
	}
	if got := events[5].RetireValue; got != 2 {
		t.Errorf("last RetireValue = %d, want 2", got)
	}
}

func TestSubmitRejectedRevertsMarks(t *testing.T) {
	d, _, p := newTestPool(t, 1)
	a, b := p.Clear(), p.Shadow()
	_ = a.Reset()
	_ = a.Close()
	_ = b.Reset()

	if err := p.Submit(d.Queue(), a, b); !errors.Is(err, ErrNotClosed) {
		t.Fatalf("Submit() = %v, want ErrNotClosed", err)
	}
	if a.State() != StateClosed {
		t.Errorf("a.State() = %v, want Closed", a.State())
	}
}

func TestNewPoolErrors(t *testing.T) {
	d := headless.NewDevice(headless.WithFailingCommandBuffers())
	defer d.Close()
	g, _ := fence.NewGate(d, nil)

	if _, err := NewPool(d, 2, g); err == nil {
		t.Error("NewPool() with failing device succeeded, want error")
	}
	if _, err := NewPool(d, 0, g); err == nil {
		t.Error("NewPool(0 workers) succeeded, want error")
	}
	if _, err := NewPool(d, 1, nil); err == nil {
		t.Error("NewPool(nil retirement) succeeded, want error")
	}
}
