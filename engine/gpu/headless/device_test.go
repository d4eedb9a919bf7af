package headless

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fence")
	}
}

// =============================================================================
// Command buffer lifecycle
// =============================================================================

func TestCommandBufferRecordRequiresReset(t *testing.T) {
	d := NewDevice()
	defer d.Close()

	b, _ := d.CreateCommandBuffer("cb")
	b.Draw(3, 1)
	if !errors.Is(b.Err(), gpu.ErrNotRecording) {
		t.Errorf("Err() = %v, want ErrNotRecording", b.Err())
	}

	if err := b.Reset(); err != nil {
		t.Fatalf("Reset() = %v", err)
	}
	if b.Err() != nil {
		t.Errorf("Err() after Reset = %v, want nil", b.Err())
	}
	b.Draw(3, 1)
	if err := b.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	cmds := b.(*CommandBuffer).Commands()
	if len(cmds) != 1 || cmds[0].Op != OpDraw {
		t.Errorf("Commands() = %v, want one OpDraw", cmds)
	}
}

func TestSubmitOpenBufferFails(t *testing.T) {
	d := NewDevice()
	defer d.Close()

	b, _ := d.CreateCommandBuffer("cb")
	_ = b.Reset()
	if err := d.Queue().Submit(b); !errors.Is(err, gpu.ErrNotClosed) {
		t.Errorf("Submit(open) = %v, want ErrNotClosed", err)
	}
}

func TestResetWhileInFlight(t *testing.T) {
	d := NewDevice(WithLatency(50 * time.Millisecond))
	defer d.Close()

	b, _ := d.CreateCommandBuffer("cb")
	_ = b.Reset()
	_ = b.Close()
	if err := d.Queue().Submit(b); err != nil {
		t.Fatalf("Submit() = %v", err)
	}
	if err := b.Reset(); !errors.Is(err, gpu.ErrInFlight) {
		t.Errorf("Reset() in flight = %v, want ErrInFlight", err)
	}

	f, _ := d.CreateFence(0)
	_ = d.Queue().Signal(f, 1)
	waitClosed(t, f.Notify(1))

	if err := b.Reset(); err != nil {
		t.Errorf("Reset() after fence = %v, want nil", err)
	}
}

func TestConstantBufferSnapshotAtRecord(t *testing.T) {
	d := NewDevice()
	defer d.Close()

	buf, _ := d.CreateConstantBuffer("obj", 4)
	b, _ := d.CreateCommandBuffer("cb")
	_ = b.Reset()

	_ = buf.Write([]byte{1, 2, 3, 4})
	b.SetConstantBuffer(1, buf)
	_ = buf.Write([]byte{9, 9, 9, 9})
	_ = b.Close()

	got := b.(*CommandBuffer).Commands()[0].Data
	if string(got) != string([]byte{1, 2, 3, 4}) {
		t.Errorf("snapshot = %v, want [1 2 3 4]", got)
	}
	if err := buf.Write(make([]byte, 5)); err == nil {
		t.Error("Write() past capacity succeeded, want error")
	}
}

// =============================================================================
// Fence and queue ordering
// =============================================================================

func TestFenceNotifyOrdering(t *testing.T) {
	d := NewDevice(WithLatency(5 * time.Millisecond))
	defer d.Close()

	f, _ := d.CreateFence(0)
	select {
	case <-f.Notify(0):
	default:
		t.Error("Notify(0) on fresh fence is not closed")
	}

	b, _ := d.CreateCommandBuffer("cb")
	_ = b.Reset()
	_ = b.Close()
	_ = d.Queue().Submit(b)
	_ = d.Queue().Signal(f, 1)

	ch1 := f.Notify(1)
	waitClosed(t, ch1)
	if got := f.Completed(); got != 1 {
		t.Errorf("Completed() = %d, want 1", got)
	}

	exec := d.HeadlessQueue().Executed()
	if len(exec) != 1 || exec[0].Buffers[0] != "cb" {
		t.Errorf("Executed() = %v, want one batch with cb", exec)
	}
}

func TestFenceNeverMovesBackwards(t *testing.T) {
	f := newFence(5)
	f.Advance(3)
	if got := f.Completed(); got != 5 {
		t.Errorf("Completed() = %d, want 5", got)
	}
	ch := f.Notify(7)
	f.Advance(6)
	select {
	case <-ch:
		t.Error("Notify(7) released at 6")
	default:
	}
	f.Advance(8)
	waitClosed(t, ch)
}

func TestSurfaceRotatesBackBuffers(t *testing.T) {
	s := NewSurface(64, 32, 2)
	if got := s.CurrentBackBufferIndex(); got != 0 {
		t.Fatalf("CurrentBackBufferIndex() = %d, want 0", got)
	}
	_ = s.Present()
	if got := s.CurrentBackBufferIndex(); got != 1 {
		t.Errorf("after Present = %d, want 1", got)
	}
	_ = s.Present()
	if got := s.CurrentBackBufferIndex(); got != 0 {
		t.Errorf("after second Present = %d, want 0", got)
	}
	if s.BackBuffer(1).Kind() != gpu.KindBackBuffer {
		t.Error("BackBuffer kind is not KindBackBuffer")
	}
}
