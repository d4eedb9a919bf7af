package fence

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/headless"
)

func TestSignalIsMonotonic(t *testing.T) {
	d := headless.NewDevice()
	defer d.Close()

	g, err := NewGate(d, headless.NewSurface(8, 8, 2))
	if err != nil {
		t.Fatalf("NewGate() = %v", err)
	}
	for want := uint64(1); want <= 5; want++ {
		got, err := g.Signal(d.Queue())
		if err != nil {
			t.Fatalf("Signal() = %v", err)
		}
		if got != want {
			t.Errorf("Signal() = %d, want %d", got, want)
		}
	}
	if err := g.WaitFor(5); err != nil {
		t.Fatalf("WaitFor(5) = %v", err)
	}
	if got := g.Completed(); got != 5 {
		t.Errorf("Completed() = %d, want 5", got)
	}
	if got := g.LastWaited(); got != 5 {
		t.Errorf("LastWaited() = %d, want 5", got)
	}
}

func TestWaitForBlocksUntilWorkRetires(t *testing.T) {
	d := headless.NewDevice(headless.WithLatency(30 * time.Millisecond))
	defer d.Close()

	g, _ := NewGate(d, nil)
	cb, _ := d.CreateCommandBuffer("frame")
	_ = cb.Reset()
	_ = cb.Close()
	if err := d.Queue().Submit(cb); err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	start := time.Now()
	v, err := g.SignalAndWait(d.Queue())
	if err != nil {
		t.Fatalf("SignalAndWait() = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("wait returned after %v, want at least the batch latency", elapsed)
	}
	if v != 1 {
		t.Errorf("SignalAndWait() = %d, want 1", v)
	}
	if err := cb.Reset(); err != nil {
		t.Errorf("Reset() after wait = %v, want nil", err)
	}

	s := g.Stats()
	if s.Signals != 1 || s.Waits != 1 || s.Blocked != 1 {
		t.Errorf("Stats() = %+v, want 1 signal, 1 wait, 1 blocked", s)
	}
}

func TestWaitForCompletedValueDoesNotBlock(t *testing.T) {
	d := headless.NewDevice()
	defer d.Close()

	g, _ := NewGate(d, nil)
	if err := g.WaitFor(0); err != nil {
		t.Fatalf("WaitFor(0) = %v", err)
	}
	if s := g.Stats(); s.Blocked != 0 {
		t.Errorf("Blocked = %d, want 0", s.Blocked)
	}
}

func TestCloseReleasesWaiter(t *testing.T) {
	d := headless.NewDevice()
	defer d.Close()

	g, _ := NewGate(d, nil)
	errc := make(chan error, 1)
	go func() { errc <- g.WaitFor(42) }()

	time.Sleep(10 * time.Millisecond)
	g.Close()
	g.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("WaitFor() = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitFor did not return after Close")
	}
}

func TestNewGateFenceFailure(t *testing.T) {
	d := headless.NewDevice(headless.WithFailingFences())
	defer d.Close()

	if _, err := NewGate(d, nil); err == nil {
		t.Fatal("NewGate() succeeded with failing fences, want error")
	}
}

func TestCurrentBackBufferIndexFollowsSurface(t *testing.T) {
	d := headless.NewDevice()
	defer d.Close()

	s := headless.NewSurface(8, 8, 3)
	g, _ := NewGate(d, s)
	var _ gpu.Surface = s

	_ = s.Present()
	_ = s.Present()
	if got := g.CurrentBackBufferIndex(); got != 2 {
		t.Errorf("CurrentBackBufferIndex() = %d, want 2", got)
	}
}
