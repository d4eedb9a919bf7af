package profiler

import (
	"slices"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/sequencer"
)

func TestTickAggregatesInterval(t *testing.T) {
	p := NewProfiler(WithInterval(time.Hour))

	frames := []sequencer.FrameStats{
		{Claimed: []int{3, 1}, Record: 2 * time.Millisecond, Wait: 4 * time.Millisecond, Barriers: 10},
		{Claimed: []int{2, 2}, Record: 4 * time.Millisecond, Wait: 2 * time.Millisecond, Barriers: 20},
	}
	for _, f := range frames {
		if p.Tick(f) {
			t.Fatal("Tick() reported before the interval elapsed")
		}
	}

	p.updateInterval = 0
	if !p.Tick(sequencer.FrameStats{Claimed: []int{1, 3}, Record: 3 * time.Millisecond, Wait: 3 * time.Millisecond, Barriers: 30}) {
		t.Fatal("Tick() did not report after the interval elapsed")
	}

	r := p.Last()
	if r.Frames != 3 {
		t.Errorf("Frames = %d, want 3", r.Frames)
	}
	if r.Record != 3*time.Millisecond || r.Wait != 3*time.Millisecond {
		t.Errorf("Record = %v, Wait = %v, want 3ms each", r.Record, r.Wait)
	}
	if !slices.Equal(r.Draws, []int{6, 6}) {
		t.Errorf("Draws = %v, want [6 6]", r.Draws)
	}
	if r.Barriers != 20 {
		t.Errorf("Barriers = %g, want 20", r.Barriers)
	}
}

func TestTickResetsAfterReport(t *testing.T) {
	p := NewProfiler(WithInterval(0))

	p.Tick(sequencer.FrameStats{Claimed: []int{5}})
	if !p.Tick(sequencer.FrameStats{Claimed: []int{2, 4}}) {
		t.Fatal("Tick() with zero interval did not report")
	}
	r := p.Last()
	if r.Frames != 1 {
		t.Errorf("Frames = %d, want 1", r.Frames)
	}
	if !slices.Equal(r.Draws, []int{2, 4}) {
		t.Errorf("Draws = %v, want [2 4]", r.Draws)
	}
}
