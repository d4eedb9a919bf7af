package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/logging"
	"github.com/Carmen-Shannon/oxy-deferred/engine/sequencer"
)

// Report summarizes the frames of one profiling interval.
type Report struct {
	// Frames is the number of frames in the interval.
	Frames int

	// FPS is the frame rate over the interval.
	FPS float64

	// Record is the mean CPU recording time per frame.
	Record time.Duration

	// Wait is the mean end-of-frame fence wait.
	Wait time.Duration

	// Draws is the total number of G-buffer draws each worker recorded.
	Draws []int

	// Barriers is the mean number of state transitions per frame.
	Barriers float64

	// HeapMB is the live heap at the end of the interval.
	HeapMB float64

	// GC is the cumulative number of collections.
	GC uint32
}

// Profiler aggregates frame statistics and logs them at a configurable interval.
type Profiler struct {
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats

	frames   int
	record   time.Duration
	wait     time.Duration
	barriers int
	draws    []int

	last Report
}

// NewProfiler creates a new Profiler. Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Tick should be called once per rendered frame.
// Logs the interval report when the update interval has elapsed.
//
// Parameters:
//   - stats: statistics of the frame just rendered
//
// Returns:
//   - bool: true if a report was logged this tick, false otherwise
func (p *Profiler) Tick(stats sequencer.FrameStats) bool {
	p.frames++
	p.record += stats.Record
	p.wait += stats.Wait
	p.barriers += stats.Barriers
	if len(p.draws) < len(stats.Claimed) {
		p.draws = append(p.draws, make([]int, len(stats.Claimed)-len(p.draws))...)
	}
	for i, n := range stats.Claimed {
		p.draws[i] += n
	}

	now := time.Now()
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	r := Report{
		Frames:   p.frames,
		Record:   p.record / time.Duration(p.frames),
		Wait:     p.wait / time.Duration(p.frames),
		Draws:    append([]int(nil), p.draws...),
		Barriers: float64(p.barriers) / float64(p.frames),
		HeapMB:   float64(p.memStats.Alloc) / 1024 / 1024,
		GC:       p.memStats.NumGC,
	}
	if elapsed > 0 {
		r.FPS = float64(p.frames) / elapsed.Seconds()
	}

	logging.For("profiler").Info("frames",
		"fps", r.FPS,
		"record", r.Record,
		"fence_wait", r.Wait,
		"barriers", r.Barriers,
		"draws_per_worker", r.Draws,
		"heap_mb", r.HeapMB,
		"gc", r.GC,
	)

	p.last = r
	p.frames, p.record, p.wait, p.barriers = 0, 0, 0, 0
	clear(p.draws)
	p.lastTime = now
	return true
}

// Last returns the most recently logged report.
func (p *Profiler) Last() Report {
	return p.last
}
