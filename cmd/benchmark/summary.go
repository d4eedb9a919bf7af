package main

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/sequencer"
)

// summary accumulates per-frame statistics over a benchmark run.
type summary struct {
	frames   int
	objects  int
	batches  int
	barriers int
	records  []time.Duration
	waits    []time.Duration
	draws    []int
}

func newSummary(workers int) *summary {
	return &summary{draws: make([]int, workers)}
}

func (s *summary) add(stats sequencer.FrameStats) {
	s.frames++
	s.objects = stats.Objects
	s.batches = stats.Batches
	s.barriers = stats.Barriers
	s.records = append(s.records, stats.Record)
	s.waits = append(s.waits, stats.Wait)
	for i, n := range stats.Claimed {
		if i < len(s.draws) {
			s.draws[i] += n
		}
	}
}

// percentile returns the p-th percentile (0..100) of durations by nearest rank.
func percentile(durations []time.Duration, p float64) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	sorted := slices.Clone(durations)
	slices.Sort(sorted)
	rank := int(p/100*float64(len(sorted))+0.5) - 1
	return sorted[min(max(rank, 0), len(sorted)-1)]
}

func mean(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

func (s *summary) write(w io.Writer, opts config.Options, threaded bool, elapsed time.Duration) {
	fps := 0.0
	if elapsed > 0 {
		fps = float64(s.frames) / elapsed.Seconds()
	}
	fmt.Fprintf(w, "frames:       %d in %v (%.1f fps)\n", s.frames, elapsed.Round(time.Millisecond), fps)
	fmt.Fprintf(w, "objects:      %d (threads=%v workers=%d shadow=%v textures=%v root_constants=%v)\n",
		s.objects, threaded, len(s.draws), opts.ShadowPass, opts.Textures, opts.RootConstants)
	fmt.Fprintf(w, "submissions:  %d per frame, %d barriers per frame\n", s.batches, s.barriers)
	fmt.Fprintf(w, "record:       mean %v, p50 %v, p99 %v\n", mean(s.records), percentile(s.records, 50), percentile(s.records, 99))
	fmt.Fprintf(w, "fence wait:   mean %v, p50 %v, p99 %v\n", mean(s.waits), percentile(s.waits, 50), percentile(s.waits, 99))
	fmt.Fprintf(w, "draws/worker: %v\n", s.draws)
}
