package dispatch

import "sync"

// job is the work published to workers for one frame.
type job struct {
	count int
	rec   Recorder
}

// latch is the start/stop barrier between the main goroutine and the workers. Each frame
// arms a new generation with a pending count; workers park until a generation newer than
// the one they last served appears, and count down once they finish it. The counter and
// both conditions share one mutex, so "last worker counts down" and "main checks" cannot
// interleave badly.
type latch struct {
	mu    *sync.Mutex
	start *sync.Cond
	done  *sync.Cond

	generation uint64
	pending    int
	exit       bool
	current    job
}

func newLatch() *latch {
	mu := &sync.Mutex{}
	return &latch{
		mu:    mu,
		start: sync.NewCond(mu),
		done:  sync.NewCond(mu),
	}
}

// arm publishes j to n workers and wakes them. reset runs under the lock before the wake.
func (l *latch) arm(n int, j job, reset func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if reset != nil {
		reset()
	}
	l.current = j
	l.pending = n
	l.generation++
	l.start.Broadcast()
}

// park blocks until a generation newer than seen is armed or exit is set.
func (l *latch) park(seen uint64) (gen uint64, j job, exit bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for l.generation == seen && !l.exit {
		l.start.Wait()
	}
	return l.generation, l.current, l.exit
}

// countDown marks one worker finished with the current generation.
func (l *latch) countDown() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pending > 0 {
		l.pending--
	}
	if l.pending == 0 {
		l.done.Broadcast()
	}
}

// await blocks until every worker has counted down and drained reports true.
// drained is evaluated under the lock.
func (l *latch) await(drained func() bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for l.pending != 0 || !drained() {
		l.done.Wait()
	}
}

// shutdown sets the exit flag and wakes everyone.
func (l *latch) shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.exit = true
	l.start.Broadcast()
	l.done.Broadcast()
}

func (l *latch) pendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}
