// Package dispatch records G-buffer draws in parallel. A fixed set of long-lived workers,
// one per worker command buffer, parks on a latch between frames; each frame they claim
// object indices from a shared atomic cursor and record every claimed object into their
// own buffer.
package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-deferred/engine/command"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logging"
	"golang.org/x/sync/errgroup"
)

// ErrShutdown is returned by Dispatch once the dispatcher is shutting down.
var ErrShutdown = errors.New("dispatch: dispatcher is shut down")

// WorkerState is the lifecycle state of one worker.
type WorkerState int32

const (
	// WorkerIdle is parked waiting for the next frame.
	WorkerIdle WorkerState = iota

	// WorkerDraining is claiming and recording objects.
	WorkerDraining

	// WorkerExiting has observed the exit flag; terminal.
	WorkerExiting
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "Idle"
	case WorkerDraining:
		return "Draining"
	case WorkerExiting:
		return "Exiting"
	default:
		return fmt.Sprintf("WorkerState(%d)", int32(s))
	}
}

// Recorder records a frame's G-buffer work. Begin and Record are called from worker
// goroutines concurrently, each with its own command buffer; they must only read shared
// scene state.
type Recorder interface {
	// Begin prepares cb before any object is recorded into it (targets, pipeline, frame constants).
	Begin(worker int, cb gpu.CommandBuffer) error

	// Record records object index into cb.
	Record(worker int, cb gpu.CommandBuffer, index int) error
}

// Frame is the result of one dispatch.
type Frame struct {
	// Buffers are the closed worker buffers to submit, in worker order.
	Buffers []*command.Buffer

	// Claimed is the number of objects each worker recorded.
	Claimed []int
}

// Dispatcher is the worker draw dispatcher.
type Dispatcher interface {
	// Dispatch records count objects through rec and blocks until every object has been
	// recorded and every worker is parked again.
	//
	// Parameters:
	//   - count: number of objects to record
	//   - rec: the recorder invoked per worker and per object
	//
	// Returns:
	//   - Frame: buffers to submit and per-worker counts
	//   - error: the first recording error, or ErrShutdown
	Dispatch(count int, rec Recorder) (Frame, error)

	// Workers returns the number of worker buffers in use.
	Workers() int

	// Threaded reports whether workers run on their own goroutines.
	Threaded() bool

	// WorkerState returns the state of worker i.
	WorkerState(i int) WorkerState

	// Pending returns how many workers have not finished the current frame.
	Pending() int

	// Cursor returns the shared work cursor.
	Cursor() int

	// Shutdown sets the exit flag, wakes every worker and waits for all of them to return.
	// Workers finish the object they are recording first. Safe to call more than once.
	Shutdown()
}

type dispatcher struct {
	buffers  []*command.Buffer
	threaded bool
	onClaim  func(worker, index int)

	cursor  atomic.Int64
	exiting atomic.Bool
	aborted atomic.Bool

	latch   *latch
	states  []atomic.Int32
	claimed []int

	errMu    *sync.Mutex
	firstErr error

	dispatchMu   *sync.Mutex
	group        *errgroup.Group
	shutdownOnce sync.Once
}

var _ Dispatcher = &dispatcher{}

// NewDispatcher creates a dispatcher over the given worker buffers. In threaded mode one
// worker goroutine is started per buffer and lives until Shutdown. Otherwise only the first
// buffer is used and Dispatch records on the calling goroutine.
//
// Parameters:
//   - buffers: worker command buffers, one per worker
//   - options: functional options for the dispatcher
//
// Returns:
//   - Dispatcher: the dispatcher
//   - error: error if no buffers were given
func NewDispatcher(buffers []*command.Buffer, options ...DispatcherBuilderOption) (Dispatcher, error) {
	if len(buffers) == 0 {
		return nil, errors.New("dispatch: at least one worker buffer is required")
	}
	d := &dispatcher{
		threaded:   true,
		latch:      newLatch(),
		errMu:      &sync.Mutex{},
		dispatchMu: &sync.Mutex{},
		group:      &errgroup.Group{},
	}
	for _, opt := range options {
		opt(d)
	}
	if d.threaded {
		d.buffers = buffers
	} else {
		d.buffers = buffers[:1]
	}
	d.states = make([]atomic.Int32, len(d.buffers))
	d.claimed = make([]int, len(d.buffers))

	if d.threaded {
		for w := range d.buffers {
			d.group.Go(func() error {
				d.work(w)
				return nil
			})
		}
	}
	logging.For("dispatch").Debug("dispatcher started", "workers", len(d.buffers), "threaded", d.threaded)
	return d, nil
}

// claim returns the next unclaimed object index, or -1 once the cursor has passed count
// or the frame is being abandoned. Every path that claims work goes through here.
func (d *dispatcher) claim(worker, count int) int {
	if d.exiting.Load() || d.aborted.Load() {
		return -1
	}
	i := int(d.cursor.Add(1) - 1)
	if i >= count {
		return -1
	}
	if d.onClaim != nil {
		d.onClaim(worker, i)
	}
	return i
}

// drain records one frame's share of work into the worker's buffer.
func (d *dispatcher) drain(worker int, j job) {
	d.states[worker].Store(int32(WorkerDraining))
	defer d.states[worker].CompareAndSwap(int32(WorkerDraining), int32(WorkerIdle))

	n, err := d.record(worker, j)
	d.claimed[worker] = n
	if err != nil {
		d.fail(fmt.Errorf("dispatch: worker %d: %w", worker, err))
	}
}

func (d *dispatcher) record(worker int, j job) (int, error) {
	buf := d.buffers[worker]
	if err := buf.Reset(); err != nil {
		return 0, err
	}
	cb := buf.Recorder()

	n := 0
	err := j.rec.Begin(worker, cb)
	for err == nil {
		i := d.claim(worker, j.count)
		if i < 0 {
			break
		}
		if err = j.rec.Record(worker, cb, i); err == nil {
			n++
		}
	}
	if closeErr := buf.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

func (d *dispatcher) fail(err error) {
	d.errMu.Lock()
	if d.firstErr == nil {
		d.firstErr = err
	}
	d.errMu.Unlock()
	d.aborted.Store(true)
}

// work is the loop of one worker goroutine.
func (d *dispatcher) work(worker int) {
	var seen uint64
	for {
		gen, j, exit := d.latch.park(seen)
		if exit {
			if gen != seen {
				d.latch.countDown()
			}
			d.states[worker].Store(int32(WorkerExiting))
			logging.For("dispatch").Debug("worker exiting", "worker", worker)
			return
		}
		seen = gen
		d.drain(worker, j)
		d.latch.countDown()
	}
}

func (d *dispatcher) Dispatch(count int, rec Recorder) (Frame, error) {
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	if d.exiting.Load() {
		return Frame{}, ErrShutdown
	}
	if count <= 0 {
		return Frame{Claimed: make([]int, len(d.buffers))}, nil
	}
	if rec == nil {
		return Frame{}, errors.New("dispatch: nil recorder")
	}

	d.errMu.Lock()
	d.firstErr = nil
	d.errMu.Unlock()
	d.aborted.Store(false)
	for i := range d.claimed {
		d.claimed[i] = 0
	}

	j := job{count: count, rec: rec}
	if d.threaded {
		d.latch.arm(len(d.buffers), j, func() { d.cursor.Store(0) })
		d.latch.await(func() bool {
			return int(d.cursor.Load()) >= count || d.aborted.Load() || d.exiting.Load()
		})
	} else {
		d.cursor.Store(0)
		d.drain(0, j)
	}

	d.errMu.Lock()
	err := d.firstErr
	d.errMu.Unlock()
	if err != nil {
		return Frame{}, err
	}
	if int(d.cursor.Load()) < count {
		return Frame{}, ErrShutdown
	}

	frame := Frame{
		Buffers: make([]*command.Buffer, len(d.buffers)),
		Claimed: make([]int, len(d.buffers)),
	}
	copy(frame.Buffers, d.buffers)
	copy(frame.Claimed, d.claimed)
	return frame, nil
}

func (d *dispatcher) Workers() int {
	return len(d.buffers)
}

func (d *dispatcher) Threaded() bool {
	return d.threaded
}

func (d *dispatcher) WorkerState(i int) WorkerState {
	if i < 0 || i >= len(d.states) {
		return WorkerExiting
	}
	return WorkerState(d.states[i].Load())
}

func (d *dispatcher) Pending() int {
	return d.latch.pendingCount()
}

func (d *dispatcher) Cursor() int {
	return int(d.cursor.Load())
}

func (d *dispatcher) Shutdown() {
	d.shutdownOnce.Do(func() {
		d.exiting.Store(true)
		d.latch.shutdown()
		_ = d.group.Wait()
		if !d.threaded {
			for i := range d.states {
				d.states[i].Store(int32(WorkerExiting))
			}
		}
		logging.For("dispatch").Debug("dispatcher shut down", "workers", len(d.buffers))
	})
}
