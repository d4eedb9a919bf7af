// Package sequencer drives one frame of the deferred pipeline: it writes the per-frame
// constants, records the clear, shadow, G-buffer and composite passes in fixed order,
// submits them in dependency batches, presents and waits on the frame fence before the
// next frame may reuse any command buffer.
package sequencer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/command"
	"github.com/Carmen-Shannon/oxy-deferred/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-deferred/engine/fence"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logging"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/state"
)

// FrameStats describes one rendered frame.
type FrameStats struct {
	// Index is the zero-based frame number.
	Index uint64

	// FenceValue is the fence value the frame waited for.
	FenceValue uint64

	// Objects is the number of objects drawn into the G-buffer.
	Objects int

	// Claimed is the number of objects each worker recorded.
	Claimed []int

	// Barriers is the number of state transitions recorded.
	Barriers int

	// Batches is the number of queue submissions.
	Batches int

	// Record is the CPU time from the first write to the last submission.
	Record time.Duration

	// Wait is the time spent in the end-of-frame fence wait.
	Wait time.Duration
}

// Sequencer renders frames.
type Sequencer interface {
	// RenderFrame records, submits and presents one frame, then waits for the GPU to retire
	// it. It must not run concurrently with scene updates.
	//
	// Returns:
	//   - FrameStats: statistics of the frame
	//   - error: the first recording, submission or presentation error; the frame is abandoned
	RenderFrame() (FrameStats, error)

	// FrameIndex returns the number of frames rendered successfully.
	FrameIndex() uint64

	// ShadowPass reports whether the shadow pass is recorded.
	ShadowPass() bool
}

type sequencer struct {
	mu *sync.Mutex

	queue      gpu.Queue
	surface    gpu.Surface
	gate       fence.Gate
	pool       command.Pool
	tracker    state.Tracker
	dispatcher dispatch.Dispatcher
	scene      scene.Scene
	resources  *Resources
	pipelines  *Pipelines

	shadowPass    bool
	textures      bool
	rootConstants bool

	frameIndex uint64
	gbuffer    *gbufferRecorder
}

var _ Sequencer = &sequencer{}

// NewSequencer wires the pass sequencer and registers every shared resource with the
// tracker. Shadow, texture and root-constant recording are enabled by default.
//
// Parameters:
//   - device: the device owning the queue
//   - surface: the presentation surface
//   - gate: the frame fence gate
//   - pool: the command buffer pool
//   - tracker: the resource state tracker
//   - dispatcher: the worker draw dispatcher over the pool's worker buffers
//   - sc: the scene to draw
//   - resources: the pass resources
//   - pipelines: the pass pipelines
//   - options: functional options for the sequencer
//
// Returns:
//   - Sequencer: the sequencer
//   - error: error if a collaborator is missing
func NewSequencer(
	device gpu.Device,
	surface gpu.Surface,
	gate fence.Gate,
	pool command.Pool,
	tracker state.Tracker,
	dispatcher dispatch.Dispatcher,
	sc scene.Scene,
	resources *Resources,
	pipelines *Pipelines,
	options ...SequencerBuilderOption,
) (Sequencer, error) {
	if device == nil || surface == nil || gate == nil || pool == nil || tracker == nil ||
		dispatcher == nil || sc == nil || resources == nil || pipelines == nil {
		return nil, errors.New("sequencer: missing collaborator")
	}
	s := &sequencer{
		mu:            &sync.Mutex{},
		queue:         device.Queue(),
		surface:       surface,
		gate:          gate,
		pool:          pool,
		tracker:       tracker,
		dispatcher:    dispatcher,
		scene:         sc,
		resources:     resources,
		pipelines:     pipelines,
		shadowPass:    true,
		textures:      true,
		rootConstants: true,
	}
	for _, opt := range options {
		opt(s)
	}

	s.gbuffer = &gbufferRecorder{
		scene:         sc,
		resources:     resources,
		pipeline:      pipelines.GBuffer,
		rootConstants: s.rootConstants,
	}
	if s.textures {
		s.gbuffer.textures = sc.Textures()
	}
	resources.register(tracker, surface)
	return s, nil
}

func (s *sequencer) FrameIndex() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameIndex
}

func (s *sequencer) ShadowPass() bool {
	return s.shadowPass
}

func (s *sequencer) RenderFrame() (FrameStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	stats := FrameStats{Index: s.frameIndex}
	submitted := false
	// committed is the tracker table as of the last batch that reached the queue.
	committed := s.tracker.Snapshot()

	abort := func(err error) (FrameStats, error) {
		logging.For("sequencer").Error("frame aborted", "frame", stats.Index, "error", err)
		s.tracker.Restore(committed)
		if submitted {
			// Retire what reached the queue so the pool can be reset by a later frame.
			if _, waitErr := s.gate.SignalAndWait(s.queue); waitErr != nil {
				err = errors.Join(err, waitErr)
			}
		}
		return stats, err
	}
	submit := func(buffers ...*command.Buffer) error {
		if len(buffers) == 0 {
			return nil
		}
		if err := s.pool.Submit(s.queue, buffers...); err != nil {
			return err
		}
		submitted = true
		committed = s.tracker.Snapshot()
		stats.Batches++
		return nil
	}

	if err := s.writeConstants(); err != nil {
		return abort(err)
	}
	s.tracker.BeginFrame()
	backBuffer := s.surface.BackBuffer(s.gate.CurrentBackBufferIndex())

	batch := []*command.Buffer{s.pool.Clear()}
	if err := record(s.pool.Clear(), s.recordClear); err != nil {
		return abort(err)
	}
	if s.shadowPass {
		if err := record(s.pool.Shadow(), s.recordShadow); err != nil {
			return abort(err)
		}
		batch = append(batch, s.pool.Shadow())
	}
	if err := submit(batch...); err != nil {
		return abort(fmt.Errorf("sequencer: submit clear/shadow: %w", err))
	}

	if err := s.requireGBufferWritable(); err != nil {
		return abort(err)
	}
	frame, err := s.dispatcher.Dispatch(s.scene.Len(), s.gbuffer)
	if err != nil {
		return abort(fmt.Errorf("sequencer: gbuffer pass: %w", err))
	}
	stats.Claimed = frame.Claimed
	for _, n := range frame.Claimed {
		stats.Objects += n
	}
	if err := submit(frame.Buffers...); err != nil {
		return abort(fmt.Errorf("sequencer: submit gbuffer: %w", err))
	}

	if err := record(s.pool.Composite(), func(cb gpu.CommandBuffer) error {
		return s.recordComposite(cb, backBuffer)
	}); err != nil {
		return abort(err)
	}
	if err := submit(s.pool.Composite()); err != nil {
		return abort(fmt.Errorf("sequencer: submit composite: %w", err))
	}
	stats.Record = time.Since(start)
	stats.Barriers = len(s.tracker.Log())

	if err := s.surface.Present(); err != nil {
		return abort(fmt.Errorf("sequencer: present: %w", err))
	}

	waitStart := time.Now()
	value, err := s.gate.SignalAndWait(s.queue)
	if err != nil {
		return stats, fmt.Errorf("sequencer: frame fence: %w", err)
	}
	stats.Wait = time.Since(waitStart)
	stats.FenceValue = value
	s.frameIndex++
	return stats, nil
}

// writeConstants uploads the per-frame camera and scene constants.
func (s *sequencer) writeConstants() error {
	if err := s.resources.ViewConstants.Write(s.scene.ViewConstants().Marshal()); err != nil {
		return fmt.Errorf("sequencer: write view constants: %w", err)
	}
	if err := s.resources.ShadowConstants.Write(s.scene.ShadowConstants().Marshal()); err != nil {
		return fmt.Errorf("sequencer: write shadow constants: %w", err)
	}
	if err := s.resources.SceneConstants.Write(s.scene.SceneConstants().Marshal()); err != nil {
		return fmt.Errorf("sequencer: write scene constants: %w", err)
	}
	return nil
}
