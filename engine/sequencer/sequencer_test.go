package sequencer

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/command"
	"github.com/Carmen-Shannon/oxy-deferred/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-deferred/engine/fence"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/headless"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/state"
)

const (
	testWidth  = 64
	testHeight = 48
)

type rig struct {
	device     *headless.Device
	surface    *headless.Surface
	scene      scene.Scene
	gate       fence.Gate
	pool       command.Pool
	tracker    state.Tracker
	dispatcher dispatch.Dispatcher
	resources  *Resources
	seq        Sequencer

	mu     *sync.Mutex
	resets []command.ResetEvent
}

type rigConfig struct {
	rows    int
	workers int
	threads bool
	options []SequencerBuilderOption
	// queue wraps the queue the sequencer submits to.
	queue func(gpu.Queue) gpu.Queue
}

// queueDevice replaces the queue of a device.
type queueDevice struct {
	gpu.Device
	queue gpu.Queue
}

func (d queueDevice) Queue() gpu.Queue { return d.queue }

// failingQueue fails the failAt-th Submit (1-based) and forwards everything else.
type failingQueue struct {
	gpu.Queue
	mu      *sync.Mutex
	submits int
	failAt  int
}

func (q *failingQueue) Submit(buffers ...gpu.CommandBuffer) error {
	q.mu.Lock()
	q.submits++
	fail := q.submits == q.failAt
	q.mu.Unlock()
	if fail {
		return errors.New("injected submit failure")
	}
	return q.Queue.Submit(buffers...)
}

func newRig(t *testing.T, cfg rigConfig) *rig {
	t.Helper()
	r := &rig{mu: &sync.Mutex{}}
	r.device = headless.NewDevice()
	t.Cleanup(func() { _ = r.device.Close() })
	r.surface = headless.NewSurface(testWidth, testHeight, 2)

	var err error
	if r.scene, err = scene.NewScene(r.device,
		scene.WithObjectsInRow(cfg.rows),
		scene.WithScreenSize(testWidth, testHeight),
		scene.WithShadowMapSize(64),
		scene.WithComputeWorkers(2),
	); err != nil {
		t.Fatalf("NewScene() = %v", err)
	}
	if r.gate, err = fence.NewGate(r.device, r.surface); err != nil {
		t.Fatalf("NewGate() = %v", err)
	}
	t.Cleanup(r.gate.Close)
	if r.pool, err = command.NewPool(r.device, cfg.workers, r.gate, command.WithResetHook(func(e command.ResetEvent) {
		r.mu.Lock()
		r.resets = append(r.resets, e)
		r.mu.Unlock()
	})); err != nil {
		t.Fatalf("NewPool() = %v", err)
	}
	r.tracker = state.NewTracker()
	if r.dispatcher, err = dispatch.NewDispatcher(r.pool.Workers(), dispatch.WithThreads(cfg.threads)); err != nil {
		t.Fatalf("NewDispatcher() = %v", err)
	}
	t.Cleanup(r.dispatcher.Shutdown)
	if r.resources, err = NewResources(r.device, testWidth, testHeight, 64); err != nil {
		t.Fatalf("NewResources() = %v", err)
	}
	pipelines, err := NewPipelines(r.device)
	if err != nil {
		t.Fatalf("NewPipelines() = %v", err)
	}
	var device gpu.Device = r.device
	if cfg.queue != nil {
		device = queueDevice{Device: r.device, queue: cfg.queue(r.device.Queue())}
	}
	if r.seq, err = NewSequencer(device, r.surface, r.gate, r.pool, r.tracker, r.dispatcher,
		r.scene, r.resources, pipelines, cfg.options...); err != nil {
		t.Fatalf("NewSequencer() = %v", err)
	}
	return r
}

func (r *rig) render(t *testing.T, frames int) []FrameStats {
	t.Helper()
	out := make([]FrameStats, 0, frames)
	for range frames {
		if err := r.scene.Update(); err != nil {
			t.Fatalf("Update() = %v", err)
		}
		stats, err := r.seq.RenderFrame()
		if err != nil {
			t.Fatalf("RenderFrame() = %v", err)
		}
		out = append(out, stats)
	}
	return out
}

func (r *rig) commands(owner command.Owner) []headless.Command {
	return r.pool.Buffer(owner).Recorder().(*headless.CommandBuffer).Commands()
}

// workerCommands returns every command recorded by the workers of the last frame.
func (r *rig) workerCommands() []headless.Command {
	var out []headless.Command
	for _, b := range r.pool.Workers() {
		out = append(out, b.Recorder().(*headless.CommandBuffer).Commands()...)
	}
	return out
}

// =============================================================================
// Frame structure
// =============================================================================

func TestRenderFrameOrder(t *testing.T) {
	r := newRig(t, rigConfig{rows: 2, workers: 4, threads: true})
	stats := r.render(t, 1)[0]

	if stats.Objects != r.scene.Len() {
		t.Errorf("Objects = %d, want %d", stats.Objects, r.scene.Len())
	}
	if stats.FenceValue != 1 || r.gate.Completed() != 1 {
		t.Errorf("FenceValue = %d, Completed() = %d, want 1, 1", stats.FenceValue, r.gate.Completed())
	}
	if r.surface.Presents() != 1 {
		t.Errorf("Presents() = %d, want 1", r.surface.Presents())
	}

	executed := r.device.HeadlessQueue().Executed()
	if len(executed) != 3 || stats.Batches != 3 {
		t.Fatalf("executed %d batches (stats %d), want 3", len(executed), stats.Batches)
	}
	if want := []string{"Clear", "Shadow"}; !slices.Equal(executed[0].Buffers, want) {
		t.Errorf("batch 0 = %v, want %v", executed[0].Buffers, want)
	}
	if want := []string{"Worker0", "Worker1", "Worker2", "Worker3"}; !slices.Equal(executed[1].Buffers, want) {
		t.Errorf("batch 1 = %v, want %v", executed[1].Buffers, want)
	}
	if want := []string{"Composite"}; !slices.Equal(executed[2].Buffers, want) {
		t.Errorf("batch 2 = %v, want %v", executed[2].Buffers, want)
	}

	draws := 0
	for _, c := range r.workerCommands() {
		if c.Op == headless.OpDrawIndexed {
			draws++
		}
	}
	if draws != r.scene.Len() {
		t.Errorf("worker draws = %d, want %d", draws, r.scene.Len())
	}
}

func TestCompositePassOrder(t *testing.T) {
	r := newRig(t, rigConfig{rows: 1, workers: 2, threads: true})
	r.render(t, 1)

	var pipelines []string
	var dispatches [][3]uint32
	for _, c := range r.commands(command.Owner{Kind: command.OwnerComposite}) {
		switch c.Op {
		case headless.OpSetPipeline:
			pipelines = append(pipelines, c.Pipeline)
		case headless.OpDispatch:
			dispatches = append(dispatches, c.Counts)
		}
	}
	if want := []string{"ao", "blur", "lighting", "intensity", "tonemap"}; !slices.Equal(pipelines, want) {
		t.Errorf("composite pipelines = %v, want %v", pipelines, want)
	}
	if len(dispatches) != 1 || dispatches[0] != [3]uint32{testHeight/32 + 1, 1, 1} {
		t.Errorf("intensity dispatches = %v, want one of %d groups", dispatches, testHeight/32+1)
	}
}

func TestBackBufferPresentTransitions(t *testing.T) {
	r := newRig(t, rigConfig{rows: 1, workers: 1, threads: true})
	for frame := range 3 {
		bb := r.surface.BackBuffer(r.surface.CurrentBackBufferIndex())
		r.render(t, 1)

		var got []string
		for _, b := range r.tracker.Log() {
			if b.Resource == bb {
				got = append(got, b.String())
			}
		}
		want := []string{
			bb.Label() + ": Present -> RenderTarget",
			bb.Label() + ": RenderTarget -> Present",
		}
		if !slices.Equal(got, want) {
			t.Errorf("frame %d back buffer barriers = %v, want %v", frame, got, want)
		}
	}
}

// =============================================================================
// Scenarios
// =============================================================================

func TestShadowPassDisabled(t *testing.T) {
	r := newRig(t, rigConfig{rows: 2, workers: 2, threads: true, options: []SequencerBuilderOption{WithShadowPass(false)}})
	if r.seq.ShadowPass() {
		t.Fatal("ShadowPass() = true, want false")
	}
	for range 3 {
		r.render(t, 1)
		for _, b := range r.tracker.Log() {
			if b.Resource == r.resources.ShadowMap {
				t.Errorf("shadow map transitioned with shadow pass disabled: %s", b)
			}
		}
	}
	for _, e := range r.device.HeadlessQueue().Executed() {
		if slices.Contains(e.Buffers, "Shadow") {
			t.Errorf("batch %d submitted the shadow buffer", e.Sequence)
		}
	}
	if n := r.pool.Shadow().Recorded(); n != 0 {
		t.Errorf("shadow buffer recorded %d times, want 0", n)
	}
}

func TestEmptySceneAdvancesFence(t *testing.T) {
	r := newRig(t, rigConfig{rows: 0, workers: 4, threads: true})
	for i, stats := range r.render(t, 3) {
		if stats.Objects != 0 {
			t.Errorf("frame %d Objects = %d, want 0", i, stats.Objects)
		}
		if stats.FenceValue != uint64(i+1) {
			t.Errorf("frame %d FenceValue = %d, want %d", i, stats.FenceValue, i+1)
		}
	}
	if r.seq.FrameIndex() != 3 || r.surface.Presents() != 3 {
		t.Errorf("FrameIndex() = %d, Presents() = %d, want 3, 3", r.seq.FrameIndex(), r.surface.Presents())
	}
	for _, e := range r.device.HeadlessQueue().Executed() {
		for _, label := range e.Buffers {
			if strings.HasPrefix(label, "Worker") {
				t.Errorf("batch %d submitted %s for an empty scene", e.Sequence, label)
			}
		}
	}
}

// =============================================================================
// Properties
// =============================================================================

func TestResetOnlyAfterFenceWait(t *testing.T) {
	r := newRig(t, rigConfig{rows: 3, workers: 4, threads: true})
	r.render(t, 5)

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.resets) == 0 {
		t.Fatal("no resets observed")
	}
	for _, e := range r.resets {
		if e.LastWaited < e.RetireValue {
			t.Errorf("%s reset with last wait %d before its retire value %d", e.Owner, e.LastWaited, e.RetireValue)
		}
	}
}

func TestNoRedundantTransitions(t *testing.T) {
	r := newRig(t, rigConfig{rows: 2, workers: 3, threads: true})
	var all []gpu.Barrier
	for frame := range 4 {
		r.render(t, 1)
		log := r.tracker.Log()
		if bad := state.Redundant(log); len(bad) != 0 {
			t.Errorf("frame %d redundant barriers: %v", frame, bad)
		}
		all = append(all, log...)
	}
	if bad := state.Redundant(all); len(bad) != 0 {
		t.Errorf("redundant barriers across frames: %v", bad)
	}
}

// drawSummary describes the per-object work of a frame independent of worker assignment.
func drawSummary(cmds []headless.Command) []string {
	var out []string
	var object string
	for _, c := range cmds {
		switch {
		case c.Op == headless.OpSetConstantBuffer && c.Slot == slotObject:
			object = fmt.Sprintf("%s data=%x", c.Resource, c.Data)
		case c.Op == headless.OpSetRootConstants:
			object += fmt.Sprintf(" shift=%v", c.Values[0])
		case c.Op == headless.OpSetShaderResource && c.Slot == slotTexture:
			object += " tex=" + c.Resource
		case c.Op == headless.OpDrawIndexed:
			out = append(out, object+" mesh="+c.Mesh)
		}
	}
	slices.Sort(out)
	return out
}

func commandSummary(cmds []headless.Command) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, fmt.Sprintf("%d %s %s %d %v %v", c.Op, c.Pipeline, c.Resource, c.Slot, c.Targets, c.Counts))
	}
	return out
}

func TestThreadedMatchesUnthreaded(t *testing.T) {
	threaded := newRig(t, rigConfig{rows: 3, workers: 4, threads: true})
	single := newRig(t, rigConfig{rows: 3, workers: 4, threads: false})
	threaded.render(t, 2)
	stats := single.render(t, 2)

	if len(stats[1].Claimed) != 1 || stats[1].Claimed[0] != single.scene.Len() {
		t.Errorf("unthreaded Claimed = %v, want [%d]", stats[1].Claimed, single.scene.Len())
	}
	a, b := drawSummary(threaded.workerCommands()), drawSummary(single.workerCommands())
	if !slices.Equal(a, b) {
		t.Errorf("draw sets differ: threaded %d draws, unthreaded %d draws", len(a), len(b))
	}
	owner := command.Owner{Kind: command.OwnerComposite}
	if !slices.Equal(commandSummary(threaded.commands(owner)), commandSummary(single.commands(owner))) {
		t.Error("composite command streams differ between threaded and unthreaded runs")
	}
	if !slices.Equal(commandSummary(threaded.commands(command.Owner{Kind: command.OwnerShadow})),
		commandSummary(single.commands(command.Owner{Kind: command.OwnerShadow}))) {
		t.Error("shadow command streams differ between threaded and unthreaded runs")
	}
}

func TestObjectBindingOptions(t *testing.T) {
	tests := []struct {
		name     string
		options  []SequencerBuilderOption
		wantRoot bool
		wantTex  bool
	}{
		{"all", nil, true, true},
		{"no textures", []SequencerBuilderOption{WithTextures(false)}, true, false},
		{"no root constants", []SequencerBuilderOption{WithRootConstants(false)}, false, true},
		{"neither", []SequencerBuilderOption{WithTextures(false), WithRootConstants(false)}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, rigConfig{rows: 1, workers: 2, threads: true, options: tt.options})
			r.render(t, 1)

			var root, tex bool
			for _, c := range r.workerCommands() {
				root = root || c.Op == headless.OpSetRootConstants
				tex = tex || (c.Op == headless.OpSetShaderResource && c.Slot == slotTexture)
			}
			if root != tt.wantRoot || tex != tt.wantTex {
				t.Errorf("root constants %v, textures %v, want %v, %v", root, tex, tt.wantRoot, tt.wantTex)
			}
		})
	}
}

func TestRootConstantShift(t *testing.T) {
	r := newRig(t, rigConfig{rows: 2, workers: 1, threads: false})
	r.render(t, 1)

	shifts := map[string]float32{}
	var object string
	for _, c := range r.workerCommands() {
		switch {
		case c.Op == headless.OpSetConstantBuffer && c.Slot == slotObject:
			object = c.Resource
		case c.Op == headless.OpSetRootConstants:
			shifts[object] = c.Values[0]
		}
	}
	for i := range r.scene.Len() {
		label := fmt.Sprintf("object %d", i)
		if got, want := shifts[label], 0.125*float32(i); got != want {
			t.Errorf("%s shift = %v, want %v", label, got, want)
		}
	}
}

// =============================================================================
// Errors
// =============================================================================

func TestSubmitFailureAbortsFrame(t *testing.T) {
	r := newRig(t, rigConfig{rows: 1, workers: 2, threads: true})
	if err := r.device.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if _, err := r.seq.RenderFrame(); err == nil {
		t.Fatal("RenderFrame() on a closed queue returned nil error")
	}
	if r.seq.FrameIndex() != 0 || r.surface.Presents() != 0 {
		t.Errorf("FrameIndex() = %d, Presents() = %d after failed frame, want 0, 0", r.seq.FrameIndex(), r.surface.Presents())
	}
}

func TestAbortedFrameRestoresTrackerStates(t *testing.T) {
	tests := []struct {
		name        string
		failAt      int
		wantDiffuse gpu.ResourceState
	}{
		{"clear batch", 1, gpu.StateShaderReadable},
		{"worker batch", 2, gpu.StateRenderTarget},
		{"composite batch", 3, gpu.StateRenderTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, rigConfig{rows: 1, workers: 2, threads: true, queue: func(q gpu.Queue) gpu.Queue {
				return &failingQueue{Queue: q, mu: &sync.Mutex{}, failAt: tt.failAt}
			}})
			diffuse := r.resources.GBuffer.Colors[0]
			bb := r.surface.BackBuffer(r.surface.CurrentBackBufferIndex())

			if err := r.scene.Update(); err != nil {
				t.Fatalf("Update() = %v", err)
			}
			if _, err := r.seq.RenderFrame(); err == nil {
				t.Fatal("RenderFrame() with a failing submit returned nil error")
			}
			if s, _ := r.tracker.State(diffuse); s != tt.wantDiffuse {
				t.Errorf("%s after aborted frame = %s, want %s", diffuse.Label(), s, tt.wantDiffuse)
			}
			if s, _ := r.tracker.State(bb); s != gpu.StatePresent {
				t.Errorf("%s after aborted frame = %s, want Present", bb.Label(), s)
			}
			if r.surface.Presents() != 0 {
				t.Errorf("Presents() = %d after aborted frame, want 0", r.surface.Presents())
			}

			r.render(t, 1)
			for _, b := range r.tracker.Log() {
				if b.Resource == diffuse {
					if b.From != tt.wantDiffuse {
						t.Errorf("first %s barrier of next frame = %s, want source %s", diffuse.Label(), b, tt.wantDiffuse)
					}
					break
				}
			}
			if bad := state.Redundant(r.tracker.Log()); len(bad) != 0 {
				t.Errorf("redundant barriers after aborted frame: %v", bad)
			}
			if r.seq.FrameIndex() != 1 {
				t.Errorf("FrameIndex() = %d, want 1", r.seq.FrameIndex())
			}
		})
	}
}

func TestBrokenShaderFailsPipelineSetup(t *testing.T) {
	d := headless.NewDevice()
	defer d.Close()

	_, err := buildPipelines(d, func(p shader.Pass) (gpu.PipelineDesc, error) {
		desc, err := shader.Describe(p)
		if p == shader.PassBlur {
			desc.Source += "\nfn broken( {"
		}
		return desc, err
	})
	if err == nil || !strings.Contains(err.Error(), "blur") {
		t.Fatalf("buildPipelines() with broken blur source = %v, want blur compile error", err)
	}
}

func TestNewSequencerMissingCollaborator(t *testing.T) {
	d := headless.NewDevice()
	defer d.Close()
	if _, err := NewSequencer(d, nil, nil, nil, nil, nil, nil, nil, nil); err == nil {
		t.Error("NewSequencer() with nil collaborators returned nil error")
	}
}

func TestIntensitySizing(t *testing.T) {
	tests := []struct {
		height int
		groups uint32
		size   int
	}{
		{720, 23, 2880},
		{31, 1, 124},
		{32, 2, 128},
		{0, 1, 4},
	}
	for _, tt := range tests {
		if got := IntensityGroups(tt.height); got != tt.groups {
			t.Errorf("IntensityGroups(%d) = %d, want %d", tt.height, got, tt.groups)
		}
		if got := IntensitySize(tt.height); got != tt.size {
			t.Errorf("IntensitySize(%d) = %d, want %d", tt.height, got, tt.size)
		}
	}
}
