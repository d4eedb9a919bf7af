package sequencer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/command"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/state"
)

// fullscreenVertices is the vertex count of the fullscreen triangle every quad pass draws.
const fullscreenVertices uint32 = 3

// record resets buf, runs fn against its command buffer and closes it. The first error
// wins; the buffer is always closed once it was opened.
func record(buf *command.Buffer, fn func(cb gpu.CommandBuffer) error) error {
	if err := buf.Reset(); err != nil {
		return err
	}
	err := fn(buf.Recorder())
	if err == nil {
		err = buf.Recorder().Err()
	}
	if closeErr := buf.Close(); err == nil {
		err = closeErr
	}
	return err
}

// bindRead binds res for reading after checking the tracker does not hold it writable.
func (s *sequencer) bindRead(cb gpu.CommandBuffer, slot uint32, res gpu.Resource) error {
	if err := s.tracker.RequireReadable(res); err != nil {
		return err
	}
	cb.SetShaderResource(slot, res)
	return nil
}

func (s *sequencer) transition(cb gpu.CommandBuffer, transitions ...state.Transition) error {
	_, err := s.tracker.TransitionAll(cb, transitions...)
	return err
}

// recordClear moves the G-buffer into its write states and clears it.
func (s *sequencer) recordClear(cb gpu.CommandBuffer) error {
	gb := s.resources.GBuffer
	transitions := make([]state.Transition, 0, len(gb.Colors)+1)
	for _, c := range gb.Colors {
		transitions = append(transitions, state.Transition{Resource: c, To: gpu.StateRenderTarget})
	}
	transitions = append(transitions, state.Transition{Resource: gb.Depth, To: gpu.StateDepthWrite})
	if err := s.transition(cb, transitions...); err != nil {
		return fmt.Errorf("sequencer: clear pass: %w", err)
	}
	gb.Bind(cb)
	gb.Clear(cb)
	return nil
}

// requireGBufferWritable checks that the clear pass left every G-buffer target writable.
// Workers bind the G-buffer without transitioning it.
func (s *sequencer) requireGBufferWritable() error {
	gb := s.resources.GBuffer
	for _, c := range gb.Colors {
		if err := s.tracker.RequireState(c, gpu.StateRenderTarget); err != nil {
			return fmt.Errorf("sequencer: gbuffer pass: %w", err)
		}
	}
	if err := s.tracker.RequireState(gb.Depth, gpu.StateDepthWrite); err != nil {
		return fmt.Errorf("sequencer: gbuffer pass: %w", err)
	}
	return nil
}

// recordShadow draws every object into the shadow map from the light's camera and leaves
// the map readable for lighting.
func (s *sequencer) recordShadow(cb gpu.CommandBuffer) error {
	shadowMap := s.resources.ShadowMap
	if _, err := s.tracker.Transition(cb, shadowMap, gpu.StateDepthWrite); err != nil {
		return fmt.Errorf("sequencer: shadow pass: %w", err)
	}
	cb.SetRenderTargets(nil, shadowMap)
	cb.ClearDepth(shadowMap, 1.0)
	cb.SetPipeline(s.pipelines.Shadow)
	cb.SetConstantBuffer(slotCamera, s.resources.ShadowConstants)
	for _, o := range s.scene.Objects() {
		cb.SetConstantBuffer(slotObject, o.ConstantBuffer())
		if err := o.Draw(cb); err != nil {
			return fmt.Errorf("sequencer: shadow pass object %d: %w", o.Index(), err)
		}
	}
	if _, err := s.tracker.Transition(cb, shadowMap, gpu.StateShaderReadable); err != nil {
		return fmt.Errorf("sequencer: shadow pass: %w", err)
	}
	return nil
}

// recordComposite records ambient occlusion, blur, lighting, the intensity reduction and
// tone mapping into the back buffer.
func (s *sequencer) recordComposite(cb gpu.CommandBuffer, backBuffer gpu.Resource) error {
	r := s.resources
	readable := make([]state.Transition, 0, len(r.GBuffer.Colors))
	for _, c := range r.GBuffer.Colors {
		readable = append(readable, state.Transition{Resource: c, To: gpu.StateShaderReadable})
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"ao", func() error {
			if err := s.transition(cb, append(readable, state.Transition{Resource: r.AO, To: gpu.StateRenderTarget})...); err != nil {
				return err
			}
			cb.SetRenderTargets([]gpu.Resource{r.AO}, nil)
			cb.SetPipeline(s.pipelines.AO)
			cb.SetConstantBuffer(0, r.SceneConstants)
			return s.quad(cb, r.Normal(), r.Depth())
		}},
		{"blur", func() error {
			if err := s.transition(cb,
				state.Transition{Resource: r.AO, To: gpu.StateShaderReadable},
				state.Transition{Resource: r.Blur, To: gpu.StateRenderTarget},
			); err != nil {
				return err
			}
			cb.SetRenderTargets([]gpu.Resource{r.Blur}, nil)
			cb.SetPipeline(s.pipelines.Blur)
			if err := s.bindRead(cb, 0, r.AO); err != nil {
				return err
			}
			cb.Draw(fullscreenVertices, 1)
			return nil
		}},
		{"lighting", func() error {
			if err := s.transition(cb,
				state.Transition{Resource: r.Blur, To: gpu.StateShaderReadable},
				state.Transition{Resource: r.HDR, To: gpu.StateRenderTarget},
			); err != nil {
				return err
			}
			cb.SetRenderTargets([]gpu.Resource{r.HDR}, nil)
			cb.SetPipeline(s.pipelines.Lighting)
			cb.SetConstantBuffer(0, r.SceneConstants)
			return s.quad(cb, r.Diffuse(), r.Normal(), r.Depth(), r.Blur, r.ShadowMap)
		}},
		{"intensity", func() error {
			if err := s.transition(cb,
				state.Transition{Resource: r.HDR, To: gpu.StateShaderReadable},
				state.Transition{Resource: r.Intensity, To: gpu.StateUnorderedAccess},
			); err != nil {
				return err
			}
			cb.SetPipeline(s.pipelines.Intensity)
			cb.SetConstantBuffer(0, r.SceneConstants)
			if err := s.bindRead(cb, 1, r.HDR); err != nil {
				return err
			}
			cb.SetShaderResource(2, r.Intensity)
			cb.Dispatch(IntensityGroups(r.Height), 1, 1)
			return nil
		}},
		{"tonemap", func() error {
			if err := s.transition(cb,
				state.Transition{Resource: r.Intensity, To: gpu.StateConstantBuffer},
				state.Transition{Resource: backBuffer, To: gpu.StateRenderTarget},
			); err != nil {
				return err
			}
			cb.SetRenderTargets([]gpu.Resource{backBuffer}, nil)
			cb.SetPipeline(s.pipelines.ToneMap)
			cb.SetConstantBuffer(0, r.SceneConstants)
			if err := s.bindRead(cb, 1, r.HDR); err != nil {
				return err
			}
			if err := s.bindRead(cb, 2, r.Intensity); err != nil {
				return err
			}
			cb.Draw(fullscreenVertices, 1)
			_, err := s.tracker.Transition(cb, backBuffer, gpu.StatePresent)
			return err
		}},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("sequencer: %s pass: %w", step.name, err)
		}
	}
	return nil
}

// quad binds inputs to slots 1.. and draws the fullscreen triangle.
func (s *sequencer) quad(cb gpu.CommandBuffer, inputs ...gpu.Resource) error {
	for i, res := range inputs {
		if err := s.bindRead(cb, uint32(i+1), res); err != nil {
			return err
		}
	}
	cb.Draw(fullscreenVertices, 1)
	return nil
}
