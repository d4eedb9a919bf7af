package sequencer

// SequencerBuilderOption is a functional option for configuring a Sequencer.
type SequencerBuilderOption func(*sequencer)

// WithShadowPass enables or disables the shadow depth pass. Without it the shadow buffer
// is never submitted and the shadow map is never transitioned.
//
// Parameters:
//   - enabled: true to record the shadow pass
//
// Returns:
//   - SequencerBuilderOption: option function to apply
func WithShadowPass(enabled bool) SequencerBuilderOption {
	return func(s *sequencer) {
		s.shadowPass = enabled
	}
}

// WithTextures enables or disables binding each object's texture in the G-buffer pass.
func WithTextures(enabled bool) SequencerBuilderOption {
	return func(s *sequencer) {
		s.textures = enabled
	}
}

// WithRootConstants enables or disables the per-object root-constant shift.
func WithRootConstants(enabled bool) SequencerBuilderOption {
	return func(s *sequencer) {
		s.rootConstants = enabled
	}
}
