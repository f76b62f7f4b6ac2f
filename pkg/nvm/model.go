package nvm

import (
	"fmt"

	"github.com/nexussynth/nexusvoice/pkg/nvm/binio"
	"github.com/nexussynth/nexusvoice/pkg/voicebank/hmm"
)

// Decode-side bounds so corrupt length fields cannot drive huge
// allocations.
const (
	maxModelStates       = 1024
	maxMixtureComponents = 4096
)

// SerializedModel is the container's view of one phoneme HMM: the model
// identity, its context features, and the full state/mixture parameter set.
// Instances are owned by the File's model map while the handle is open.
type SerializedModel struct {
	ModelName string
	ModelID   uint32
	Context   hmm.ContextFeature
	States    []hmm.HmmState
}

// FromPhonemeHmm captures a live model for writing.
func FromPhonemeHmm(m *hmm.PhonemeHmm) *SerializedModel {
	return &SerializedModel{
		ModelName: m.ModelName,
		Context:   m.Context,
		States:    m.States,
	}
}

// ToPhonemeHmm reconstructs the runtime model type.
func (s *SerializedModel) ToPhonemeHmm() *hmm.PhonemeHmm {
	return &hmm.PhonemeHmm{
		ModelName: s.ModelName,
		Context:   s.Context,
		States:    s.States,
	}
}

// write encodes the model payload. Layout: name, id, context fields, state
// count, then per state the transition probabilities and the Gaussian
// mixture. The per-component trailing weight duplicates the weights table
// for layout compatibility with earlier encodings.
func (s *SerializedModel) write(w *binio.Writer) error {
	if err := w.String(s.ModelName); err != nil {
		return err
	}
	if err := w.Uint32(s.ModelID); err != nil {
		return err
	}

	ctx := &s.Context
	if err := w.String(ctx.LeftPhoneme); err != nil {
		return err
	}
	if err := w.String(ctx.CurrentPhoneme); err != nil {
		return err
	}
	if err := w.String(ctx.RightPhoneme); err != nil {
		return err
	}
	for _, v := range [...]int32{ctx.PositionInSyllable, ctx.SyllableLength, ctx.PositionInWord, ctx.WordLength} {
		if err := w.Int32(v); err != nil {
			return err
		}
	}
	if err := w.Float64(ctx.PitchCents); err != nil {
		return err
	}
	if err := w.Float64(ctx.NoteDurationMs); err != nil {
		return err
	}
	if err := w.String(ctx.Lyric); err != nil {
		return err
	}
	if err := w.Float64(ctx.TempoBPM); err != nil {
		return err
	}
	if err := w.Int32(ctx.BeatPosition); err != nil {
		return err
	}

	if err := w.Uint32(uint32(len(s.States))); err != nil {
		return err
	}
	for i := range s.States {
		if err := writeState(w, &s.States[i]); err != nil {
			return fmt.Errorf("state %d: %w", i, err)
		}
	}
	return nil
}

func writeState(w *binio.Writer, st *hmm.HmmState) error {
	if err := w.Int32(st.StateID); err != nil {
		return err
	}
	for _, p := range [...]float64{st.Transition.SelfLoopProb, st.Transition.NextStateProb, st.Transition.ExitProb} {
		if err := w.Float64(p); err != nil {
			return err
		}
	}

	gmm := st.OutputDistribution
	if gmm == nil {
		gmm = hmm.NewGaussianMixture(0, 0)
	}
	if err := w.Uint32(uint32(gmm.NumComponents())); err != nil {
		return err
	}
	if err := w.Int32(int32(gmm.Dim)); err != nil {
		return err
	}
	for _, weight := range gmm.Weights {
		if err := w.Float64(weight); err != nil {
			return err
		}
	}
	for i := range gmm.Components {
		c := &gmm.Components[i]
		if err := w.Float64Vector(c.Mean); err != nil {
			return err
		}
		if err := w.Float64Matrix(c.Covariance); err != nil {
			return err
		}
		if err := w.Float64(c.Weight); err != nil {
			return err
		}
	}
	return nil
}

// readSerializedModel decodes one model payload.
func readSerializedModel(r *binio.Reader) (*SerializedModel, error) {
	s := &SerializedModel{}
	var err error
	if s.ModelName, err = r.String(); err != nil {
		return nil, err
	}
	if s.ModelID, err = r.Uint32(); err != nil {
		return nil, err
	}

	ctx := &s.Context
	if ctx.LeftPhoneme, err = r.String(); err != nil {
		return nil, err
	}
	if ctx.CurrentPhoneme, err = r.String(); err != nil {
		return nil, err
	}
	if ctx.RightPhoneme, err = r.String(); err != nil {
		return nil, err
	}
	for _, dst := range [...]*int32{&ctx.PositionInSyllable, &ctx.SyllableLength, &ctx.PositionInWord, &ctx.WordLength} {
		if *dst, err = r.Int32(); err != nil {
			return nil, err
		}
	}
	if ctx.PitchCents, err = r.Float64(); err != nil {
		return nil, err
	}
	if ctx.NoteDurationMs, err = r.Float64(); err != nil {
		return nil, err
	}
	if ctx.Lyric, err = r.String(); err != nil {
		return nil, err
	}
	if ctx.TempoBPM, err = r.Float64(); err != nil {
		return nil, err
	}
	if ctx.BeatPosition, err = r.Int32(); err != nil {
		return nil, err
	}

	numStates, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if numStates > maxModelStates {
		return nil, fmt.Errorf("%w: model declares %d states", ErrCorruptFile, numStates)
	}
	s.States = make([]hmm.HmmState, numStates)
	for i := range s.States {
		if err := readState(r, &s.States[i]); err != nil {
			return nil, fmt.Errorf("state %d: %w", i, err)
		}
	}
	return s, nil
}

func readState(r *binio.Reader, st *hmm.HmmState) error {
	var err error
	if st.StateID, err = r.Int32(); err != nil {
		return err
	}
	for _, dst := range [...]*float64{&st.Transition.SelfLoopProb, &st.Transition.NextStateProb, &st.Transition.ExitProb} {
		if *dst, err = r.Float64(); err != nil {
			return err
		}
	}

	numComponents, err := r.Uint32()
	if err != nil {
		return err
	}
	dim, err := r.Int32()
	if err != nil {
		return err
	}
	if dim < 0 {
		return fmt.Errorf("%w: negative mixture dimension %d", ErrCorruptFile, dim)
	}
	if numComponents > maxMixtureComponents {
		return fmt.Errorf("%w: mixture declares %d components", ErrCorruptFile, numComponents)
	}

	// The mixture is allocated with its final component count and
	// dimension before any parameters are assigned.
	gmm := hmm.NewGaussianMixture(int(numComponents), int(dim))
	for i := range gmm.Weights {
		if gmm.Weights[i], err = r.Float64(); err != nil {
			return err
		}
	}
	for i := range gmm.Components {
		c := &gmm.Components[i]
		if c.Mean, err = r.Float64Vector(); err != nil {
			return err
		}
		if c.Covariance, err = r.Float64Matrix(); err != nil {
			return err
		}
		if c.Weight, err = r.Float64(); err != nil {
			return err
		}
		if len(c.Mean) != int(dim) {
			return fmt.Errorf("%w: component %d mean dimension %d, mixture dimension %d",
				ErrCorruptFile, i, len(c.Mean), dim)
		}
	}
	st.OutputDistribution = gmm
	return nil
}
