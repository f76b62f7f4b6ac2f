// Package hmm defines the in-memory phoneme model shapes the NVM container
// serializes: context-dependent HMMs whose states emit through Gaussian
// mixtures.
//
// Parameter estimation, state alignment, and synthesis live outside this
// module; only the data carried on disk is modeled here.
package hmm

// StateTransition holds the per-state transition probabilities of a
// left-to-right phoneme HMM.
type StateTransition struct {
	SelfLoopProb  float64
	NextStateProb float64
	ExitProb      float64
}

// Normalized reports whether the three probabilities sum to one within eps.
func (t StateTransition) Normalized(eps float64) bool {
	sum := t.SelfLoopProb + t.NextStateProb + t.ExitProb
	diff := sum - 1
	if diff < 0 {
		diff = -diff
	}
	return diff <= eps
}

// GaussianComponent is a single Gaussian with a full covariance matrix.
// Covariance is stored row-major as [][]float64 (rows of equal length).
type GaussianComponent struct {
	Mean       []float64
	Covariance [][]float64
	Weight     float64
}

// Dimension returns the feature dimension of the component.
func (c *GaussianComponent) Dimension() int { return len(c.Mean) }

// GaussianMixture is a weighted set of Gaussian components sharing one
// feature dimension.
type GaussianMixture struct {
	Dim        int
	Weights    []float64
	Components []GaussianComponent
}

// NewGaussianMixture allocates a mixture of n zero-valued components of the
// given dimension, with uniform weights.
func NewGaussianMixture(n, dim int) *GaussianMixture {
	g := &GaussianMixture{
		Dim:        dim,
		Weights:    make([]float64, n),
		Components: make([]GaussianComponent, n),
	}
	for i := range g.Components {
		if n > 0 {
			g.Weights[i] = 1 / float64(n)
		}
		g.Components[i] = GaussianComponent{
			Mean:       make([]float64, dim),
			Covariance: zeroMatrix(dim, dim),
			Weight:     g.Weights[i],
		}
	}
	return g
}

// NumComponents returns the mixture size.
func (g *GaussianMixture) NumComponents() int { return len(g.Components) }

func zeroMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

// ContextFeature captures the linguistic and prosodic context a model was
// trained for. It is carried through the container verbatim.
type ContextFeature struct {
	CurrentPhoneme string
	LeftPhoneme    string
	RightPhoneme   string

	PositionInSyllable int32
	SyllableLength     int32
	PositionInWord     int32
	WordLength         int32

	PitchCents     float64
	NoteDurationMs float64
	Lyric          string

	TempoBPM     float64
	BeatPosition int32
}

// HmmState is one emitting state: an id, transition probabilities, and a
// Gaussian-mixture output distribution.
type HmmState struct {
	StateID            int32
	Transition         StateTransition
	OutputDistribution *GaussianMixture
}

// DefaultNumStates is the conventional state count for a phoneme HMM.
const DefaultNumStates = 5

// PhonemeHmm is a complete context-dependent phoneme model.
type PhonemeHmm struct {
	ModelName string
	Context   ContextFeature
	States    []HmmState
}

// NewPhonemeHmm builds a model with numStates states of the given feature
// dimension, each with a single-component mixture and the usual
// left-to-right transition defaults.
func NewPhonemeHmm(name string, ctx ContextFeature, numStates, featureDim int) *PhonemeHmm {
	m := &PhonemeHmm{ModelName: name, Context: ctx}
	m.States = make([]HmmState, numStates)
	for i := range m.States {
		m.States[i] = HmmState{
			StateID: int32(i),
			Transition: StateTransition{
				SelfLoopProb:  0.6,
				NextStateProb: 0.4,
			},
			OutputDistribution: NewGaussianMixture(1, featureDim),
		}
	}
	if numStates > 0 {
		last := &m.States[numStates-1]
		last.Transition = StateTransition{SelfLoopProb: 0.6, NextStateProb: 0, ExitProb: 0.4}
	}
	return m
}
