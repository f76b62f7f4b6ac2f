package nvm

import (
	"bytes"
	"math"
	"reflect"
	"testing"

	"github.com/nexussynth/nexusvoice/pkg/nvm/binio"
	"github.com/nexussynth/nexusvoice/pkg/voicebank/hmm"
)

// testModel builds a fully populated model with distinctive parameter
// values in every field.
func testModel(name string) *hmm.PhonemeHmm {
	ctx := hmm.ContextFeature{
		CurrentPhoneme:     "a",
		LeftPhoneme:        "k",
		RightPhoneme:       "i",
		PositionInSyllable: 1,
		SyllableLength:     2,
		PositionInWord:     3,
		WordLength:         4,
		PitchCents:         6600.5,
		NoteDurationMs:     480.25,
		Lyric:              "か",
		TempoBPM:           120.5,
		BeatPosition:       -3,
	}
	m := hmm.NewPhonemeHmm(name, ctx, hmm.DefaultNumStates, 3)
	for i := range m.States {
		gmm := hmm.NewGaussianMixture(2, 3)
		for c := range gmm.Components {
			for d := 0; d < gmm.Dim; d++ {
				gmm.Components[c].Mean[d] = float64(i*100+c*10+d) + 0.5
				for e := 0; e < gmm.Dim; e++ {
					gmm.Components[c].Covariance[d][e] = float64(d*gmm.Dim+e) + 0.125
				}
			}
			gmm.Components[c].Weight = gmm.Weights[c]
		}
		m.States[i].OutputDistribution = gmm
	}
	return m
}

func TestModelRoundTrip(t *testing.T) {
	t.Parallel()

	orig := FromPhonemeHmm(testModel("a_k_i"))
	orig.ModelID = 42

	var buf bytes.Buffer
	w := binio.NewWriter(&buf)
	if err := orig.write(w); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := readSerializedModel(binio.NewReader(bytes.NewReader(buf.Bytes())))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if got.ModelName != orig.ModelName {
		t.Errorf("name %q, want %q", got.ModelName, orig.ModelName)
	}
	if got.ModelID != orig.ModelID {
		t.Errorf("id %d, want %d", got.ModelID, orig.ModelID)
	}
	if got.Context != orig.Context {
		t.Errorf("context mismatch:\ngot  %+v\nwant %+v", got.Context, orig.Context)
	}
	if len(got.States) != len(orig.States) {
		t.Fatalf("state count %d, want %d", len(got.States), len(orig.States))
	}
	for i := range got.States {
		gs, os := &got.States[i], &orig.States[i]
		if gs.StateID != os.StateID {
			t.Errorf("state %d id %d, want %d", i, gs.StateID, os.StateID)
		}
		if gs.Transition != os.Transition {
			t.Errorf("state %d transition %+v, want %+v", i, gs.Transition, os.Transition)
		}
		if !reflect.DeepEqual(gs.OutputDistribution, os.OutputDistribution) {
			t.Errorf("state %d mixture mismatch", i)
		}
	}
}

func TestModelSpecialFloats(t *testing.T) {
	t.Parallel()

	m := testModel("edge")
	m.Context.PitchCents = math.Inf(1)
	m.Context.TempoBPM = math.SmallestNonzeroFloat64
	m.States[0].OutputDistribution.Components[0].Mean[0] = math.Copysign(0, -1)

	orig := FromPhonemeHmm(m)
	var buf bytes.Buffer
	if err := orig.write(binio.NewWriter(&buf)); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := readSerializedModel(binio.NewReader(bytes.NewReader(buf.Bytes())))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !math.IsInf(got.Context.PitchCents, 1) {
		t.Errorf("+Inf not preserved: %v", got.Context.PitchCents)
	}
	if got.Context.TempoBPM != math.SmallestNonzeroFloat64 {
		t.Errorf("denormal not preserved: %v", got.Context.TempoBPM)
	}
	mean0 := got.States[0].OutputDistribution.Components[0].Mean[0]
	if math.Float64bits(mean0) != math.Float64bits(math.Copysign(0, -1)) {
		t.Errorf("negative zero not preserved: bits %016X", math.Float64bits(mean0))
	}
}

func TestModelNilMixtureEncodesAsEmpty(t *testing.T) {
	t.Parallel()

	m := hmm.NewPhonemeHmm("bare", hmm.ContextFeature{CurrentPhoneme: "sil"}, hmm.DefaultNumStates, 0)
	for i := range m.States {
		m.States[i].OutputDistribution = nil
	}
	orig := FromPhonemeHmm(m)

	var buf bytes.Buffer
	if err := orig.write(binio.NewWriter(&buf)); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := readSerializedModel(binio.NewReader(bytes.NewReader(buf.Bytes())))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.States) != hmm.DefaultNumStates {
		t.Fatalf("state count %d", len(got.States))
	}
	for i := range got.States {
		gmm := got.States[i].OutputDistribution
		if gmm == nil || gmm.NumComponents() != 0 {
			t.Errorf("state %d: expected empty mixture", i)
		}
	}
}

func TestModelTruncatedPayload(t *testing.T) {
	t.Parallel()

	orig := FromPhonemeHmm(testModel("trunc"))
	var buf bytes.Buffer
	if err := orig.write(binio.NewWriter(&buf)); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw := buf.Bytes()
	if _, err := readSerializedModel(binio.NewReader(bytes.NewReader(raw[:len(raw)/2]))); err == nil {
		t.Fatal("truncated model payload decoded without error")
	}
}
