// Package voicebank holds the human-facing voice metadata stored in the
// META chunk of an NVM container, serialized as a JSON document.
//
// The Version type here describes engine/model compatibility and is
// deliberately separate from nvm.SemanticVersion, which versions the file
// format itself. The two answer different questions and must not be merged.
package voicebank

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Version is the engine/model version triple with an optional build tag.
type Version struct {
	Major int    `json:"major"`
	Minor int    `json:"minor"`
	Patch int    `json:"patch"`
	Build string `json:"build,omitempty"`
}

// Current is the engine version this build writes into new metadata.
var Current = Version{Major: 1, Minor: 0, Patch: 0}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// ParseVersion parses "major.minor.patch" with an optional "+build" suffix.
func ParseVersion(s string) (Version, error) {
	base, build, _ := strings.Cut(s, "+")
	parts := strings.Split(base, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("voicebank: invalid version %q", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("voicebank: invalid version %q", s)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2], Build: build}, nil
}

// Less orders versions by major, minor, patch. The build tag does not
// participate in ordering.
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Patch < other.Patch
}

// CompatibleWith reports whether a model at version v can run on an engine
// at the given version: same major, engine not older than the model.
func (v Version) CompatibleWith(engine Version) bool {
	return v.Major == engine.Major && !engine.Less(v)
}

// AudioFormat records the audio parameters the voice was trained with.
type AudioFormat struct {
	SampleRate  int     `json:"sample_rate"`
	FramePeriod float64 `json:"frame_period"`
	BitDepth    int     `json:"bit_depth"`
	Channels    int     `json:"channels"`
	Format      string  `json:"format"`
}

// UTAUStandard is the 44.1 kHz, 5 ms, 16-bit mono preset.
func UTAUStandard() AudioFormat {
	return AudioFormat{SampleRate: 44100, FramePeriod: 5.0, BitDepth: 16, Channels: 1, Format: "PCM"}
}

// Valid reports whether the format values are usable.
func (f AudioFormat) Valid() bool {
	return f.SampleRate > 0 && f.FramePeriod > 0 && f.Channels > 0 &&
		(f.BitDepth == 16 || f.BitDepth == 24 || f.BitDepth == 32)
}

// LicenseInfo records the usage terms of a voice bank.
type LicenseInfo struct {
	Name                string `json:"name,omitempty"`
	URL                 string `json:"url,omitempty"`
	Summary             string `json:"summary,omitempty"`
	CommercialUse       bool   `json:"commercial_use"`
	Modification        bool   `json:"modification"`
	Redistribution      bool   `json:"redistribution"`
	AttributionRequired bool   `json:"attribution_required"`
	Attribution         string `json:"attribution,omitempty"`
}

// ModelStatistics summarizes the trained model set for display.
type ModelStatistics struct {
	TotalPhonemes      int     `json:"total_phonemes"`
	TotalContexts      int     `json:"total_contexts"`
	TotalStates        int     `json:"total_states"`
	TotalGaussians     int     `json:"total_gaussians"`
	ModelSizeMB        float64 `json:"model_size_mb"`
	TrainingTimeHours  float64 `json:"training_time_hours"`
	TrainingUtterances int     `json:"training_utterances"`
	AverageF0Hz        float64 `json:"average_f0_hz"`
	F0RangeSemitones   float64 `json:"f0_range_semitones"`
}

// Metadata is the complete voice bank description.
type Metadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Author      string `json:"author,omitempty"`
	Contact     string `json:"contact,omitempty"`

	Version     Version  `json:"version"`
	Description string   `json:"description,omitempty"`
	Language    string   `json:"language"`
	Accent      string   `json:"accent,omitempty"`
	VoiceType   string   `json:"voice_type,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	AudioFormat       AudioFormat `json:"audio_format"`
	ModelType         string      `json:"model_type"`
	NexusSynthVersion Version     `json:"nexussynth_version"`
	PhonemeSet        string      `json:"phoneme_set"`

	CreatedTime  time.Time  `json:"created_time"`
	ModifiedTime time.Time  `json:"modified_time"`
	TrainedTime  *time.Time `json:"trained_time,omitempty"`

	License   LicenseInfo `json:"license"`
	Copyright string      `json:"copyright,omitempty"`
	Credits   []string    `json:"credits,omitempty"`

	Statistics ModelStatistics `json:"statistics"`

	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

// New returns metadata for a freshly created voice bank with defaults
// matching the original format: Japanese CV phoneme set, HMM model type,
// UTAU-standard audio.
func New(name string) *Metadata {
	now := time.Now().UTC().Truncate(time.Second)
	return &Metadata{
		ID:                uuid.NewString(),
		Name:              name,
		Version:           Version{Major: 1, Minor: 0, Patch: 0},
		Language:          "ja",
		AudioFormat:       UTAUStandard(),
		ModelType:         "hmm",
		NexusSynthVersion: Current,
		PhonemeSet:        "japanese-cv",
		CreatedTime:       now,
		ModifiedTime:      now,
		License:           LicenseInfo{AttributionRequired: true},
	}
}

// Validate returns the list of problems that make the metadata unusable.
func (m *Metadata) Validate() []string {
	var errs []string
	if m.Name == "" {
		errs = append(errs, "name is empty")
	}
	if !m.AudioFormat.Valid() {
		errs = append(errs, "audio format is invalid")
	}
	if m.ModelType == "" {
		errs = append(errs, "model type is empty")
	}
	return errs
}

// FullName renders "display name (name)" or just the name.
func (m *Metadata) FullName() string {
	if m.DisplayName != "" && m.DisplayName != m.Name {
		return fmt.Sprintf("%s (%s)", m.DisplayName, m.Name)
	}
	return m.Name
}

// CompatibleWithEngine reports whether this voice can be used by an engine
// at the given version.
func (m *Metadata) CompatibleWithEngine(engine Version) bool {
	return m.NexusSynthVersion.CompatibleWith(engine)
}

// ToJSON serializes the metadata document.
func (m *Metadata) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON parses a metadata document.
func FromJSON(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("voicebank: parse metadata: %w", err)
	}
	return &m, nil
}
