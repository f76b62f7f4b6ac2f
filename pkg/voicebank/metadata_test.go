package voicebank

import (
	"testing"
	"time"
)

func TestVersionParseAndRender(t *testing.T) {
	t.Parallel()

	v, err := ParseVersion("2.3.4+nightly")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v.Major != 2 || v.Minor != 3 || v.Patch != 4 || v.Build != "nightly" {
		t.Fatalf("parsed %+v", v)
	}
	if v.String() != "2.3.4+nightly" {
		t.Fatalf("render: %s", v.String())
	}

	for _, bad := range []string{"", "1.2", "1.2.x", "-1.0.0"} {
		if _, err := ParseVersion(bad); err == nil {
			t.Errorf("ParseVersion(%q) should fail", bad)
		}
	}
}

func TestEngineCompatibility(t *testing.T) {
	t.Parallel()

	model := Version{Major: 1, Minor: 2, Patch: 0}
	cases := []struct {
		engine Version
		want   bool
	}{
		{Version{Major: 1, Minor: 2, Patch: 0}, true},
		{Version{Major: 1, Minor: 3, Patch: 0}, true},
		{Version{Major: 1, Minor: 1, Patch: 9}, false},
		{Version{Major: 2, Minor: 0, Patch: 0}, false},
	}
	for _, tc := range cases {
		if got := model.CompatibleWith(tc.engine); got != tc.want {
			t.Errorf("model %s on engine %s: got %v want %v", model, tc.engine, got, tc.want)
		}
	}
}

func TestMetadataJSONRoundTrip(t *testing.T) {
	t.Parallel()

	m := New("teto")
	m.DisplayName = "Kasane Teto"
	m.Author = "example"
	m.Tags = []string{"japanese", "cv"}
	m.CustomFields = map[string]string{"source": "unit-test"}
	trained := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.TrainedTime = &trained
	m.Statistics.TotalPhonemes = 120

	data, err := m.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	got, err := FromJSON(data)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if got.ID != m.ID || got.Name != m.Name || got.DisplayName != m.DisplayName {
		t.Fatalf("identity mismatch: %+v", got)
	}
	if got.Version != m.Version || got.NexusSynthVersion != m.NexusSynthVersion {
		t.Fatalf("version mismatch: %+v", got)
	}
	if got.TrainedTime == nil || !got.TrainedTime.Equal(trained) {
		t.Fatalf("trained time mismatch: %v", got.TrainedTime)
	}
	if got.Statistics.TotalPhonemes != 120 {
		t.Fatalf("statistics mismatch: %+v", got.Statistics)
	}
	if got.CustomFields["source"] != "unit-test" {
		t.Fatalf("custom fields mismatch: %+v", got.CustomFields)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	m := New("voice")
	if errs := m.Validate(); len(errs) != 0 {
		t.Fatalf("fresh metadata should validate, got %v", errs)
	}

	m.Name = ""
	m.AudioFormat.SampleRate = 0
	if errs := m.Validate(); len(errs) != 2 {
		t.Fatalf("want 2 validation errors, got %v", errs)
	}
}
