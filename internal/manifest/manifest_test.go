package manifest

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func sample() *Manifest {
	m := New("test-profile", 300)
	m.BuildInfo = &BuildInfo{Workers: 4, MaxDimension: 1024, Search: "binary"}
	m.Entries["photos/beach"] = Entry{
		Original: OriginalInfo{Width: 4000, Height: 3000, Format: "jpeg", Size: 4_000_000},
		Output: &Output{
			Path: "photos/beach.1024.768.abcd1234.jpg", Width: 1024, Height: 768,
			Size: 280_000, Quality: 83, Stage: "search", Attempts: 7,
			Hash: "abcd1234abcd1234", WithinBudget: true,
		},
	}
	m.Entries["noise"] = Entry{
		Original: OriginalInfo{Width: 2000, Height: 2000, Format: "png", Size: 12_000_000},
		Output: &Output{
			Path: "noise.200.200.ffff0000.jpg", Width: 200, Height: 200,
			Size: 9_000, Quality: 40, Stage: "absolute", Attempts: 23,
			Hash: "ffff0000ffff0000", WithinBudget: false,
		},
	}
	m.Entries["icon"] = Entry{
		Original: OriginalInfo{Width: 32, Height: 32, Format: "png", Size: 300},
		Skipped:  "output not smaller than source",
	}
	return m
}

func TestManifestRoundtrip(t *testing.T) {
	m := sample()

	path := filepath.Join(t.TempDir(), FileName)
	if err := WriteJSON(m, path); err != nil {
		t.Fatalf("write: %v", err)
	}

	m2, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if m2.Version != SupportedManifestVersion {
		t.Errorf("version: got %d, want %d", m2.Version, SupportedManifestVersion)
	}
	if m2.Profile != "test-profile" || m2.TargetKB != 300 {
		t.Errorf("header: got profile=%q target=%d", m2.Profile, m2.TargetKB)
	}
	if m2.BuildInfo == nil || m2.BuildInfo.Workers != 4 || m2.BuildInfo.Search != "binary" {
		t.Errorf("build_info: got %+v", m2.BuildInfo)
	}

	e, ok := m2.Entries["photos/beach"]
	if !ok || e.Output == nil {
		t.Fatal("entry photos/beach missing output")
	}
	if e.Output.Quality != 83 || e.Output.Stage != "search" {
		t.Errorf("output: got %+v", e.Output)
	}
	if m2.Entries["icon"].Output != nil {
		t.Error("skipped entry should have no output")
	}
}

func TestComputeStats(t *testing.T) {
	m := sample()
	m.ComputeStats()
	s := m.Stats

	if s.TotalEntries != 3 || s.TotalOutputs != 2 {
		t.Errorf("counts: got entries=%d outputs=%d", s.TotalEntries, s.TotalOutputs)
	}
	if s.TotalInputBytes != 16_000_300 {
		t.Errorf("input bytes: got %d", s.TotalInputBytes)
	}
	if s.TotalOutputBytes != 289_000 {
		t.Errorf("output bytes: got %d", s.TotalOutputBytes)
	}
	if s.AbsoluteFallback != 1 || s.ShrinkFallbacks != 0 || s.OverBudget != 1 {
		t.Errorf("fallbacks: got %+v", s)
	}
	if s.SkippedRegress != 1 {
		t.Errorf("skipped: got %d", s.SkippedRegress)
	}
}

func TestManifestVersion(t *testing.T) {
	m := New("v-test", 100)
	if m.Version != SupportedManifestVersion {
		t.Errorf("new manifest version: got %d, want %d", m.Version, SupportedManifestVersion)
	}
}

func TestManifestIgnoresUnknownFields(t *testing.T) {
	// Simulate a future manifest with extra fields.
	raw := `{
		"version": 1,
		"generated_at": "2026-01-01T00:00:00Z",
		"profile": "test",
		"target_kb": 300,
		"future_field": "should be ignored",
		"build_info": { "workers": 8, "max_dimension": 1024, "search": "binary", "new_flag": true },
		"entries": {},
		"stats": { "total_input_bytes": 0, "total_output_bytes": 0, "total_entries": 0, "new_stat": 42 }
	}`

	var m Manifest
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal with unknown fields: %v", err)
	}
	if m.Version != 1 || m.TargetKB != 300 {
		t.Errorf("header: got %+v", m)
	}
	if m.BuildInfo == nil || m.BuildInfo.Workers != 8 {
		t.Error("build_info not parsed correctly")
	}
}
