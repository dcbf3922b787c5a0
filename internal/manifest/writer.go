package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// New creates an empty manifest with defaults.
func New(profileName string, targetKB int) *Manifest {
	return &Manifest{
		Version:     SupportedManifestVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Profile:     profileName,
		TargetKB:    targetKB,
		Entries:     make(map[string]Entry),
	}
}

// ComputeStats recalculates aggregate statistics from entries.
func (m *Manifest) ComputeStats() {
	var s Stats
	s.TotalEntries = len(m.Entries)
	for _, e := range m.Entries {
		s.TotalInputBytes += e.Original.Size
		if e.Output == nil {
			s.SkippedRegress++
			continue
		}
		s.TotalOutputs++
		s.TotalOutputBytes += e.Output.Size
		switch e.Output.Stage {
		case "shrink":
			s.ShrinkFallbacks++
		case "absolute":
			s.AbsoluteFallback++
		}
		if !e.Output.WithinBudget {
			s.OverBudget++
		}
	}
	m.Stats = s
}

// WriteJSON serializes the manifest to a JSON file. encoding/json sorts
// map keys, so output is stable for identical inputs.
func WriteJSON(m *Manifest, path string) error {
	m.ComputeStats()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON loads a manifest, ignoring unknown fields.
func ReadJSON(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
