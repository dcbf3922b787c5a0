package manifest

// FileName is the manifest written next to batch outputs.
const FileName = "imgfit.manifest.json"

// Manifest is the top-level output of an imgfit batch run.
type Manifest struct {
	Version     int              `json:"version"`
	GeneratedAt string           `json:"generated_at"`
	Profile     string           `json:"profile"`
	TargetKB    int              `json:"target_kb"`
	BuildInfo   *BuildInfo       `json:"build_info,omitempty"`
	Entries     map[string]Entry `json:"entries"`
	Stats       Stats            `json:"stats"`
}

// BuildInfo captures run parameters for diagnostics.
type BuildInfo struct {
	Workers      int    `json:"workers"`
	MaxDimension int    `json:"max_dimension"`
	Search       string `json:"search"` // "binary" or "linear"
}

// Entry describes one source image and its fitted output.
type Entry struct {
	Original OriginalInfo `json:"original"`
	Output   *Output      `json:"output,omitempty"` // nil when skipped
	Skipped  string       `json:"skipped,omitempty"`
}

// OriginalInfo holds metadata about the source image.
type OriginalInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
}

// Output is the fitted JPEG written for an entry.
type Output struct {
	Path         string `json:"path"` // relative to the manifest
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Size         int64  `json:"size"`
	Quality      int    `json:"quality"`
	Stage        string `json:"stage"` // "search", "shrink", "absolute"
	Attempts     int    `json:"attempts"`
	Hash         string `json:"hash"` // 16 hex chars of xxhash64
	WithinBudget bool   `json:"within_budget"`
}

// Stats aggregates run metrics.
type Stats struct {
	TotalInputBytes  int64 `json:"total_input_bytes"`
	TotalOutputBytes int64 `json:"total_output_bytes"`
	TotalEntries     int   `json:"total_entries"`
	TotalOutputs     int   `json:"total_outputs"`
	ShrinkFallbacks  int   `json:"shrink_fallbacks"`
	AbsoluteFallback int   `json:"absolute_fallbacks"`
	OverBudget       int   `json:"over_budget"`
	SkippedRegress   int   `json:"skipped_regress,omitempty"`
}

// SupportedManifestVersion is the current schema version.
const SupportedManifestVersion = 1
