package profile

import (
	"sort"

	"github.com/AnyUserName/imgfit/internal/budget"
)

// Profile bundles a size target with the fit tuning that suits it.
type Profile struct {
	Name         string
	MaxSizeKB    int                 // default target
	MaxDimension int                 // longest side after pre-scale
	Search       budget.SearchPolicy // quality walk
}

// DefaultName is used when no profile is requested.
const DefaultName = "default"

// Built-in profiles.
var profiles = map[string]Profile{
	"default": {
		Name:         "default",
		MaxSizeKB:    budget.DefaultMaxSizeKB,
		MaxDimension: 1024,
		Search:       budget.SearchBinary,
	},
	"web": {
		Name:         "web",
		MaxSizeKB:    200,
		MaxDimension: 1280,
		Search:       budget.SearchBinary,
	},
	"thumbnail": {
		Name:         "thumbnail",
		MaxSizeKB:    30,
		MaxDimension: 320,
		Search:       budget.SearchBinary,
	},
	"hq": {
		Name:         "hq",
		MaxSizeKB:    1000,
		MaxDimension: 2048,
		Search:       budget.SearchLinear, // slower, does not trust size monotonicity
	},
}

// Get returns a profile by name. Falls back to default if unknown.
func Get(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	p := profiles[DefaultName]
	p.Name = name // preserve requested name
	return p
}

// Known reports whether name is a built-in profile.
func Known(name string) bool {
	_, ok := profiles[name]
	return ok
}

// Names lists built-in profiles in sorted order.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Options returns budget options with this profile's dimension and search
// policy over the reference fallback tuning.
func (p Profile) Options() budget.Options {
	o := budget.DefaultOptions()
	o.MaxDimension = p.MaxDimension
	o.Search = p.Search
	return o
}
