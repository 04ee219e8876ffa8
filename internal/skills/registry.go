// Package skills implements progressive context disclosure for classification.
//
// A Skill bundles the taxonomy segments of one purchasing domain with the
// keyword patterns that signal it. The Registry is a fixed catalog built once
// at process start; the Detector scores a batch of spend records against it and
// selects the few skills whose taxonomy slices are handed to the classifier.
package skills

import (
	"regexp"
	"sort"
)

// Skill is one purchasing domain known to the classifier.
// Skills are immutable once the Registry is built.
type Skill struct {
	ID          string           // Unique identifier (e.g. "it_hardware")
	Name        string           // Display name
	Description string           // What the domain covers
	Segments    []string         // Taxonomy segment codes covered by this skill
	Keywords    []*regexp.Regexp // Matched against the lower-cased record search text
	Priority    int              // Positive; higher means more salient
	AlwaysLoad  bool             // Included in every selection regardless of score
}

// TaxonomyEntry is a single reference code in the classification scheme.
type TaxonomyEntry struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Segment     string `json:"segment"`
	Family      string `json:"family"`
	Class       string `json:"class,omitempty"`
	Commodity   string `json:"commodity,omitempty"`
	Description string `json:"description,omitempty"`
}

// ExampleInput is the record side of a few-shot example.
type ExampleInput struct {
	Vendor      string `json:"vendor"`
	Description string `json:"description"`
}

// ExampleOutput is the expected classification of a few-shot example.
type ExampleOutput struct {
	Code      string `json:"code"`
	Title     string `json:"title"`
	Reasoning string `json:"reasoning"`
}

// ClassificationExample grounds the classifier with one worked example.
type ClassificationExample struct {
	Input  ExampleInput  `json:"input"`
	Output ExampleOutput `json:"output"`
}

// Registry is the read-only catalog of skills and the reference data they cover.
// It is safe for concurrent use because nothing mutates it after construction.
type Registry struct {
	skills   []Skill
	index    map[string]int
	taxonomy map[string][]TaxonomyEntry
	examples map[string][]ClassificationExample
}

// Option adjusts a Registry while it is being built.
type Option func(*Registry)

// WithAlwaysLoad marks the given skill IDs as always-load.
// Unknown IDs are ignored.
func WithAlwaysLoad(ids ...string) Option {
	return func(r *Registry) {
		for _, id := range ids {
			if i, ok := r.index[id]; ok {
				r.skills[i].AlwaysLoad = true
			}
		}
	}
}

// NewRegistry builds a registry from a skill list, taxonomy entries keyed by
// segment code, and few-shot examples keyed by skill ID.
// Registry order is the order of the skills slice. Later duplicates of an ID are dropped.
func NewRegistry(skills []Skill, taxonomy map[string][]TaxonomyEntry, examples map[string][]ClassificationExample, opts ...Option) *Registry {
	r := &Registry{
		skills:   make([]Skill, 0, len(skills)),
		index:    make(map[string]int, len(skills)),
		taxonomy: make(map[string][]TaxonomyEntry, len(taxonomy)),
		examples: make(map[string][]ClassificationExample, len(examples)),
	}

	for _, s := range skills {
		if _, dup := r.index[s.ID]; dup {
			continue
		}
		r.index[s.ID] = len(r.skills)
		r.skills = append(r.skills, s)
	}
	for seg, entries := range taxonomy {
		r.taxonomy[seg] = append([]TaxonomyEntry(nil), entries...)
	}
	for id, ex := range examples {
		r.examples[id] = append([]ClassificationExample(nil), ex...)
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// All returns every skill in registry order.
func (r *Registry) All() []Skill {
	out := make([]Skill, len(r.skills))
	copy(out, r.skills)
	return out
}

// ByID returns the skill with the given ID, or false if there is none.
func (r *Registry) ByID(id string) (Skill, bool) {
	i, ok := r.index[id]
	if !ok {
		return Skill{}, false
	}
	return r.skills[i], true
}

// BySegments returns the skills whose segment set intersects codes, in registry order.
func (r *Registry) BySegments(codes []string) []Skill {
	if len(codes) == 0 {
		return []Skill{}
	}

	want := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		want[c] = struct{}{}
	}

	out := []Skill{}
	for _, s := range r.skills {
		for _, seg := range s.Segments {
			if _, ok := want[seg]; ok {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// AllCoveredSegments returns the sorted, deduplicated union of every skill's segments.
func (r *Registry) AllCoveredSegments() []string {
	seen := make(map[string]struct{})
	for _, s := range r.skills {
		for _, seg := range s.Segments {
			seen[seg] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for seg := range seen {
		out = append(out, seg)
	}
	sort.Strings(out)
	return out
}

// Taxonomy returns the reference entries for the given segments, in the order
// the segments are listed.
func (r *Registry) Taxonomy(segments []string) []TaxonomyEntry {
	var out []TaxonomyEntry
	for _, seg := range segments {
		out = append(out, r.taxonomy[seg]...)
	}
	return out
}

// Examples returns the few-shot examples registered for a skill.
func (r *Registry) Examples(skillID string) []ClassificationExample {
	return append([]ClassificationExample(nil), r.examples[skillID]...)
}
