package skills

import (
	"sort"

	"github.com/YvodeRooij/spendcube/pkg/spend"
)

// MaxSkills caps how many skills are loaded for a single batch.
const MaxSkills = 5

// SkillContext is the taxonomy slice and examples handed to the classifier for one skill.
// It is built per batch and never persisted.
type SkillContext struct {
	SkillID  string                  `json:"skill_id"`
	Taxonomy []TaxonomyEntry         `json:"taxonomy"`
	Examples []ClassificationExample `json:"examples"`
}

// Detector selects the skills relevant to a batch of spend records.
type Detector struct {
	registry *Registry
}

// NewDetector creates a detector over the given registry.
func NewDetector(registry *Registry) *Detector {
	return &Detector{registry: registry}
}

// Registry returns the registry the detector scores against.
func (d *Detector) Registry() *Registry {
	return d.registry
}

// Scores accumulates priority/10 for every keyword match of every skill against
// every record. Skills with no match have no entry.
func (d *Detector) Scores(records []spend.Record) map[string]float64 {
	scores := make(map[string]float64)
	for i := range records {
		text := records[i].SearchText()
		for _, s := range d.registry.skills {
			for _, kw := range s.Keywords {
				if kw.MatchString(text) {
					scores[s.ID] += float64(s.Priority) / 10
				}
			}
		}
	}
	return scores
}

// DetectRelevantSkills returns at most MaxSkills skills ordered by descending score.
// Always-load skills are included whatever their score; other skills need a
// score above zero. Equal scores keep registry order.
func (d *Detector) DetectRelevantSkills(records []spend.Record) []Skill {
	scores := d.Scores(records)

	selected := []Skill{}
	for _, s := range d.registry.skills {
		if s.AlwaysLoad || scores[s.ID] > 0 {
			selected = append(selected, s)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return scores[selected[i].ID] > scores[selected[j].ID]
	})

	if len(selected) > MaxSkills {
		selected = selected[:MaxSkills]
	}
	return selected
}

// GetSkillsBySegments is a pass-through to Registry.BySegments.
func (d *Detector) GetSkillsBySegments(codes []string) []Skill {
	return d.registry.BySegments(codes)
}

// GetSkillByID is a pass-through to Registry.ByID.
func (d *Detector) GetSkillByID(id string) (Skill, bool) {
	return d.registry.ByID(id)
}

// LoadContext resolves the taxonomy entries and examples for each selected skill.
func (d *Detector) LoadContext(selected []Skill) []SkillContext {
	out := make([]SkillContext, 0, len(selected))
	for _, s := range selected {
		out = append(out, SkillContext{
			SkillID:  s.ID,
			Taxonomy: d.registry.Taxonomy(s.Segments),
			Examples: d.registry.Examples(s.ID),
		})
	}
	return out
}

// IDs returns the IDs of the given skills in order.
func IDs(skills []Skill) []string {
	ids := make([]string, len(skills))
	for i, s := range skills {
		ids[i] = s.ID
	}
	return ids
}
