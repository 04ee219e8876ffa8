package skills

import (
	"regexp"
	"testing"

	"github.com/YvodeRooij/spendcube/pkg/spend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectRelevantSkills_DellAndStaples(t *testing.T) {
	d := NewDetector(DefaultRegistry())
	records := []spend.Record{
		{ID: "1", Vendor: "Dell", Description: "Laptop purchase"},
		{ID: "2", Vendor: "Staples", Description: "Paper and folders"},
	}

	got := d.DetectRelevantSkills(records)
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []string{"it_hardware", "office_supplies"}, IDs(got))

	scores := d.Scores(records)
	for _, s := range got {
		assert.Greater(t, scores[s.ID], 0.0)
	}
	// Both score 1.8; the stable sort keeps registry order
	assert.Equal(t, []string{"it_hardware", "office_supplies"}, IDs(got))
}

func TestDetectRelevantSkills_ScoreFormula(t *testing.T) {
	d := NewDetector(DefaultRegistry())
	scores := d.Scores([]spend.Record{{ID: "1", Vendor: "Dell", Description: "Laptop and monitor"}})

	// dell + laptop + monitor, priority 9
	assert.InDelta(t, 2.7, scores["it_hardware"], 1e-9)
	_, ok := scores["travel"]
	assert.False(t, ok, "unmatched skills have no score entry")
}

func TestDetectRelevantSkills_TruncatesAndOrders(t *testing.T) {
	d := NewDetector(DefaultRegistry())
	records := []spend.Record{
		{ID: "1", Vendor: "Acme", Description: "laptop"},
		{ID: "2", Vendor: "Acme", Description: "software"},
		{ID: "3", Vendor: "Acme", Description: "paper"},
		{ID: "4", Vendor: "Acme", Description: "consulting"},
		{ID: "5", Vendor: "Acme", Description: "cleaning"},
		{ID: "6", Vendor: "Acme", Description: "flight"},
		{ID: "7", Vendor: "Acme", Description: "advertising"},
		{ID: "8", Vendor: "Acme", Description: "freight"},
	}

	got := d.DetectRelevantSkills(records)
	require.Len(t, got, MaxSkills)
	assert.Equal(t, []string{"it_hardware", "software_saas", "professional_services", "office_supplies", "marketing"}, IDs(got))

	scores := d.Scores(records)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, scores[got[i-1].ID], scores[got[i].ID], "order must be non-increasing")
	}
}

func TestDetectRelevantSkills_EveryResultIsJustified(t *testing.T) {
	reg := DefaultRegistry(WithAlwaysLoad("logistics"))
	d := NewDetector(reg)

	batches := [][]spend.Record{
		nil,
		{{ID: "1", Vendor: "Unknown", Description: "misc"}},
		{{ID: "1", Vendor: "Uber", Description: "taxi to airport", Department: "Sales"}},
		{{ID: "1", Vendor: "Microsoft", Description: "Office 365 licence"}, {ID: "2", Vendor: "HP", Description: "toner"}},
	}

	for _, batch := range batches {
		got := d.DetectRelevantSkills(batch)
		assert.LessOrEqual(t, len(got), MaxSkills)
		assert.Contains(t, IDs(got), "logistics", "always-load skill present for every input")

		for _, s := range got {
			if s.AlwaysLoad {
				continue
			}
			matched := false
			for i := range batch {
				for _, kw := range s.Keywords {
					if kw.MatchString(batch[i].SearchText()) {
						matched = true
					}
				}
			}
			assert.True(t, matched, "skill %s returned without a keyword match", s.ID)
		}
	}
}

func TestDetectRelevantSkills_EmptyBatch(t *testing.T) {
	t.Run("no always-load skills yields empty result", func(t *testing.T) {
		d := NewDetector(DefaultRegistry())
		got := d.DetectRelevantSkills(nil)
		assert.Empty(t, got)
	})

	t.Run("always-load skills in registry order", func(t *testing.T) {
		d := NewDetector(DefaultRegistry(WithAlwaysLoad("travel", "it_hardware")))
		got := d.DetectRelevantSkills([]spend.Record{})
		assert.Equal(t, []string{"it_hardware", "travel"}, IDs(got))
	})
}

func TestDetectRelevantSkills_AlwaysLoadSortsAfterScored(t *testing.T) {
	d := NewDetector(DefaultRegistry(WithAlwaysLoad("facilities")))
	got := d.DetectRelevantSkills([]spend.Record{{ID: "1", Vendor: "FedEx", Description: "courier"}})
	assert.Equal(t, []string{"logistics", "facilities"}, IDs(got))
}

func TestDetectRelevantSkills_Deterministic(t *testing.T) {
	d := NewDetector(DefaultRegistry())
	records := []spend.Record{
		{ID: "1", Vendor: "FedEx", Description: "shipping"},
		{ID: "2", Vendor: "Staples", Description: "pens"},
	}
	first := IDs(d.DetectRelevantSkills(records))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, IDs(d.DetectRelevantSkills(records)))
	}
}

func TestLoadContext(t *testing.T) {
	d := NewDetector(DefaultRegistry())
	skill, ok := d.GetSkillByID("office_supplies")
	require.True(t, ok)

	ctxs := d.LoadContext([]Skill{skill})
	require.Len(t, ctxs, 1)
	assert.Equal(t, "office_supplies", ctxs[0].SkillID)
	assert.NotEmpty(t, ctxs[0].Examples)

	for _, e := range ctxs[0].Taxonomy {
		assert.Contains(t, skill.Segments, e.Segment)
	}
}

func TestPassThroughs(t *testing.T) {
	d := NewDetector(NewRegistry([]Skill{
		{ID: "a", Segments: []string{"10"}, Keywords: []*regexp.Regexp{regexp.MustCompile(`x`)}, Priority: 1},
	}, nil, nil))

	assert.Len(t, d.GetSkillsBySegments([]string{"10"}), 1)
	_, ok := d.GetSkillByID("missing")
	assert.False(t, ok)
}
