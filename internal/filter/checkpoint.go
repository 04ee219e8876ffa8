// Package filter selects checkpoints by creation time and stage.
package filter

import (
	"path/filepath"

	"github.com/YvodeRooij/spendcube/internal/checkpoint"
)

// Criteria defines filtering criteria for checkpoints.
// All filters are ANDed together.
type Criteria struct {
	SinceTimestampMs int64  // Unix ms, 0 = no lower bound
	UntilTimestampMs int64  // Unix ms, 0 = no upper bound
	StageGlob        string // Glob over the stage label, empty = any stage
}

// Matches returns true if cp satisfies every active criterion.
func (c *Criteria) Matches(cp *checkpoint.Checkpoint) bool {
	if c.SinceTimestampMs > 0 && cp.CreatedAtMs < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && cp.CreatedAtMs > c.UntilTimestampMs {
		return false
	}

	if c.StageGlob != "" {
		matched, err := filepath.Match(c.StageGlob, cp.Stage)
		if err != nil || !matched {
			return false
		}
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.SinceTimestampMs > 0 || c.UntilTimestampMs > 0 || c.StageGlob != ""
}

// Apply returns the checkpoints matching c, preserving order.
func (c *Criteria) Apply(cps []*checkpoint.Checkpoint) []*checkpoint.Checkpoint {
	if !c.HasFilters() {
		return cps
	}
	out := make([]*checkpoint.Checkpoint, 0, len(cps))
	for _, cp := range cps {
		if c.Matches(cp) {
			out = append(out, cp)
		}
	}
	return out
}
