package pipeline

import (
	"fmt"

	"github.com/YvodeRooij/spendcube/pkg/spend"
)

// Stage names a step of a pipeline run. Stage names are also the checkpoint stage labels.
type Stage string

const (
	// StageExtraction validates and normalizes the incoming records
	StageExtraction Stage = "extraction"

	// StageClassification selects skills and classifies each record
	StageClassification Stage = "classification"

	// StageQA flags low-confidence judgments for review
	StageQA Stage = "qa"

	// StageReview builds the human-review queue
	StageReview Stage = "review"

	// StageAnalysis totals spend per category
	StageAnalysis Stage = "analysis"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageExtraction, StageClassification, StageQA, StageReview, StageAnalysis}

// ParseStage converts a checkpoint stage label into a Stage.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown pipeline stage: %q", s)
}

// next returns the stage after s, or false when s is the last stage.
func (s Stage) next() (Stage, bool) {
	for i, st := range Stages {
		if st == s && i+1 < len(Stages) {
			return Stages[i+1], true
		}
	}
	return "", false
}

// CategoryTotal is the spend aggregated under one taxonomy code.
type CategoryTotal struct {
	Code   string  `json:"code"`
	Title  string  `json:"title"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

// State is the run state persisted in every checkpoint.
type State struct {
	Records         []spend.Record         `json:"records"`
	SkillIDs        []string               `json:"skill_ids,omitempty"`       // Set by classification
	Classifications []spend.Classification `json:"classifications,omitempty"` // Set by classification, updated by qa
	ReviewQueue     []string               `json:"review_queue,omitempty"`    // Record IDs awaiting human review
	Totals          []CategoryTotal        `json:"totals,omitempty"`          // Set by analysis
	LastStage       Stage                  `json:"last_stage,omitempty"`
}

// Complete reports whether the run has finished its final stage.
func (s *State) Complete() bool {
	return s.LastStage == StageAnalysis
}

// Count returns how many classifications have the given status.
func (s *State) Count(status spend.Status) int {
	n := 0
	for _, c := range s.Classifications {
		if c.Status == status {
			n++
		}
	}
	return n
}
