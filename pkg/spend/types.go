// Package spend provides the shared data types that flow through the spendcube
// pipeline: raw spend records, the judgments returned by classification agents,
// and the resulting classifications.
package spend

import (
	"fmt"
	"strings"
)

// Record is a single procurement spend line as received from the extraction stage.
type Record struct {
	ID          string  `json:"id" yaml:"id"`                                       // Caller-assigned identifier, unique within a batch
	Vendor      string  `json:"vendor" yaml:"vendor"`                               // Supplier name as it appears on the invoice
	Description string  `json:"description" yaml:"description"`                    // Free-text line description
	Amount      float64 `json:"amount" yaml:"amount"`                               // Spend amount in the batch currency
	Department  string  `json:"department,omitempty" yaml:"department,omitempty"` // Optional cost centre; "" when absent
}

// Judgment is the structured output of a classification agent for one record.
type Judgment struct {
	Code       string  `json:"code"`       // Taxonomy code assigned to the record
	Title      string  `json:"title"`      // Human-readable title of the code
	Confidence float64 `json:"confidence"` // 0.0 - 1.0
	Reasoning  string  `json:"reasoning"`  // Short justification from the agent
}

// Status describes where a classified record stands in the pipeline.
type Status string

const (
	// StatusClassified indicates the record was classified with sufficient confidence
	StatusClassified Status = "classified"

	// StatusNeedsReview indicates QA flagged the record for human review
	StatusNeedsReview Status = "needs_review"

	// StatusFailed indicates the agent could not produce a judgment for the record
	StatusFailed Status = "failed"
)

// Classification pairs a record with the judgment made for it.
type Classification struct {
	Record   Record   `json:"record"`
	Judgment Judgment `json:"judgment"`
	SkillID  string   `json:"skill_id,omitempty"` // Skill whose context produced the judgment
	Status   Status   `json:"status"`
}

// Validate checks if the Record has valid field values.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("record ID cannot be empty")
	}

	if strings.TrimSpace(r.Vendor) == "" && strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("record %s: vendor and description cannot both be empty", r.ID)
	}

	if r.Amount < 0 {
		return fmt.Errorf("record %s: amount must be >= 0, got %v", r.ID, r.Amount)
	}

	return nil
}

// Validate checks if the Status is a valid enum value.
func (s Status) Validate() error {
	switch s {
	case StatusClassified, StatusNeedsReview, StatusFailed:
		return nil
	default:
		return fmt.Errorf("unknown status: %q", s)
	}
}

// Validate checks if the Judgment has valid field values.
func (j *Judgment) Validate() error {
	if j.Code == "" {
		return fmt.Errorf("judgment code cannot be empty")
	}

	if j.Confidence < 0 || j.Confidence > 1 {
		return fmt.Errorf("invalid confidence: must be within [0, 1], got %v", j.Confidence)
	}

	return nil
}

// SearchText returns the lower-cased text used for keyword matching.
// An absent department contributes an empty segment.
func (r *Record) SearchText() string {
	return strings.ToLower(r.Vendor + " " + r.Description + " " + r.Department)
}
