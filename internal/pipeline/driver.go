// Package pipeline runs spend batches through the classification stages,
// checkpointing after every stage and reporting progress through the bridge.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/YvodeRooij/spendcube/internal/agent"
	"github.com/YvodeRooij/spendcube/internal/checkpoint"
	"github.com/YvodeRooij/spendcube/internal/progress"
	"github.com/YvodeRooij/spendcube/internal/skills"
	"github.com/YvodeRooij/spendcube/pkg/spend"
)

// DefaultReviewThreshold is the confidence below which QA flags a judgment.
const DefaultReviewThreshold = 0.7

// CheckpointSource hands out the checkpointer a run writes to.
// *checkpoint.Factory satisfies it.
type CheckpointSource interface {
	Get(ctx context.Context) (checkpoint.Checkpointer, error)
}

// RunRequest identifies a new run and carries its records.
type RunRequest struct {
	ThreadID  string         // Checkpoint thread; required
	SessionID string         // Progress session; may be empty for silent runs
	Records   []spend.Record // Raw records for the extraction stage
}

// Driver executes pipeline runs.
type Driver struct {
	detector        *skills.Detector
	bridge          *progress.Bridge
	checkpoints     CheckpointSource
	classifier      agent.Classifier
	reviewThreshold float64
}

// Option configures a Driver.
type Option func(*Driver)

// WithReviewThreshold overrides DefaultReviewThreshold.
func WithReviewThreshold(threshold float64) Option {
	return func(d *Driver) {
		d.reviewThreshold = threshold
	}
}

// NewDriver creates a pipeline driver. The driver never subscribes to the
// bridge; callers own their listener's lifecycle.
func NewDriver(detector *skills.Detector, bridge *progress.Bridge, checkpoints CheckpointSource, classifier agent.Classifier, opts ...Option) *Driver {
	d := &Driver{
		detector:        detector,
		bridge:          bridge,
		checkpoints:     checkpoints,
		classifier:      classifier,
		reviewThreshold: DefaultReviewThreshold,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes every stage for a new batch.
func (d *Driver) Run(ctx context.Context, req RunRequest) (*State, error) {
	if strings.TrimSpace(req.ThreadID) == "" {
		return nil, fmt.Errorf("thread ID cannot be empty")
	}

	cp, err := d.checkpoints.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpointer: %w", err)
	}

	log.Printf("[Pipeline] Starting run for thread '%s' with %d records", req.ThreadID, len(req.Records))

	state := &State{Records: req.Records}
	return d.runFrom(ctx, cp, req.ThreadID, req.SessionID, StageExtraction, "", state)
}

// Resume continues a thread from the stage after its latest checkpoint.
// A thread whose latest checkpoint is the final stage is returned unchanged.
func (d *Driver) Resume(ctx context.Context, threadID, sessionID string) (*State, error) {
	cp, err := d.checkpoints.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpointer: %w", err)
	}

	latest, err := cp.Latest(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest checkpoint for thread %s: %w", threadID, err)
	}

	last, err := ParseStage(latest.Stage)
	if err != nil {
		return nil, err
	}

	var state State
	if err := json.Unmarshal(latest.State, &state); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", latest.ID, err)
	}

	next, ok := last.next()
	if !ok {
		log.Printf("[Pipeline] Thread '%s' already complete", threadID)
		return &state, nil
	}

	d.logEvent("run_resumed", map[string]interface{}{
		"thread_id":     threadID,
		"checkpoint_id": latest.ID,
		"from_stage":    string(next),
	})
	return d.runFrom(ctx, cp, threadID, sessionID, next, latest.ID, &state)
}

// runFrom executes stages from start onwards, checkpointing after each one.
func (d *Driver) runFrom(ctx context.Context, cp checkpoint.Checkpointer, threadID, sessionID string, start Stage, parentID string, state *State) (*State, error) {
	started := false
	for _, stage := range Stages {
		if stage == start {
			started = true
		}
		if !started {
			continue
		}

		d.bridge.Emit(sessionID, progress.StageChanged{Stage: string(stage)})

		if err := d.runStage(ctx, stage, sessionID, state); err != nil {
			return state, d.fail(sessionID, threadID, stage, err)
		}
		state.LastStage = stage

		data, err := json.Marshal(state)
		if err != nil {
			return state, d.fail(sessionID, threadID, stage, fmt.Errorf("failed to encode state: %w", err))
		}

		saved := &checkpoint.Checkpoint{
			ThreadID: threadID,
			ParentID: parentID,
			Stage:    string(stage),
			State:    data,
		}
		if err := cp.Put(ctx, saved); err != nil {
			return state, d.fail(sessionID, threadID, stage, fmt.Errorf("failed to checkpoint stage %s: %w", stage, err))
		}
		parentID = saved.ID

		d.logEvent("stage_completed", map[string]interface{}{
			"thread_id":     threadID,
			"stage":         string(stage),
			"checkpoint_id": saved.ID,
		})
	}

	log.Printf("[Pipeline] Run for thread '%s' complete: %d classified, %d need review, %d failed",
		threadID, state.Count(spend.StatusClassified), state.Count(spend.StatusNeedsReview), state.Count(spend.StatusFailed))
	return state, nil
}

func (d *Driver) runStage(ctx context.Context, stage Stage, sessionID string, state *State) error {
	switch stage {
	case StageExtraction:
		return extract(state)
	case StageClassification:
		return d.classify(ctx, sessionID, state)
	case StageQA:
		d.qa(state)
	case StageReview:
		review(state)
	case StageAnalysis:
		analyse(state)
	default:
		return fmt.Errorf("unknown pipeline stage: %q", stage)
	}
	return nil
}

func (d *Driver) fail(sessionID, threadID string, stage Stage, err error) error {
	d.bridge.Emit(sessionID, progress.PipelineFailed{Stage: string(stage), Message: err.Error()})
	d.logEvent("run_failed", map[string]interface{}{
		"thread_id": threadID,
		"stage":     string(stage),
		"error":     err.Error(),
	})
	return err
}

// extract trims record fields and rejects invalid or duplicate records.
func extract(state *State) error {
	seen := make(map[string]struct{}, len(state.Records))
	for i := range state.Records {
		r := &state.Records[i]
		r.ID = strings.TrimSpace(r.ID)
		r.Vendor = strings.TrimSpace(r.Vendor)
		r.Description = strings.TrimSpace(r.Description)
		r.Department = strings.TrimSpace(r.Department)

		if err := r.Validate(); err != nil {
			return fmt.Errorf("invalid record at index %d: %w", i, err)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("duplicate record ID: %s", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

// classify classifies records one at a time in batch order.
// A classifier error marks that record failed; cancellation aborts the stage.
func (d *Driver) classify(ctx context.Context, sessionID string, state *State) error {
	selected := d.detector.DetectRelevantSkills(state.Records)
	state.SkillIDs = skills.IDs(selected)
	contexts := d.detector.LoadContext(selected)

	d.logEvent("skills_selected", map[string]interface{}{
		"skills":  state.SkillIDs,
		"records": len(state.Records),
	})

	total := len(state.Records)
	state.Classifications = make([]spend.Classification, 0, total)
	for i, record := range state.Records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("classification interrupted: %w", err)
		}

		c := spend.Classification{Record: record, Status: spend.StatusClassified}
		res, err := d.classifier.Classify(ctx, record, contexts)
		if err == nil {
			err = res.Judgment.Validate()
		}
		if err != nil {
			log.Printf("[Pipeline] Failed to classify record %s: %v", record.ID, err)
			c.Status = spend.StatusFailed
			c.Judgment = spend.Judgment{Reasoning: err.Error()}
		} else {
			c.Judgment = res.Judgment
			c.SkillID = res.SkillID
		}
		state.Classifications = append(state.Classifications, c)

		d.bridge.Emit(sessionID, progress.ClassificationProgress{
			Completed: i + 1,
			Total:     total,
			Record:    record,
			Judgment:  c.Judgment,
			Status:    c.Status,
		})
	}
	return nil
}

func (d *Driver) qa(state *State) {
	for i := range state.Classifications {
		c := &state.Classifications[i]
		if c.Status == spend.StatusClassified && c.Judgment.Confidence < d.reviewThreshold {
			c.Status = spend.StatusNeedsReview
		}
	}
}

func review(state *State) {
	state.ReviewQueue = []string{}
	for _, c := range state.Classifications {
		if c.Status == spend.StatusNeedsReview {
			state.ReviewQueue = append(state.ReviewQueue, c.Record.ID)
		}
	}
}

// analyse totals non-failed spend per code, largest amount first.
func analyse(state *State) {
	byCode := make(map[string]*CategoryTotal)
	for _, c := range state.Classifications {
		if c.Status == spend.StatusFailed {
			continue
		}
		t, ok := byCode[c.Judgment.Code]
		if !ok {
			t = &CategoryTotal{Code: c.Judgment.Code, Title: c.Judgment.Title}
			byCode[c.Judgment.Code] = t
		}
		t.Amount += c.Record.Amount
		t.Count++
	}

	state.Totals = make([]CategoryTotal, 0, len(byCode))
	for _, t := range byCode {
		state.Totals = append(state.Totals, *t)
	}
	sort.Slice(state.Totals, func(i, j int) bool {
		if state.Totals[i].Amount != state.Totals[j].Amount {
			return state.Totals[i].Amount > state.Totals[j].Amount
		}
		return state.Totals[i].Code < state.Totals[j].Code
	})
}

// logEvent logs a structured JSON event.
func (d *Driver) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "pipeline"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Pipeline] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
