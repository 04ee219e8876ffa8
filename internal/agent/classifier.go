// Package agent adapts classification agents to the pipeline.
//
// The pipeline treats classification as an opaque capability: given a record
// and the skill contexts selected for its batch, return a structured judgment.
// KeywordClassifier is a deterministic offline implementation;
// LLMClassifier delegates to an OpenAI-compatible chat model.
package agent

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/YvodeRooij/spendcube/internal/skills"
	"github.com/YvodeRooij/spendcube/pkg/spend"
)

// ErrNoContext is returned when a record is classified without any skill context.
var ErrNoContext = errors.New("no skill context available for classification")

// Result is a judgment plus the skill whose context produced it.
type Result struct {
	Judgment spend.Judgment
	SkillID  string
}

// Classifier turns a record and its batch's skill contexts into a judgment.
type Classifier interface {
	Classify(ctx context.Context, record spend.Record, contexts []skills.SkillContext) (Result, error)
}

// Confidence levels assigned by KeywordClassifier.
const (
	confidenceSkillAndTitle = 0.9
	confidenceSkillOnly     = 0.75
	confidenceGuess         = 0.4
)

// KeywordClassifier picks the context whose skill keywords best match the
// record, then the taxonomy entry sharing the most words with it.
type KeywordClassifier struct {
	registry *skills.Registry
}

// NewKeywordClassifier creates a keyword classifier over registry.
func NewKeywordClassifier(registry *skills.Registry) *KeywordClassifier {
	return &KeywordClassifier{registry: registry}
}

// Classify implements Classifier.
func (k *KeywordClassifier) Classify(ctx context.Context, record spend.Record, contexts []skills.SkillContext) (Result, error) {
	if len(contexts) == 0 {
		return Result{}, ErrNoContext
	}

	text := record.SearchText()

	best, bestHits := -1, 0
	for i, sc := range contexts {
		skill, ok := k.registry.ByID(sc.SkillID)
		if !ok {
			continue
		}
		hits := 0
		for _, kw := range skill.Keywords {
			if kw.MatchString(text) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = i, hits
		}
	}

	confidence := confidenceSkillOnly
	reasoning := "matched skill keywords"
	if best < 0 {
		best = 0
		confidence = confidenceGuess
		reasoning = "no skill keywords matched; defaulted to highest-ranked skill"
	}

	chosen := contexts[best]
	if len(chosen.Taxonomy) == 0 {
		return Result{}, ErrNoContext
	}

	entry, overlap := bestEntry(text, chosen.Taxonomy)
	if overlap > 0 && confidence == confidenceSkillOnly {
		confidence = confidenceSkillAndTitle
		reasoning = "matched skill keywords and taxonomy title"
	}

	return Result{
		Judgment: spend.Judgment{
			Code:       entry.Code,
			Title:      entry.Title,
			Confidence: confidence,
			Reasoning:  reasoning,
		},
		SkillID: chosen.SkillID,
	}, nil
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// words splits text into lower-cased tokens of four or more characters,
// with a trailing plural "s" removed.
func words(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range nonWord.Split(strings.ToLower(text), -1) {
		if len(w) < 4 {
			continue
		}
		out[strings.TrimSuffix(w, "s")] = struct{}{}
	}
	return out
}

// bestEntry returns the entry with the largest word overlap with text.
// Ties keep the earlier entry.
func bestEntry(text string, entries []skills.TaxonomyEntry) (skills.TaxonomyEntry, int) {
	recordWords := words(text)

	best, bestOverlap := 0, 0
	for i, e := range entries {
		overlap := 0
		for w := range words(e.Title + " " + e.Description) {
			if _, ok := recordWords[w]; ok {
				overlap++
			}
		}
		if overlap > bestOverlap {
			best, bestOverlap = i, overlap
		}
	}
	return entries[best], bestOverlap
}
