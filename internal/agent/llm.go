package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/YvodeRooij/spendcube/internal/skills"
	"github.com/YvodeRooij/spendcube/pkg/spend"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// maxParseAttempts bounds retries on malformed model output.
const maxParseAttempts = 3

// unknownCodeConfidence caps confidence for codes outside the supplied taxonomy
// so QA always routes them to review.
const unknownCodeConfidence = 0.5

// LLMConfig selects the OpenAI-compatible endpoint backing an LLMClassifier.
type LLMConfig struct {
	BaseURL string
	Model   string
	Token   string
}

// LLMClassifier asks a chat model to pick a taxonomy code from the skill contexts.
type LLMClassifier struct {
	client llms.Model
	logger *slog.Logger
}

// response is the JSON object the model is instructed to return.
type response struct {
	Code       string  `json:"code"`
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// NewLLMClassifier wraps an existing langchaingo model.
func NewLLMClassifier(client llms.Model) *LLMClassifier {
	return &LLMClassifier{
		client: client,
		logger: slog.Default().With("component", "llm-classifier"),
	}
}

// NewOpenAIClassifier creates an LLMClassifier talking to an OpenAI-compatible API.
// An empty token is sent as "none" for local services without authentication.
func NewOpenAIClassifier(cfg LLMConfig) (*LLMClassifier, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("llm classifier model cannot be empty")
	}

	token := cfg.Token
	if token == "" {
		token = "none"
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return NewLLMClassifier(client), nil
}

// Classify implements Classifier.
func (c *LLMClassifier) Classify(ctx context.Context, record spend.Record, contexts []skills.SkillContext) (Result, error) {
	if len(contexts) == 0 {
		return Result{}, ErrNoContext
	}

	content := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildSystemPrompt(contexts))},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(buildRecordPrompt(record))},
		},
	}

	var accepted response
	var lastErr error
	for attempt := 0; attempt < maxParseAttempts; attempt++ {
		resp, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			c.logger.Error("failed to generate content", "record", record.ID, "attempt", attempt+1, "err", err)
			return Result{}, fmt.Errorf("failed to classify record %s: %w", record.ID, err)
		}

		if len(resp.Choices) < 1 {
			lastErr = fmt.Errorf("model returned no choices")
			continue
		}

		var parsed response
		text := stripCodeFences(resp.Choices[0].Content)
		if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			lastErr = err
			c.logger.Warn("error parsing classifier response",
				"record", record.ID,
				"attempt", attempt+1,
				"response", text,
				"err", err)
			continue
		}
		if parsed.Code == "" {
			lastErr = fmt.Errorf("response has no code")
			continue
		}

		accepted = parsed
		lastErr = nil
		break
	}

	if lastErr != nil {
		c.logger.Error("failed to parse classifier response after retries", "record", record.ID, "err", lastErr)
		return Result{}, fmt.Errorf("failed to parse classification for record %s: %w", record.ID, lastErr)
	}

	judgment := spend.Judgment{
		Code:       accepted.Code,
		Title:      accepted.Title,
		Confidence: clamp(accepted.Confidence),
		Reasoning:  accepted.Reasoning,
	}

	skillID, entry, ok := lookupCode(contexts, accepted.Code)
	if ok {
		if judgment.Title == "" {
			judgment.Title = entry.Title
		}
	} else {
		c.logger.Warn("model returned code outside supplied taxonomy", "record", record.ID, "code", accepted.Code)
		if judgment.Confidence > unknownCodeConfidence {
			judgment.Confidence = unknownCodeConfidence
		}
	}

	return Result{Judgment: judgment, SkillID: skillID}, nil
}

func buildSystemPrompt(contexts []skills.SkillContext) string {
	var b strings.Builder
	b.WriteString("You classify procurement spend lines into taxonomy codes.\n")
	b.WriteString("Choose exactly one code from the reference taxonomy below.\n")
	b.WriteString(`Respond with a JSON object: {"code": string, "title": string, "confidence": number between 0 and 1, "reasoning": string}.`)
	b.WriteString("\n")

	for _, sc := range contexts {
		fmt.Fprintf(&b, "\n## Skill: %s\n", sc.SkillID)
		for _, e := range sc.Taxonomy {
			fmt.Fprintf(&b, "- %s: %s", e.Code, e.Title)
			if e.Description != "" {
				fmt.Fprintf(&b, " (%s)", e.Description)
			}
			b.WriteString("\n")
		}
		for _, ex := range sc.Examples {
			fmt.Fprintf(&b, "Example: vendor=%q description=%q -> %s %s (%s)\n",
				ex.Input.Vendor, ex.Input.Description, ex.Output.Code, ex.Output.Title, ex.Output.Reasoning)
		}
	}
	return b.String()
}

func buildRecordPrompt(record spend.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Vendor: %s\n", record.Vendor)
	fmt.Fprintf(&b, "Description: %s\n", record.Description)
	fmt.Fprintf(&b, "Amount: %.2f\n", record.Amount)
	if record.Department != "" {
		fmt.Fprintf(&b, "Department: %s\n", record.Department)
	}
	return b.String()
}

// stripCodeFences removes a surrounding markdown code fence, if present.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func lookupCode(contexts []skills.SkillContext, code string) (string, skills.TaxonomyEntry, bool) {
	for _, sc := range contexts {
		for _, e := range sc.Taxonomy {
			if e.Code == code {
				return sc.SkillID, e, true
			}
		}
	}
	return "", skills.TaxonomyEntry{}, false
}

func clamp(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
