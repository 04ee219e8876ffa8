package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultReviewThreshold is applied when classifier.review_threshold is omitted.
const DefaultReviewThreshold = 0.7

// Classifier kinds
const (
	ClassifierKeyword = "keyword"
	ClassifierLLM     = "llm"
)

// ClassifierConfig selects and tunes the classification agent
type ClassifierConfig struct {
	Kind            string   `yaml:"kind,omitempty"`             // "keyword" (default) or "llm"
	Model           string   `yaml:"model,omitempty"`            // Required for kind=llm
	BaseURL         string   `yaml:"base_url,omitempty"`         // OpenAI-compatible endpoint; empty = provider default
	ReviewThreshold *float64 `yaml:"review_threshold,omitempty"` // Confidence below which QA flags a record (default 0.7)
}

// RedisConfig points the watch command at the progress channel server
type RedisConfig struct {
	URL string `yaml:"url,omitempty"`
}

// SkillsConfig adjusts the built-in skill catalog
type SkillsConfig struct {
	AlwaysLoad []string `yaml:"always_load,omitempty"` // Skill IDs included in every selection
}

// SpendcubeConfig represents the top-level spendcube.yml configuration
type SpendcubeConfig struct {
	Version    string            `yaml:"version"`
	Classifier *ClassifierConfig `yaml:"classifier,omitempty"`
	Redis      *RedisConfig      `yaml:"redis,omitempty"`
	Skills     *SkillsConfig     `yaml:"skills,omitempty"`
}

// Default returns a validated configuration used when no file is present.
func Default() *SpendcubeConfig {
	cfg := &SpendcubeConfig{Version: "1.0"}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// Validate performs strict validation on the configuration and applies defaults
func (c *SpendcubeConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Classifier == nil {
		c.Classifier = &ClassifierConfig{}
	}
	if err := c.Classifier.Validate(); err != nil {
		return err
	}

	if c.Redis == nil {
		c.Redis = &RedisConfig{}
	}

	if c.Skills == nil {
		c.Skills = &SkillsConfig{}
	}
	seen := make(map[string]bool)
	for _, id := range c.Skills.AlwaysLoad {
		if id == "" {
			return fmt.Errorf("skills.always_load: skill ID cannot be empty")
		}
		if seen[id] {
			return fmt.Errorf("skills.always_load: duplicate skill ID '%s'", id)
		}
		seen[id] = true
	}

	return nil
}

// Validate checks the classifier section and applies its defaults
func (c *ClassifierConfig) Validate() error {
	if c.Kind == "" {
		c.Kind = ClassifierKeyword
	}

	switch c.Kind {
	case ClassifierKeyword:
	case ClassifierLLM:
		if c.Model == "" {
			return fmt.Errorf("classifier: model is required when kind is 'llm'")
		}
	default:
		return fmt.Errorf("classifier: invalid kind: %s (must be 'keyword' or 'llm')", c.Kind)
	}

	if c.ReviewThreshold == nil {
		threshold := DefaultReviewThreshold
		c.ReviewThreshold = &threshold
	}
	if *c.ReviewThreshold < 0 || *c.ReviewThreshold > 1 {
		return fmt.Errorf("classifier.review_threshold must be within [0, 1], got %v", *c.ReviewThreshold)
	}

	return nil
}

// Load reads and validates spendcube.yml from the specified path
func Load(path string) (*SpendcubeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config SpendcubeConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*SpendcubeConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}
