package commands

import (
	"fmt"
	"os"

	"github.com/YvodeRooij/spendcube/internal/agent"
	"github.com/YvodeRooij/spendcube/internal/checkpoint"
	"github.com/YvodeRooij/spendcube/internal/config"
	"github.com/YvodeRooij/spendcube/internal/printer"
	"github.com/YvodeRooij/spendcube/internal/skills"
	"github.com/redis/go-redis/v9"
)

// envOpenAIKey holds the token for the llm classifier
const envOpenAIKey = "OPENAI_API_KEY"

func loadConfig() (*config.SpendcubeConfig, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{fmt.Sprintf("Fix %s or remove it to use defaults", configPath)},
		)
	}
	return cfg, nil
}

// newRegistry builds the default catalog with the configured always-load skills
func newRegistry(cfg *config.SpendcubeConfig) (*skills.Registry, error) {
	reg := skills.DefaultRegistry(skills.WithAlwaysLoad(cfg.Skills.AlwaysLoad...))
	for _, id := range cfg.Skills.AlwaysLoad {
		if _, ok := reg.ByID(id); !ok {
			return nil, printer.Error(
				fmt.Sprintf("unknown skill '%s'", id),
				"skills.always_load names a skill that is not in the catalog.",
				[]string{"List available skills:\n  spendcube skills list"},
			)
		}
	}
	return reg, nil
}

func newClassifier(cfg *config.SpendcubeConfig, reg *skills.Registry) (agent.Classifier, error) {
	if cfg.Classifier.Kind != config.ClassifierLLM {
		return agent.NewKeywordClassifier(reg), nil
	}

	c, err := agent.NewOpenAIClassifier(agent.LLMConfig{
		BaseURL: cfg.Classifier.BaseURL,
		Model:   cfg.Classifier.Model,
		Token:   os.Getenv(envOpenAIKey),
	})
	if err != nil {
		return nil, printer.Error(
			"failed to create LLM classifier",
			err.Error(),
			[]string{fmt.Sprintf("Set %s, or use classifier.kind: keyword", envOpenAIKey)},
		)
	}
	return c, nil
}

// newFactory reads the checkpoint backend from the process environment
func newFactory() *checkpoint.Factory {
	return checkpoint.NewFactory(nil)
}

// redisURL resolves the progress server: flag, then config, then REDIS_URL
func redisURL(flag string, cfg *config.SpendcubeConfig) string {
	if flag != "" {
		return flag
	}
	if cfg.Redis.URL != "" {
		return cfg.Redis.URL
	}
	return os.Getenv(checkpoint.EnvRedisURL)
}

func newRedisClient(url string) (*redis.Client, error) {
	if url == "" {
		return nil, printer.Error(
			"no Redis URL configured",
			"Progress streaming needs a Redis server.",
			[]string{
				"Pass --redis redis://host:6379",
				"Set redis.url in spendcube.yml",
				fmt.Sprintf("Export %s", checkpoint.EnvRedisURL),
			},
		)
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}
