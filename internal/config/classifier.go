package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/concord/internal/classifier"
	"github.com/JaimeStill/concord/pkg/retry"
)

const (
	EnvClassifierProvider      = "CONCORD_CLASSIFIER_PROVIDER"
	EnvClassifierModels        = "CONCORD_CLASSIFIER_MODELS"
	EnvClassifierPromptVersion = "CONCORD_CLASSIFIER_PROMPT_VERSION"
	EnvClassifierInterval      = "CONCORD_CLASSIFIER_INTERVAL"
	EnvClassifierTimeout       = "CONCORD_CLASSIFIER_TIMEOUT"
	EnvClassifierWorkers       = "CONCORD_CLASSIFIER_WORKERS"
	EnvClassifierHistory       = "CONCORD_CLASSIFIER_HISTORY"
	EnvGenAIAPIKey             = "CONCORD_GENAI_API_KEY"
	EnvGenAIBaseURL            = "CONCORD_GENAI_BASE_URL"
	EnvGenAIMaxTokens          = "CONCORD_GENAI_MAX_TOKENS"
)

var classifierRetryEnv = &retry.Env{
	MaxAttempts:  "CONCORD_CLASSIFIER_RETRY_MAX_ATTEMPTS",
	InitialDelay: "CONCORD_CLASSIFIER_RETRY_INITIAL_DELAY",
	MaxDelay:     "CONCORD_CLASSIFIER_RETRY_MAX_DELAY",
}

// GenAIConfig holds Gemini provider settings.
type GenAIConfig struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	MaxTokens int32  `toml:"max_tokens"`
}

// ClassifierConfig selects the model provider and the pacing of classification
// runs.
type ClassifierConfig struct {
	Provider      string               `toml:"provider"`
	Models        []string             `toml:"models"`
	PromptVersion string               `toml:"prompt_version"`
	Interval      string               `toml:"interval"`
	Timeout       string               `toml:"timeout"`
	Workers       int                  `toml:"workers"`
	History       int                  `toml:"history"`
	Retry         retry.Config         `toml:"retry"`
	Agent         gaconfig.AgentConfig `toml:"agent"`
	GenAI         GenAIConfig          `toml:"genai"`
}

// IntervalDuration returns Interval as a time.Duration.
func (c *ClassifierConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *ClassifierConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Settings converts the finalized config into classifier factory settings.
func (c *ClassifierConfig) Settings() classifier.Settings {
	return classifier.Settings{
		Provider: c.Provider,
		Agent:    c.Agent,
		GenAI: classifier.GenAIOptions{
			APIKey:    c.GenAI.APIKey,
			BaseURL:   c.GenAI.BaseURL,
			MaxTokens: c.GenAI.MaxTokens,
		},
		Interval: c.IntervalDuration(),
		Timeout:  c.TimeoutDuration(),
		Retry:    retry.NewPolicy(&c.Retry, nil),
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
// The agent section is finalized only when the agent provider is selected.
func (c *ClassifierConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Retry.Finalize(classifierRetryEnv); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if c.Provider == classifier.ProviderAgent {
		if err := FinalizeAgent(&c.Agent); err != nil {
			return fmt.Errorf("agent: %w", err)
		}
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *ClassifierConfig) Merge(overlay *ClassifierConfig) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if len(overlay.Models) > 0 {
		c.Models = overlay.Models
	}
	if overlay.PromptVersion != "" {
		c.PromptVersion = overlay.PromptVersion
	}
	if overlay.Interval != "" {
		c.Interval = overlay.Interval
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.History != 0 {
		c.History = overlay.History
	}
	if overlay.GenAI.APIKey != "" {
		c.GenAI.APIKey = overlay.GenAI.APIKey
	}
	if overlay.GenAI.BaseURL != "" {
		c.GenAI.BaseURL = overlay.GenAI.BaseURL
	}
	if overlay.GenAI.MaxTokens != 0 {
		c.GenAI.MaxTokens = overlay.GenAI.MaxTokens
	}
	c.Retry.Merge(&overlay.Retry)
	c.Agent.Merge(&overlay.Agent)
}

func (c *ClassifierConfig) loadDefaults() {
	if c.Provider == "" {
		c.Provider = classifier.ProviderAgent
	}
	if c.PromptVersion == "" {
		c.PromptVersion = "mod4"
	}
	if c.Interval == "" {
		c.Interval = "300ms"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.History == 0 {
		c.History = 50
	}
	if c.GenAI.MaxTokens == 0 {
		c.GenAI.MaxTokens = 64
	}
}

func (c *ClassifierConfig) loadEnv() {
	if v := os.Getenv(EnvClassifierProvider); v != "" {
		c.Provider = v
	}
	if v := os.Getenv(EnvClassifierModels); v != "" {
		c.Models = splitList(v)
	}
	if v := os.Getenv(EnvClassifierPromptVersion); v != "" {
		c.PromptVersion = v
	}
	if v := os.Getenv(EnvClassifierInterval); v != "" {
		c.Interval = v
	}
	if v := os.Getenv(EnvClassifierTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvClassifierWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv(EnvClassifierHistory); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.History = n
		}
	}
	if v := os.Getenv(EnvGenAIAPIKey); v != "" {
		c.GenAI.APIKey = v
	}
	if v := os.Getenv(EnvGenAIBaseURL); v != "" {
		c.GenAI.BaseURL = v
	}
	if v := os.Getenv(EnvGenAIMaxTokens); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			c.GenAI.MaxTokens = int32(n)
		}
	}
}

func (c *ClassifierConfig) validate() error {
	switch c.Provider {
	case classifier.ProviderAgent, classifier.ProviderGenAI:
	default:
		return fmt.Errorf("unsupported provider %q", c.Provider)
	}
	if strings.ContainsAny(c.PromptVersion, "_ ") {
		return fmt.Errorf("prompt_version must not contain spaces or underscores: %q", c.PromptVersion)
	}
	if _, err := time.ParseDuration(c.Interval); err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	if c.History < 1 {
		return fmt.Errorf("history must be positive")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
