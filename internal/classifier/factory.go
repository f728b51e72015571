package classifier

import (
	"context"
	"fmt"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/concord/internal/taxonomy"
	"github.com/JaimeStill/concord/pkg/retry"
)

const (
	ProviderAgent = "agent"
	ProviderGenAI = "genai"
)

// Settings selects a provider and the call discipline applied to it.
type Settings struct {
	Provider string
	Agent    gaconfig.AgentConfig
	GenAI    GenAIOptions
	Interval time.Duration
	Timeout  time.Duration
	Retry    retry.Policy
}

// NewFactory returns a Factory for the configured provider. Every classifier
// it builds shares one rate limiter, and each attempt waits its turn.
func NewFactory(s Settings, tax *taxonomy.Taxonomy) (Factory, error) {
	var build Factory
	switch s.Provider {
	case ProviderAgent:
		build = func(_ context.Context, model string) (Classifier, error) {
			return NewAgent(s.Agent, model, tax)
		}
	case ProviderGenAI:
		build = func(ctx context.Context, model string) (Classifier, error) {
			return NewGenAI(ctx, s.GenAI, model, tax)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, s.Provider)
	}

	limiter := NewLimiter(s.Interval)
	return func(ctx context.Context, model string) (Classifier, error) {
		c, err := build(ctx, model)
		if err != nil {
			return nil, err
		}
		return Resilient(Throttle(c, limiter), s.Timeout, s.Retry), nil
	}, nil
}
