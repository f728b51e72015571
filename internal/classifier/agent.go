package classifier

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/internal/taxonomy"
)

type agentClassifier struct {
	cfg gaconfig.AgentConfig
	tax *taxonomy.Taxonomy
}

// NewAgent creates a classifier backed by a go-agents provider. model
// overrides the configured model name; the rest of cfg is used as is.
func NewAgent(cfg gaconfig.AgentConfig, model string, tax *taxonomy.Taxonomy) (Classifier, error) {
	if model == "" {
		return nil, ErrEmptyModel
	}

	m := gaconfig.ModelConfig{}
	if cfg.Model != nil {
		m = *cfg.Model
	}
	m.Name = model
	cfg.Model = &m

	if _, err := agent.New(&cfg); err != nil {
		return nil, fmt.Errorf("create agent for %s: %w", model, err)
	}

	return &agentClassifier{cfg: cfg, tax: tax}, nil
}

func (c *agentClassifier) Name() string {
	return c.cfg.Model.Name
}

func (c *agentClassifier) Classify(ctx context.Context, sentence string) (ledger.Value, error) {
	a, err := agent.New(&c.cfg)
	if err != nil {
		return ledger.Failure, fmt.Errorf("create agent: %w", err)
	}

	resp, err := a.Chat(ctx, userMessage(c.tax, sentence))
	if err != nil {
		return ledger.Failure, fmt.Errorf("chat call: %w", err)
	}

	return ParseClass(resp.Content(), c.tax)
}
