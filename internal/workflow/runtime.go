package workflow

import (
	"log/slog"
	"time"

	"github.com/JaimeStill/concord/internal/classifier"
	"github.com/JaimeStill/concord/internal/ledger"
)

// Outcome classifies the result of a single sentence classification.
type Outcome string

const (
	OutcomeClassified Outcome = "classified"
	OutcomeFailed     Outcome = "failed"
	OutcomeError      Outcome = "error"
)

// Observer receives one call per classified sentence.
type Observer interface {
	Classified(model string, outcome Outcome, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) Classified(string, Outcome, time.Duration) {}

// Runtime bundles the dependencies that workflow nodes require.
// It is constructed by higher-level composition code from Infrastructure and Domain systems.
type Runtime struct {
	Ledger        ledger.System
	Classifiers   classifier.Factory
	PromptVersion string
	Workers       int
	Observer      Observer
	Logger        *slog.Logger
}

func (rt *Runtime) observer() Observer {
	if rt.Observer == nil {
		return nopObserver{}
	}
	return rt.Observer
}

func (rt *Runtime) workers() int {
	return max(rt.Workers, 1)
}
