package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
)

// summarizeNode fills in per-model results for models that had nothing to do
// and stamps the completion time.
func summarizeNode(rt *Runtime) nodeFunc {
	return func(ctx context.Context, s state.State) (state.State, error) {
		jobs, err := extract[[]Job](s, KeyJobs)
		if err != nil {
			return s, fmt.Errorf("summarize: %w", err)
		}
		result, err := extract[WorkflowResult](s, KeyResult)
		if err != nil {
			return s, fmt.Errorf("summarize: %w", err)
		}

		if result.Models == nil {
			result.Models = make([]ModelResult, len(jobs))
			for i, j := range jobs {
				result.Models[i] = ModelResult{Model: j.Model, Source: j.Source}
			}
		}
		result.CompletedAt = time.Now()

		attempted, classified, failed, errored := result.Totals()
		rt.Logger.InfoContext(
			ctx, "classification run complete",
			"run_id", result.RunID,
			"attempted", attempted,
			"classified", classified,
			"failed", failed,
			"errors", errored,
			"duration", result.CompletedAt.Sub(result.StartedAt),
		)

		s = s.Set(KeyResult, result)
		return s, nil
	}
}
