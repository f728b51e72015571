package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/concord/internal/classifier"
	"github.com/JaimeStill/concord/internal/ledger"
)

// classifyNode classifies every planned sentence using bounded errgroup
// concurrency across all models. An unusable reply is
// recorded as the failure sentinel; a call that never produced a reply is
// reported as an item error and leaves the ledger untouched.
func classifyNode(rt *Runtime) nodeFunc {
	return func(ctx context.Context, s state.State) (state.State, error) {
		jobs, err := extract[[]Job](s, KeyJobs)
		if err != nil {
			return s, fmt.Errorf("classify: %w", err)
		}
		texts, err := extract[map[int]string](s, KeyTexts)
		if err != nil {
			return s, fmt.Errorf("classify: %w", err)
		}
		result, err := extract[WorkflowResult](s, KeyResult)
		if err != nil {
			return s, fmt.Errorf("classify: %w", err)
		}

		models, err := classifyJobs(ctx, rt, jobs, texts)
		if err != nil {
			return s, fmt.Errorf("classify: %w", err)
		}

		result.Models = models
		s = s.Set(KeyResult, result)
		return s, nil
	}
}

func classifyJobs(ctx context.Context, rt *Runtime, jobs []Job, texts map[int]string) ([]ModelResult, error) {
	classifiers := make([]classifier.Classifier, len(jobs))
	results := make([]ModelResult, len(jobs))
	for i, job := range jobs {
		c, err := rt.Classifiers(ctx, job.Model)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrClassifyFailed, job.Model, err)
		}
		classifiers[i] = c
		results[i] = ModelResult{Model: job.Model, Source: job.Source, Attempted: len(job.IDs)}
	}

	obs := rt.observer()
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rt.workers())

	for i, job := range jobs {
		for _, id := range job.IDs {
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}

				start := time.Now()
				value, err := classifiers[i].Classify(gctx, texts[id])
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					if !errors.Is(err, classifier.ErrClassificationFailed) {
						obs.Classified(job.Model, OutcomeError, time.Since(start))
						rt.Logger.WarnContext(gctx, "classification call failed",
							"model", job.Model, "sentence_id", id, "error", err)

						mu.Lock()
						results[i].Errors = append(results[i].Errors, ItemError{SentenceID: id, Error: err.Error()})
						mu.Unlock()
						return nil
					}
					value = ledger.Failure
				}

				if err := rt.Ledger.Write(gctx, id, job.Source, value); err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					mu.Lock()
					results[i].Errors = append(results[i].Errors, ItemError{SentenceID: id, Error: err.Error()})
					mu.Unlock()
					return nil
				}

				outcome := OutcomeClassified
				if value.IsFailure() {
					outcome = OutcomeFailed
				}
				obs.Classified(job.Model, outcome, time.Since(start))

				mu.Lock()
				if value.IsFailure() {
					results[i].Failed++
				} else {
					results[i].Classified++
				}
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassifyFailed, err)
	}

	for i := range results {
		slices.SortFunc(results[i].Errors, func(a, b ItemError) int {
			return a.SentenceID - b.SentenceID
		})
	}
	return results, nil
}
