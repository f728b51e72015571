package workflow

import (
	"context"
	"fmt"
	"slices"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/concord/internal/ledger"
)

// planNode registers one model source per requested model and selects the
// sentences each model will be asked about.
func planNode(rt *Runtime) nodeFunc {
	return func(ctx context.Context, s state.State) (state.State, error) {
		req, err := extract[Request](s, KeyRequest)
		if err != nil {
			return s, fmt.Errorf("plan: %w", err)
		}

		jobs, texts, err := plan(ctx, rt, req)
		if err != nil {
			return s, fmt.Errorf("plan: %w", err)
		}

		selected := 0
		for _, j := range jobs {
			selected += len(j.IDs)
		}
		rt.Logger.InfoContext(
			ctx, "plan node complete",
			"models", len(jobs),
			"mode", req.Mode,
			"selected", selected,
		)

		s = s.Set(KeyJobs, jobs)
		s = s.Set(KeyTexts, texts)
		return s, nil
	}
}

func plan(ctx context.Context, rt *Runtime, req Request) ([]Job, map[int]string, error) {
	snap, err := rt.Ledger.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	candidates, err := candidateIDs(snap, req)
	if err != nil {
		return nil, nil, err
	}

	version := rt.PromptVersion
	if req.PromptVersion != nil {
		version = *req.PromptVersion
	}

	var jobs []Job
	seen := make(map[string]struct{})
	for _, model := range req.Models {
		if _, dup := seen[model]; dup {
			continue
		}
		seen[model] = struct{}{}

		src, err := rt.Ledger.RegisterSource(ctx, ledger.ModelSource(version, model), ledger.Model)
		if err != nil {
			return nil, nil, err
		}

		labels := snap.Labels[src.Name]
		ids := make([]int, 0, len(candidates))
		for _, id := range candidates {
			v, labeled := labels[id]
			switch req.Mode {
			case ModeMissing:
				if labeled {
					continue
				}
			case ModeFailed:
				if !labeled || !v.IsFailure() {
					continue
				}
			}
			ids = append(ids, id)
		}

		jobs = append(jobs, Job{Model: model, Source: src.Name, IDs: ids})
	}

	texts := make(map[int]string, len(candidates))
	for _, id := range candidates {
		rec, _ := snap.Record(id)
		texts[id] = rec.Text
	}

	return jobs, texts, nil
}

func candidateIDs(snap *ledger.Snapshot, req Request) ([]int, error) {
	ids := snap.IDs()
	if len(req.IDs) > 0 {
		restricted := slices.Clone(req.IDs)
		slices.Sort(restricted)
		restricted = slices.Compact(restricted)
		for _, id := range restricted {
			if _, ok := snap.Record(id); !ok {
				return nil, fmt.Errorf("%w: %d", ErrUnknownID, id)
			}
		}
		ids = restricted
	}

	if !req.RequireHuman {
		return ids, nil
	}

	var humans []map[int]ledger.Value
	for _, src := range snap.Sources {
		if src.Kind == ledger.Human {
			humans = append(humans, snap.Labels[src.Name])
		}
	}

	return slices.DeleteFunc(ids, func(id int) bool {
		for _, labels := range humans {
			if _, ok := labels[id]; ok {
				return false
			}
		}
		return true
	}), nil
}
