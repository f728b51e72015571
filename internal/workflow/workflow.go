package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
)

// Execute runs one classification request against the ledger. It builds the
// state graph (plan → classify? → summarize), executes it, and extracts the
// WorkflowResult from the final state. Labels written before an error or
// cancellation stay in the ledger.
func Execute(ctx context.Context, rt *Runtime, req Request) (*WorkflowResult, error) {
	if len(req.Models) == 0 {
		return nil, ErrNoModels
	}
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return nil, err
	}
	req.Mode = mode

	var cause error
	graph, err := buildGraph(rt, &cause)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	runID := uuid.New()
	initialState := state.New(nil)
	initialState = initialState.Set(KeyRunID, runID)
	initialState = initialState.Set(KeyRequest, req)
	initialState = initialState.Set(KeyResult, WorkflowResult{
		RunID:     runID,
		Request:   req,
		StartedAt: time.Now(),
	})

	finalState, err := graph.Execute(ctx, initialState)
	if err != nil {
		if cause != nil {
			return nil, cause
		}
		return nil, fmt.Errorf("execute graph: %w", err)
	}

	return extractResult(finalState)
}

// nodeFunc is the body of a graph node.
type nodeFunc func(ctx context.Context, s state.State) (state.State, error)

// node wraps f so the first error it returns is kept in cause with its chain
// intact.
func (f nodeFunc) node(cause *error) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		out, err := f(ctx, s)
		if err != nil && *cause == nil {
			*cause = err
		}
		return out, err
	})
}

func buildGraph(rt *Runtime, cause *error) (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("concord-classify")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	if err := graph.AddNode("plan", planNode(rt).node(cause)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("classify", classifyNode(rt).node(cause)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("summarize", summarizeNode(rt).node(cause)); err != nil {
		return nil, err
	}

	// plan → classify (when any model has sentences to label)
	if err := graph.AddEdge("plan", "classify", hasWork); err != nil {
		return nil, err
	}

	// plan → summarize (nothing selected)
	if err := graph.AddEdge("plan", "summarize", state.Not(hasWork)); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("classify", "summarize", nil); err != nil {
		return nil, err
	}

	if err := graph.SetEntryPoint("plan"); err != nil {
		return nil, err
	}

	if err := graph.SetExitPoint("summarize"); err != nil {
		return nil, err
	}

	return graph, nil
}

func extractResult(s state.State) (*WorkflowResult, error) {
	result, err := extract[WorkflowResult](s, KeyResult)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func extract[T any](s state.State, key string) (T, error) {
	var zero T
	val, ok := s.Get(key)
	if !ok {
		return zero, fmt.Errorf("missing %s in state", key)
	}
	v, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%s is %T, not %T", key, val, zero)
	}
	return v, nil
}

func hasWork(s state.State) bool {
	jobs, err := extract[[]Job](s, KeyJobs)
	if err != nil {
		return false
	}
	for _, j := range jobs {
		if len(j.IDs) > 0 {
			return true
		}
	}
	return false
}
