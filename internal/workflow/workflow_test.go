package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/concord/internal/classifier"
	"github.com/JaimeStill/concord/internal/corpus"
	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/internal/taxonomy"
	"github.com/JaimeStill/concord/internal/workflow"
	"github.com/JaimeStill/concord/pkg/pagination"
	"github.com/JaimeStill/concord/pkg/retry"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type mockClassifier struct {
	name       string
	classifyFn func(ctx context.Context, sentence string) (ledger.Value, error)
}

func (m *mockClassifier) Name() string { return m.name }

func (m *mockClassifier) Classify(ctx context.Context, sentence string) (ledger.Value, error) {
	return m.classifyFn(ctx, sentence)
}

// scripted answers 2 for every sentence except "frase 3", whose reply is
// unusable, and "frase 4", whose call never succeeds.
func scripted(_ context.Context, model string) (classifier.Classifier, error) {
	return &mockClassifier{name: model, classifyFn: func(_ context.Context, sentence string) (ledger.Value, error) {
		switch sentence {
		case "frase 3":
			return ledger.Failure, classifier.ErrUnparseable
		case "frase 4":
			return ledger.Failure, errors.New("upstream unavailable")
		}
		return 2, nil
	}}, nil
}

type counter struct {
	mu       sync.Mutex
	outcomes map[workflow.Outcome]int
}

func (c *counter) Classified(_ string, o workflow.Outcome, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = make(map[workflow.Outcome]int)
	}
	c.outcomes[o]++
}

func newRuntime(t *testing.T, factory classifier.Factory) *workflow.Runtime {
	t.Helper()
	tax, err := taxonomy.Builtin("libera")
	if err != nil {
		t.Fatalf("taxonomy: %v", err)
	}

	sys := ledger.New(
		ledger.NewMemoryStore(ledger.MatchFold), tax,
		retry.Policy{MaxAttempts: 1}, nil, discard,
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)

	records := make([]corpus.Record, 5)
	for i := range records {
		records[i] = corpus.Record{ID: i + 1, Text: fmt.Sprintf("frase %d", i+1)}
	}
	if _, err := sys.Load(context.Background(), records); err != nil {
		t.Fatalf("Load: %v", err)
	}

	return &workflow.Runtime{
		Ledger:        sys,
		Classifiers:   factory,
		PromptVersion: "mod4",
		Workers:       3,
		Logger:        discard,
	}
}

func TestExecuteMissing(t *testing.T) {
	rt := newRuntime(t, scripted)
	obs := &counter{}
	rt.Observer = obs
	ctx := context.Background()

	result, err := workflow.Execute(ctx, rt, workflow.Request{Models: []string{"gpt-4.1", "gpt-4o", "gpt-4.1"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []workflow.ModelResult{
		{Model: "gpt-4.1", Source: "mod4_gpt-4_1", Attempted: 5, Classified: 3, Failed: 1,
			Errors: []workflow.ItemError{{SentenceID: 4, Error: "upstream unavailable"}}},
		{Model: "gpt-4o", Source: "mod4_gpt-4o", Attempted: 5, Classified: 3, Failed: 1,
			Errors: []workflow.ItemError{{SentenceID: 4, Error: "upstream unavailable"}}},
	}
	if diff := cmp.Diff(want, result.Models); diff != "" {
		t.Errorf("models mismatch (-want +got):\n%s", diff)
	}
	if result.Request.Mode != workflow.ModeMissing {
		t.Errorf("mode = %q, want missing", result.Request.Mode)
	}
	if result.CompletedAt.Before(result.StartedAt) {
		t.Error("completed before started")
	}

	labels, err := rt.Ledger.Read(ctx, "mod4_gpt-4_1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	wantLabels := map[int]ledger.Value{1: 2, 2: 2, 3: ledger.Failure, 5: 2}
	if diff := cmp.Diff(wantLabels, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}

	wantOutcomes := map[workflow.Outcome]int{
		workflow.OutcomeClassified: 6,
		workflow.OutcomeFailed:     2,
		workflow.OutcomeError:      2,
	}
	if diff := cmp.Diff(wantOutcomes, obs.outcomes); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}

	again, err := workflow.Execute(ctx, rt, workflow.Request{Models: []string{"gpt-4.1"}})
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if diff := cmp.Diff([]int{4}, idsAttempted(t, again)); diff != "" {
		t.Errorf("second run should only retry the unanswered sentence (-want +got):\n%s", diff)
	}
}

func idsAttempted(t *testing.T, r *workflow.WorkflowResult) []int {
	t.Helper()
	var ids []int
	for _, m := range r.Models {
		for _, e := range m.Errors {
			ids = append(ids, e.SentenceID)
		}
		if m.Attempted != len(m.Errors)+m.Classified+m.Failed {
			t.Errorf("%s: attempted %d does not add up", m.Model, m.Attempted)
		}
	}
	return ids
}

func TestExecuteFailedMode(t *testing.T) {
	rt := newRuntime(t, scripted)
	ctx := context.Background()

	if _, err := workflow.Execute(ctx, rt, workflow.Request{Models: []string{"gpt-4o"}}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var seen []string
	var mu sync.Mutex
	rt.Classifiers = func(_ context.Context, model string) (classifier.Classifier, error) {
		return &mockClassifier{name: model, classifyFn: func(_ context.Context, s string) (ledger.Value, error) {
			mu.Lock()
			seen = append(seen, s)
			mu.Unlock()
			return 5, nil
		}}, nil
	}

	result, err := workflow.Execute(ctx, rt, workflow.Request{Models: []string{"gpt-4o"}, Mode: workflow.ModeFailed})
	if err != nil {
		t.Fatalf("Execute failed mode: %v", err)
	}
	if diff := cmp.Diff([]string{"frase 3"}, seen); diff != "" {
		t.Errorf("retried sentences mismatch (-want +got):\n%s", diff)
	}
	if result.Models[0].Classified != 1 {
		t.Errorf("classified = %d, want 1", result.Models[0].Classified)
	}

	failed, err := rt.Ledger.Failed(ctx, "mod4_gpt-4o")
	if err != nil {
		t.Fatalf("Failed: %v", err)
	}
	if len(failed) != 0 {
		t.Errorf("failures left after retry: %v", failed)
	}
}

func TestExecuteNothingToDo(t *testing.T) {
	calls := 0
	rt := newRuntime(t, func(_ context.Context, model string) (classifier.Classifier, error) {
		calls++
		return scripted(context.Background(), model)
	})

	result, err := workflow.Execute(context.Background(), rt, workflow.Request{
		Models: []string{"gpt-4o"},
		Mode:   workflow.ModeFailed,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []workflow.ModelResult{{Model: "gpt-4o", Source: "mod4_gpt-4o"}}
	if diff := cmp.Diff(want, result.Models); diff != "" {
		t.Errorf("models mismatch (-want +got):\n%s", diff)
	}
	if calls != 0 {
		t.Errorf("factory called %d times for an empty plan", calls)
	}
}

func TestExecuteRequireHumanAndIDs(t *testing.T) {
	rt := newRuntime(t, scripted)
	ctx := context.Background()

	if _, err := rt.Ledger.RegisterSource(ctx, "Fabio", ledger.Human); err != nil {
		t.Fatalf("RegisterSource: %v", err)
	}
	for _, id := range []int{1, 2, 5} {
		if err := rt.Ledger.Write(ctx, id, "Fabio", 1); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	version := ""
	result, err := workflow.Execute(ctx, rt, workflow.Request{
		Models:        []string{"gpt-4.1-nano"},
		PromptVersion: &version,
		IDs:           []int{2, 3, 5, 2},
		RequireHuman:  true,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got := result.Models[0]
	if got.Source != "gpt-4_1-nano" || got.Attempted != 2 || got.Classified != 2 {
		t.Errorf("result = %+v, want 2 of 2 classified into gpt-4_1-nano", got)
	}
}

func TestExecuteErrors(t *testing.T) {
	tests := []struct {
		name    string
		factory classifier.Factory
		req     workflow.Request
		want    error
	}{
		{"no models", scripted, workflow.Request{}, workflow.ErrNoModels},
		{"bad mode", scripted, workflow.Request{Models: []string{"m"}, Mode: "some"}, workflow.ErrInvalidMode},
		{"unknown id", scripted, workflow.Request{Models: []string{"m"}, IDs: []int{99}}, workflow.ErrUnknownID},
		{
			"factory failure",
			func(context.Context, string) (classifier.Classifier, error) {
				return nil, classifier.ErrMissingAPIKey
			},
			workflow.Request{Models: []string{"m"}},
			classifier.ErrMissingAPIKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newRuntime(t, tt.factory)
			if _, err := workflow.Execute(context.Background(), rt, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExecuteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rt := newRuntime(t, func(_ context.Context, model string) (classifier.Classifier, error) {
		return &mockClassifier{name: model, classifyFn: func(ctx context.Context, _ string) (ledger.Value, error) {
			cancel()
			<-ctx.Done()
			return ledger.Failure, ctx.Err()
		}}, nil
	})

	if _, err := workflow.Execute(ctx, rt, workflow.Request{Models: []string{"m"}}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]workflow.Mode{"": workflow.ModeMissing, "ALL": workflow.ModeAll, "failed": workflow.ModeFailed} {
		if got, err := workflow.ParseMode(in); err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
}
