package classifications_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/internal/classifications"
	"github.com/JaimeStill/concord/internal/classifier"
	"github.com/JaimeStill/concord/internal/corpus"
	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/internal/taxonomy"
	"github.com/JaimeStill/concord/internal/workflow"
	"github.com/JaimeStill/concord/pkg/pagination"
	"github.com/JaimeStill/concord/pkg/retry"
)

var (
	discard   = slog.New(slog.NewTextHandler(io.Discard, nil))
	pageCfg   = pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
	firstPage = pagination.PageRequest{Page: 1, PageSize: 20}
)

type fixedClassifier struct {
	name    string
	value   ledger.Value
	started chan struct{}
	release chan struct{}
}

func (f *fixedClassifier) Name() string { return f.name }

func (f *fixedClassifier) Classify(ctx context.Context, _ string) (ledger.Value, error) {
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
		<-f.release
	}
	return f.value, nil
}

func newRuntime(t *testing.T, factory classifier.Factory) *workflow.Runtime {
	t.Helper()
	tax, err := taxonomy.Builtin("disponibile")
	if err != nil {
		t.Fatalf("taxonomy: %v", err)
	}

	sys := ledger.New(ledger.NewMemoryStore(ledger.MatchFold), tax, retry.Policy{MaxAttempts: 1}, nil, discard, pageCfg)
	records := []corpus.Record{{ID: 1, Text: "uno"}, {ID: 2, Text: "due"}}
	if _, err := sys.Load(context.Background(), records); err != nil {
		t.Fatalf("Load: %v", err)
	}

	return &workflow.Runtime{Ledger: sys, Classifiers: factory, Workers: 2, Logger: discard}
}

func constant(v ledger.Value) classifier.Factory {
	return func(_ context.Context, model string) (classifier.Classifier, error) {
		return &fixedClassifier{name: model, value: v}, nil
	}
}

func TestClassifyRecordsRuns(t *testing.T) {
	sys := classifications.New(newRuntime(t, constant(1)), 0, discard, pageCfg)
	ctx := context.Background()

	first, err := sys.Classify(ctx, workflow.Request{Models: []string{"gpt-4o"}})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if first.Models[0].Classified != 2 {
		t.Errorf("classified = %d, want 2", first.Models[0].Classified)
	}

	second, err := sys.Classify(ctx, workflow.Request{Models: []string{"gpt-4.1-mini"}})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	list, err := sys.List(ctx, firstPage, classifications.Filters{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.Total != 2 || list.Data[0].RunID != second.RunID {
		t.Errorf("list = %d runs, newest %v; want 2 with %v first", list.Total, list.Data[0].RunID, second.RunID)
	}

	model := "gpt-4o"
	filtered, _ := sys.List(ctx, firstPage, classifications.Filters{Model: &model})
	if filtered.Total != 1 || filtered.Data[0].RunID != first.RunID {
		t.Errorf("model filter returned %+v", filtered.Data)
	}

	search := "4_1"
	searched, _ := sys.List(ctx, pagination.PageRequest{Page: 1, PageSize: 20, Search: &search}, classifications.Filters{})
	if searched.Total != 1 || searched.Data[0].RunID != second.RunID {
		t.Errorf("search returned %+v", searched.Data)
	}

	found, err := sys.Find(ctx, first.RunID)
	if err != nil || found.RunID != first.RunID {
		t.Errorf("Find = %v, %v", found, err)
	}
	if _, err := sys.Find(ctx, uuid.New()); !errors.Is(err, classifications.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestClassifyHistoryLimit(t *testing.T) {
	sys := classifications.New(newRuntime(t, constant(2)), 2, discard, pageCfg)
	ctx := context.Background()

	var last uuid.UUID
	for i := range 3 {
		run, err := sys.Classify(ctx, workflow.Request{Models: []string{fmt.Sprintf("m%d", i)}})
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		last = run.RunID
	}

	list, _ := sys.List(ctx, firstPage, classifications.Filters{})
	if list.Total != 2 || list.Data[0].RunID != last {
		t.Errorf("history = %d runs, want the newest 2", list.Total)
	}
}

func TestClassifyRejectsConcurrentRun(t *testing.T) {
	blocking := &fixedClassifier{value: 1, started: make(chan struct{}, 1), release: make(chan struct{})}
	sys := classifications.New(newRuntime(t, func(_ context.Context, model string) (classifier.Classifier, error) {
		blocking.name = model
		return blocking, nil
	}), 0, discard, pageCfg)

	done := make(chan error, 1)
	go func() {
		_, err := sys.Classify(context.Background(), workflow.Request{Models: []string{"gpt-4o"}})
		done <- err
	}()

	<-blocking.started
	if _, err := sys.Classify(context.Background(), workflow.Request{Models: []string{"gpt-4o"}}); !errors.Is(err, classifications.ErrBusy) {
		t.Errorf("error = %v, want ErrBusy", err)
	}

	close(blocking.release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{classifications.ErrNotFound, 404},
		{classifications.ErrBusy, 409},
		{workflow.ErrNoModels, 400},
		{fmt.Errorf("plan: %w", workflow.ErrUnknownID), 400},
		{ledger.ErrUnknownSource, 404},
		{errors.New("boom"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := classifications.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}
