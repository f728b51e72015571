package classifications

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/internal/workflow"
	"github.com/JaimeStill/concord/pkg/pagination"
)

type repo struct {
	rt         *workflow.Runtime
	logger     *slog.Logger
	pagination pagination.Config

	running atomic.Bool
	mu      sync.RWMutex
	runs    []Run
	limit   int
}

// New creates a run history implementing the System interface. The newest
// limit runs are kept; a non-positive limit keeps every run.
func New(
	rt *workflow.Runtime,
	limit int,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		rt:         rt,
		logger:     logger.With("system", "classifications"),
		pagination: pagination,
		limit:      limit,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Run], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]Run, 0, len(r.runs))
	for i := range r.runs {
		run := &r.runs[i]
		if !filters.Match(run) || !searchMatch(run, page.Search) {
			continue
		}
		matched = append(matched, *run)
	}

	result := pagination.Slice(matched, page)
	return &result, nil
}

func searchMatch(run *Run, search *string) bool {
	if search == nil {
		return true
	}
	term := strings.ToLower(*search)
	for _, m := range run.Models {
		if strings.Contains(strings.ToLower(m.Model), term) || strings.Contains(strings.ToLower(m.Source), term) {
			return true
		}
	}
	return false
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.runs {
		if r.runs[i].RunID == id {
			run := r.runs[i]
			return &run, nil
		}
	}
	return nil, ErrNotFound
}

func (r *repo) Classify(ctx context.Context, req workflow.Request) (*Run, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer r.running.Store(false)

	result, err := workflow.Execute(ctx, r.rt, req)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.runs = append([]Run{*result}, r.runs...)
	if r.limit > 0 && len(r.runs) > r.limit {
		r.runs = r.runs[:r.limit]
	}
	r.mu.Unlock()

	attempted, classified, failed, errored := result.Totals()
	r.logger.Info(
		"run recorded",
		"run_id", result.RunID,
		"attempted", attempted,
		"classified", classified,
		"failed", failed,
		"errors", errored,
	)

	return result, nil
}
