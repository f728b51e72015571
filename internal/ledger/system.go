// Package ledger stores which class each source assigned to each sentence.
//
// The ledger is a grid: fixed sentence rows, one column per registered source,
// and at most one current value per cell. Writes overwrite. A cell holding
// Failure was attempted without producing a class; an absent cell was never
// attempted.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/JaimeStill/concord/internal/corpus"
	"github.com/JaimeStill/concord/internal/taxonomy"
	"github.com/JaimeStill/concord/pkg/pagination"
	"github.com/JaimeStill/concord/pkg/retry"
)

// System defines the public contract for ledger operations.
type System interface {
	Handler() *Handler
	Taxonomy() *taxonomy.Taxonomy

	Load(ctx context.Context, records []corpus.Record) (int, error)
	Records(ctx context.Context) ([]corpus.Record, error)

	RegisterSource(ctx context.Context, name string, kind Kind) (Source, error)
	Sources(ctx context.Context) ([]Source, error)

	Write(ctx context.Context, sentenceID int, source string, value Value) error
	Read(ctx context.Context, source string) (map[int]Value, error)
	Unlabeled(ctx context.Context, source string) ([]int, error)
	Failed(ctx context.Context, source string) ([]int, error)

	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Observer receives ledger events, typically to update metrics.
type Observer interface {
	LabelWritten(source string, value Value)
	SourceRegistered(kind Kind, created bool)
}

type nopObserver struct{}

func (nopObserver) LabelWritten(string, Value)  {}
func (nopObserver) SourceRegistered(Kind, bool) {}

type ledger struct {
	store      Store
	tax        *taxonomy.Taxonomy
	policy     retry.Policy
	obs        Observer
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a ledger System over store. Values are validated against tax.
// Store calls that fail for reasons other than a domain error are retried
// under policy. obs may be nil.
func New(
	store Store,
	tax *taxonomy.Taxonomy,
	policy retry.Policy,
	obs Observer,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	if obs == nil {
		obs = nopObserver{}
	}
	policy.Retryable = Transient
	return &ledger{
		store:      store,
		tax:        tax,
		policy:     policy,
		obs:        obs,
		logger:     logger.With("system", "ledger"),
		pagination: pagination,
	}
}

// Transient reports whether a store error may succeed on another attempt.
func Transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, corpus.ErrInvalidID) {
		return false
	}
	return !domainError(err)
}

func (l *ledger) Handler() *Handler {
	return NewHandler(l, l.logger, l.pagination)
}

func (l *ledger) Taxonomy() *taxonomy.Taxonomy {
	return l.tax
}

func (l *ledger) Load(ctx context.Context, records []corpus.Record) (int, error) {
	added, err := retry.Value(ctx, l.policy, func(ctx context.Context) (int, error) {
		return l.store.Load(ctx, records)
	})
	if err != nil {
		return 0, fmt.Errorf("load sentences: %w", err)
	}

	l.logger.Info("sentences loaded", "offered", len(records), "added", added)
	return added, nil
}

func (l *ledger) Records(ctx context.Context) ([]corpus.Record, error) {
	return retry.Value(ctx, l.policy, l.store.Records)
}

func (l *ledger) RegisterSource(ctx context.Context, name string, kind Kind) (Source, error) {
	if err := checkName(name); err != nil {
		return Source{}, err
	}
	if kind == "" {
		kind = Human
	}
	if kind != Human && kind != Model {
		return Source{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	type registration struct {
		src     Source
		created bool
	}

	reg, err := retry.Value(ctx, l.policy, func(ctx context.Context) (registration, error) {
		src, created, err := l.store.RegisterSource(ctx, name, kind)
		return registration{src, created}, err
	})
	if err != nil {
		return Source{}, fmt.Errorf("register source %q: %w", name, err)
	}

	l.obs.SourceRegistered(reg.src.Kind, reg.created)
	if reg.created {
		l.logger.Info("source registered", "source", reg.src.Name, "kind", reg.src.Kind)
	}
	return reg.src, nil
}

func (l *ledger) Sources(ctx context.Context) ([]Source, error) {
	return retry.Value(ctx, l.policy, l.store.Sources)
}

func (l *ledger) Write(ctx context.Context, sentenceID int, source string, value Value) error {
	if !value.IsFailure() && !l.tax.Valid(int(value)) {
		return fmt.Errorf("%w: %d is not a %s class", ErrInvalidValue, value, l.tax.Name)
	}

	put := func(ctx context.Context) error {
		return l.store.Put(ctx, Entry{SentenceID: sentenceID, Source: source, Value: value})
	}

	err := retry.Do(ctx, l.policy, put)
	if errors.Is(err, ErrUnknownSource) {
		// First write to an unseen source creates its column.
		if _, rerr := l.RegisterSource(ctx, source, Human); rerr != nil {
			return fmt.Errorf("write label: %w", rerr)
		}
		err = retry.Do(ctx, l.policy, put)
	}
	if err != nil {
		return fmt.Errorf("write label: %w", err)
	}

	l.obs.LabelWritten(source, value)
	l.logger.Debug("label written", "sentence_id", sentenceID, "source", source, "value", value)
	return nil
}

func (l *ledger) Read(ctx context.Context, source string) (map[int]Value, error) {
	return retry.Value(ctx, l.policy, func(ctx context.Context) (map[int]Value, error) {
		return l.store.Labels(ctx, source)
	})
}

func (l *ledger) Unlabeled(ctx context.Context, source string) ([]int, error) {
	labels, err := l.Read(ctx, source)
	if err != nil {
		return nil, err
	}

	records, err := l.Records(ctx)
	if err != nil {
		return nil, err
	}

	var out []int
	for _, r := range records {
		if _, ok := labels[r.ID]; !ok {
			out = append(out, r.ID)
		}
	}
	return out, nil
}

func (l *ledger) Failed(ctx context.Context, source string) ([]int, error) {
	labels, err := l.Read(ctx, source)
	if err != nil {
		return nil, err
	}

	var out []int
	for _, id := range slices.Sorted(maps.Keys(labels)) {
		if labels[id].IsFailure() {
			out = append(out, id)
		}
	}
	return out, nil
}

func (l *ledger) Snapshot(ctx context.Context) (*Snapshot, error) {
	return retry.Value(ctx, l.policy, l.store.Snapshot)
}
