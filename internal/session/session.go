// Package session drives human labeling. A session walks one annotator through
// the sentences they have not labeled yet, in a shuffled but reproducible
// order, writing every answer straight to the ledger.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/internal/corpus"
	"github.com/JaimeStill/concord/internal/ledger"
)

// DefaultSeed orders the todo queue when no seed is configured.
const DefaultSeed uint64 = 42

// Status describes a session.
type Status struct {
	ID        uuid.UUID `json:"id"`
	Annotator string    `json:"annotator"`
	StartedAt time.Time `json:"started_at"`
	// Position is the 0-based index of the current sentence in the queue.
	Position int `json:"position"`
	Queue    int `json:"queue"`
}

// Progress counts the annotator's labels across the whole ledger.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Item is the sentence awaiting a label. Value holds the annotator's earlier
// answer when the sentence is revisited.
type Item struct {
	Record corpus.Record `json:"record"`
	Value  *ledger.Value `json:"value"`
}

// View is the state returned by every session operation. Current is nil once
// the queue is exhausted.
type View struct {
	Status   Status   `json:"status"`
	Progress Progress `json:"progress"`
	Current  *Item    `json:"current"`
	Complete bool     `json:"complete"`
}

// System defines the labeling session operations.
type System interface {
	Handler() *Handler

	Start(ctx context.Context, annotator string) (*View, error)
	List(ctx context.Context) []Status
	Current(ctx context.Context, id uuid.UUID) (*View, error)
	Submit(ctx context.Context, id uuid.UUID, value ledger.Value) (*View, error)
	Back(ctx context.Context, id uuid.UUID) (*View, error)
	End(ctx context.Context, id uuid.UUID) (*View, error)
}

type session struct {
	mu        sync.Mutex
	id        uuid.UUID
	annotator string
	started   time.Time
	queue     []int
	pos       int
}

func (s *session) status() Status {
	return Status{
		ID:        s.id,
		Annotator: s.annotator,
		StartedAt: s.started,
		Position:  s.pos,
		Queue:     len(s.queue),
	}
}

type manager struct {
	ledger ledger.System
	seed   uint64
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
}

// New creates a session manager over l. seed orders every todo queue.
func New(l ledger.System, seed uint64, logger *slog.Logger) System {
	return &manager{
		ledger:   l,
		seed:     seed,
		logger:   logger.With("system", "session"),
		sessions: make(map[uuid.UUID]*session),
	}
}

func (m *manager) Handler() *Handler {
	return NewHandler(m, m.logger)
}

// Start registers the annotator as a human source when needed and queues the
// sentences it has not labeled.
func (m *manager) Start(ctx context.Context, annotator string) (*View, error) {
	src, err := m.ledger.RegisterSource(ctx, annotator, ledger.Human)
	if err != nil {
		return nil, err
	}
	if src.Kind != ledger.Human {
		return nil, fmt.Errorf("%w: %q", ErrNotHuman, src.Name)
	}

	todo, err := m.ledger.Unlabeled(ctx, src.Name)
	if err != nil {
		return nil, err
	}
	todo = slices.Clone(todo)
	slices.Sort(todo)

	rng := rand.New(rand.NewPCG(m.seed, m.seed))
	rng.Shuffle(len(todo), func(i, j int) { todo[i], todo[j] = todo[j], todo[i] })

	s := &session{
		id:        uuid.New(),
		annotator: src.Name,
		started:   time.Now(),
		queue:     todo,
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.logger.Info("session started", "session", s.id, "annotator", s.annotator, "queue", len(todo))

	s.mu.Lock()
	defer s.mu.Unlock()
	return m.view(ctx, s)
}

func (m *manager) List(ctx context.Context) []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Status, 0, len(m.sessions))
	for _, s := range m.sessions {
		s.mu.Lock()
		out = append(out, s.status())
		s.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b Status) int { return a.StartedAt.Compare(b.StartedAt) })
	return out
}

func (m *manager) Current(ctx context.Context, id uuid.UUID) (*View, error) {
	return m.with(id, func(s *session) (*View, error) {
		return m.view(ctx, s)
	})
}

// Submit labels the current sentence and advances. Submitting on a revisited
// sentence overwrites the earlier answer.
func (m *manager) Submit(ctx context.Context, id uuid.UUID, value ledger.Value) (*View, error) {
	return m.with(id, func(s *session) (*View, error) {
		if s.pos >= len(s.queue) {
			return nil, ErrComplete
		}
		if !m.ledger.Taxonomy().Valid(int(value)) {
			return nil, fmt.Errorf("%w: %d", ledger.ErrInvalidValue, value)
		}

		if err := m.ledger.Write(ctx, s.queue[s.pos], s.annotator, value); err != nil {
			return nil, err
		}
		s.pos++
		return m.view(ctx, s)
	})
}

// Back reopens the previous sentence.
func (m *manager) Back(ctx context.Context, id uuid.UUID) (*View, error) {
	return m.with(id, func(s *session) (*View, error) {
		if s.pos == 0 {
			return nil, ErrNoPrevious
		}
		s.pos--
		return m.view(ctx, s)
	})
}

// End closes the session. Labels already submitted stay in the ledger.
func (m *manager) End(ctx context.Context, id uuid.UUID) (*View, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := m.view(ctx, s)
	if err != nil {
		return nil, err
	}
	m.logger.Info("session ended", "session", s.id, "annotator", s.annotator,
		"done", v.Progress.Done, "total", v.Progress.Total)
	return v, nil
}

func (m *manager) with(id uuid.UUID, fn func(*session) (*View, error)) (*View, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

// view reads the annotator's labels back from the ledger, so a session always
// sees its own writes. The caller holds s.mu.
func (m *manager) view(ctx context.Context, s *session) (*View, error) {
	labels, err := m.ledger.Read(ctx, s.annotator)
	if err != nil {
		return nil, err
	}
	records, err := m.ledger.Records(ctx)
	if err != nil {
		return nil, err
	}

	v := &View{
		Status:   s.status(),
		Progress: Progress{Done: len(labels), Total: len(records)},
		Complete: s.pos >= len(s.queue),
	}
	if v.Complete {
		return v, nil
	}

	id := s.queue[s.pos]
	i, found := slices.BinarySearchFunc(records, id, func(r corpus.Record, id int) int { return r.ID - id })
	if !found {
		return nil, fmt.Errorf("%w: %d", ledger.ErrUnknownSentence, id)
	}

	item := &Item{Record: records[i]}
	if val, ok := labels[id]; ok {
		item.Value = &val
	}
	v.Current = item
	return v, nil
}
