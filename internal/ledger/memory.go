package ledger

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JaimeStill/concord/internal/corpus"
)

type memoryStore struct {
	mu      sync.RWMutex
	match   MatchMode
	records map[int]corpus.Record
	sources []Source
	keys    map[string]int
	labels  map[string]map[int]Value
	now     func() time.Time
}

// NewMemoryStore creates an ephemeral Store.
func NewMemoryStore(match MatchMode) Store {
	return newMemoryStore(match)
}

func newMemoryStore(match MatchMode) *memoryStore {
	return &memoryStore{
		match:   match,
		records: make(map[int]corpus.Record),
		keys:    make(map[string]int),
		labels:  make(map[string]map[int]Value),
		now:     time.Now,
	}
}

func (s *memoryStore) Load(ctx context.Context, records []corpus.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, r := range records {
		if r.ID < 1 {
			return added, fmt.Errorf("%w: %d", corpus.ErrInvalidID, r.ID)
		}
		if _, ok := s.records[r.ID]; ok {
			continue
		}
		s.records[r.ID] = r
		added++
	}
	return added, nil
}

func (s *memoryStore) Records(ctx context.Context) ([]corpus.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedRecords(), nil
}

func (s *memoryStore) sortedRecords() []corpus.Record {
	ids := slices.Sorted(maps.Keys(s.records))
	out := make([]corpus.Record, len(ids))
	for i, id := range ids {
		out[i] = s.records[id]
	}
	return out
}

func (s *memoryStore) RegisterSource(ctx context.Context, name string, kind Kind) (Source, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.match.Key(name)
	if i, ok := s.keys[key]; ok {
		return s.sources[i], false, nil
	}

	src := Source{Name: strings.TrimSpace(name), Kind: kind, CreatedAt: s.now().UTC()}
	s.keys[key] = len(s.sources)
	s.sources = append(s.sources, src)
	s.labels[src.Name] = make(map[int]Value)
	return src, true, nil
}

func (s *memoryStore) Sources(ctx context.Context) ([]Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sources), nil
}

func (s *memoryStore) resolve(name string) (Source, error) {
	i, ok := s.keys[s.match.Key(name)]
	if !ok {
		return Source{}, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return s.sources[i], nil
}

func (s *memoryStore) Put(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.resolve(e.Source)
	if err != nil {
		return err
	}
	if _, ok := s.records[e.SentenceID]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSentence, e.SentenceID)
	}

	s.labels[src.Name][e.SentenceID] = e.Value
	return nil
}

func (s *memoryStore) Labels(ctx context.Context, source string) (map[int]Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, err := s.resolve(source)
	if err != nil {
		return nil, err
	}
	return maps.Clone(s.labels[src.Name]), nil
}

func (s *memoryStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	labels := make(map[string]map[int]Value, len(s.labels))
	for name, values := range s.labels {
		labels[name] = maps.Clone(values)
	}

	return &Snapshot{
		Records: s.sortedRecords(),
		Sources: slices.Clone(s.sources),
		Labels:  labels,
	}, nil
}

func (s *memoryStore) Close() error {
	return nil
}

// restore replaces the store contents with a snapshot.
func (s *memoryStore) restore(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[int]corpus.Record, len(snap.Records))
	for _, r := range snap.Records {
		s.records[r.ID] = r
	}

	s.sources = nil
	s.keys = make(map[string]int, len(snap.Sources))
	s.labels = make(map[string]map[int]Value, len(snap.Sources))
	for _, src := range snap.Sources {
		key := s.match.Key(src.Name)
		if _, dup := s.keys[key]; dup {
			return fmt.Errorf("%w: sources %q collide under %s matching", ErrInvalidSheet, src.Name, s.match)
		}
		s.keys[key] = len(s.sources)
		s.sources = append(s.sources, src)

		values := maps.Clone(snap.Labels[src.Name])
		if values == nil {
			values = make(map[int]Value)
		}
		s.labels[src.Name] = values
	}
	return nil
}
