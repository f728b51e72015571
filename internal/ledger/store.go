package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/JaimeStill/concord/internal/corpus"
)

// Entry is the current value one source holds for one sentence.
type Entry struct {
	SentenceID int       `json:"sentence_id"`
	Source     string    `json:"source"`
	Value      Value     `json:"value"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store persists the ledger grid. Implementations resolve source names with
// their MatchMode and make RegisterSource atomic, so concurrent first-time
// registrations of one name yield a single source.
type Store interface {
	// Load inserts records whose ids are not present yet and reports how many
	// were added. Existing rows are never modified.
	Load(ctx context.Context, records []corpus.Record) (int, error)
	Records(ctx context.Context) ([]corpus.Record, error)

	// RegisterSource returns the existing source matching name, or creates it.
	// created reports whether this call added the source.
	RegisterSource(ctx context.Context, name string, kind Kind) (src Source, created bool, err error)
	Sources(ctx context.Context) ([]Source, error)

	// Put overwrites the current value for (SentenceID, Source).
	Put(ctx context.Context, e Entry) error
	Labels(ctx context.Context, source string) (map[int]Value, error)

	Snapshot(ctx context.Context) (*Snapshot, error)
	Close() error
}

// Snapshot is one consistent read of the whole ledger.
type Snapshot struct {
	Records []corpus.Record          `json:"records"`
	Sources []Source                 `json:"sources"`
	Labels  map[string]map[int]Value `json:"labels"`
}

// Record returns the sentence with the given id.
func (s *Snapshot) Record(id int) (corpus.Record, bool) {
	i, ok := slices.BinarySearchFunc(s.Records, id, func(r corpus.Record, id int) int {
		return r.ID - id
	})
	if !ok {
		return corpus.Record{}, false
	}
	return s.Records[i], true
}

// Source returns the labels of a source, matched exactly against the
// canonical names held by the snapshot.
func (s *Snapshot) Source(name string) (map[int]Value, bool) {
	labels, ok := s.Labels[name]
	return labels, ok
}

// IDs returns every sentence id in ascending order.
func (s *Snapshot) IDs() []int {
	ids := make([]int, len(s.Records))
	for i, r := range s.Records {
		ids[i] = r.ID
	}
	return ids
}

// SourceNames returns source names in registration order.
func (s *Snapshot) SourceNames() []string {
	names := make([]string, len(s.Sources))
	for i, src := range s.Sources {
		names[i] = src.Name
	}
	return names
}

// Find resolves a source name against the snapshot: an exact match first,
// then a unique case-insensitive match. It returns the canonical name.
func (s *Snapshot) Find(name string) (string, map[int]Value, error) {
	if labels, ok := s.Labels[name]; ok {
		return name, labels, nil
	}

	found := ""
	for _, src := range s.Sources {
		if strings.EqualFold(src.Name, name) {
			if found != "" {
				return "", nil, fmt.Errorf("%w: %q is ambiguous", ErrUnknownSource, name)
			}
			found = src.Name
		}
	}
	if found == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return found, s.Labels[found], nil
}
