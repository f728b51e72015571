// Package sampling partitions a corpus into named, disjoint, reproducible
// subsets.
package sampling

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/JaimeStill/concord/internal/corpus"
)

// ResidualName is the subset name used for records not drawn into any subset.
const ResidualName = "residual"

// Request asks for Count records under Name.
type Request struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Partition holds the drawn subsets in request order plus the residual.
type Partition struct {
	names    []string
	subsets  map[string][]corpus.Record
	residual []corpus.Record
}

// Split draws each requested subset in order from the records not yet drawn.
// Every subset uses a fresh PCG generator seeded with seed, so membership is a
// pure function of record order, the requested sizes, and the seed.
// Records within a subset and in the residual keep corpus order.
func Split(records []corpus.Record, reqs []Request, seed uint64) (*Partition, error) {
	total := 0
	seen := make(map[string]struct{}, len(reqs))
	for _, r := range reqs {
		if r.Name == "" {
			return nil, ErrEmptyName
		}
		if r.Name == ResidualName {
			return nil, fmt.Errorf("%w: %q is reserved", ErrDuplicateName, r.Name)
		}
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, r.Name)
		}
		seen[r.Name] = struct{}{}

		if r.Count < 0 {
			return nil, fmt.Errorf("%w: %q has negative count %d", ErrOutOfRange, r.Name, r.Count)
		}
		total += r.Count
	}
	if total > len(records) {
		return nil, fmt.Errorf("%w: requested %d of %d", ErrOutOfRange, total, len(records))
	}

	remaining := slices.Clone(records)
	p := &Partition{subsets: make(map[string][]corpus.Record, len(reqs))}

	for _, r := range reqs {
		rng := rand.New(rand.NewPCG(seed, seed))

		picked := draw(rng, len(remaining), r.Count)
		subset := make([]corpus.Record, 0, r.Count)
		rest := make([]corpus.Record, 0, len(remaining)-r.Count)
		for i, rec := range remaining {
			if picked[i] {
				subset = append(subset, rec)
			} else {
				rest = append(rest, rec)
			}
		}

		p.names = append(p.names, r.Name)
		p.subsets[r.Name] = subset
		remaining = rest
	}

	p.residual = remaining
	return p, nil
}

// draw selects k distinct positions out of n with a partial Fisher-Yates
// shuffle.
func draw(rng *rand.Rand, n, k int) map[int]bool {
	pos := make([]int, n)
	for i := range pos {
		pos[i] = i
	}

	picked := make(map[int]bool, k)
	for i := range k {
		j := i + rng.IntN(n-i)
		pos[i], pos[j] = pos[j], pos[i]
		picked[pos[i]] = true
	}
	return picked
}

// Names returns subset names in request order.
func (p *Partition) Names() []string {
	return slices.Clone(p.names)
}

// Subset returns the records of a named subset.
func (p *Partition) Subset(name string) ([]corpus.Record, error) {
	if name == ResidualName {
		return p.Residual(), nil
	}
	s, ok := p.subsets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubset, name)
	}
	return slices.Clone(s), nil
}

// IDs returns the ids of a named subset in ascending order.
func (p *Partition) IDs(name string) ([]int, error) {
	recs, err := p.Subset(name)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids, nil
}

// Residual returns the records not drawn into any subset.
func (p *Partition) Residual() []corpus.Record {
	return slices.Clone(p.residual)
}

// Summary maps each subset name, and the residual, to its size.
func (p *Partition) Summary() map[string]int {
	out := make(map[string]int, len(p.names)+1)
	for _, n := range p.names {
		out[n] = len(p.subsets[n])
	}
	out[ResidualName] = len(p.residual)
	return out
}
