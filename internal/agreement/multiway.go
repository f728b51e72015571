package agreement

import (
	"errors"
	"fmt"

	"github.com/JaimeStill/concord/internal/ledger"
)

// Pair is the overall agreement for one ordered pair of sources. Rate and
// Interval are nil when the pair shares no labeled sentence.
type Pair struct {
	Reference  string    `json:"reference"`
	Prediction string    `json:"prediction"`
	N          int       `json:"n"`
	Matches    int       `json:"matches"`
	Rate       *float64  `json:"rate"`
	Interval   *Interval `json:"interval,omitempty"`
}

// Pairwise compares every ordered pair of distinct sources.
func Pairwise(snap *ledger.Snapshot, sources []string, opts Options) ([]Pair, error) {
	if len(sources) < 2 {
		return nil, ErrTooFewSources
	}

	series := make([]Series, len(sources))
	names := make([]string, len(sources))
	for i, s := range sources {
		name, labels, err := snap.Find(s)
		if err != nil {
			return nil, err
		}
		names[i], series[i] = name, Series(labels)
	}

	var out []Pair
	for i := range series {
		for j := range series {
			if i == j {
				continue
			}
			pair := Pair{Reference: names[i], Prediction: names[j]}
			res, err := Compare(series[i], series[j], opts)
			switch {
			case err == nil:
				pair.N, pair.Matches = res.N, res.Matches
				pair.Rate, pair.Interval = &res.Rate, &res.Interval
			case !errors.Is(err, ErrInsufficientData):
				return nil, fmt.Errorf("compare %s with %s: %w", names[i], names[j], err)
			}
			out = append(out, pair)
		}
	}
	return out, nil
}

// MultiWayResult summarizes consensus across several sources.
type MultiWayResult struct {
	Sources      []string `json:"sources"`
	Labeled      int      `json:"labeled"`
	MultiLabeled int      `json:"multi_labeled"`
	Agreed       int      `json:"agreed"`
	Disagreed    int      `json:"disagreed"`
	Rate         *float64 `json:"rate"`
}

// MultiWay counts, over sentences holding class values from at least two of
// the sources, how many have a single distinct value. Failure sentinels are
// not class values.
func MultiWay(snap *ledger.Snapshot, sources []string, opts Options) (*MultiWayResult, error) {
	if len(sources) < 2 {
		return nil, ErrTooFewSources
	}

	res := &MultiWayResult{}
	series := make([]Series, len(sources))
	for i, s := range sources {
		name, labels, err := snap.Find(s)
		if err != nil {
			return nil, err
		}
		res.Sources = append(res.Sources, name)
		series[i] = Series(labels)
	}

	ids := snap.IDs()
	if opts.Restrict != nil {
		ids = restrict(ids, opts.Restrict)
	}

	for _, id := range ids {
		values := make(map[ledger.Value]bool)
		labeled := 0
		for _, s := range series {
			v, ok := s[id]
			if !ok || v.IsFailure() {
				continue
			}
			labeled++
			values[v] = true
		}

		if labeled > 0 {
			res.Labeled++
		}
		if labeled < 2 {
			continue
		}

		res.MultiLabeled++
		if len(values) == 1 {
			res.Agreed++
		} else {
			res.Disagreed++
		}
	}

	if res.MultiLabeled > 0 {
		rate := float64(res.Agreed) / float64(res.MultiLabeled)
		res.Rate = &rate
	}
	return res, nil
}

func restrict(ids, keep []int) []int {
	allowed := make(map[int]bool, len(keep))
	for _, id := range keep {
		allowed[id] = true
	}

	out := ids[:0:0]
	for _, id := range ids {
		if allowed[id] {
			out = append(out, id)
		}
	}
	return out
}
