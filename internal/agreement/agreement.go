// Package agreement measures how often label sources assign the same class.
//
// All computations run over ledger snapshots, so every figure in one report
// reflects the same ledger state.
package agreement

import (
	"maps"
	"slices"

	"github.com/JaimeStill/concord/internal/ledger"
)

// Series maps sentence ids to the value one source holds for them.
type Series map[int]ledger.Value

// Options narrows and tunes a comparison.
type Options struct {
	// Restrict limits the domain to these sentence ids when non-nil. An
	// empty, non-nil slice leaves nothing to compare.
	Restrict []int
	// CountFailures keeps failure sentinels in the domain as mismatches
	// instead of excluding them.
	CountFailures bool
	// Classes are always reported per class, even with zero support.
	Classes []ledger.Value
	// Z is the normal quantile for intervals; zero selects DefaultZ.
	Z float64
}

func (o Options) z() float64 {
	if o.Z == 0 {
		return DefaultZ
	}
	return o.Z
}

// ClassAgreement is the agreement restricted to sentences whose reference
// value is Class. Rate is nil when the class has no support.
type ClassAgreement struct {
	Class   ledger.Value `json:"class"`
	Support int          `json:"support"`
	Matches int          `json:"matches"`
	Rate    *float64     `json:"rate"`
}

// Result is the agreement between a reference and a prediction series.
type Result struct {
	Reference  string           `json:"reference,omitempty"`
	Prediction string           `json:"prediction,omitempty"`
	N          int              `json:"n"`
	Matches    int              `json:"matches"`
	Rate       float64          `json:"rate"`
	Interval   Interval         `json:"interval"`
	PerClass   []ClassAgreement `json:"per_class"`
}

// Domain returns, in ascending order, the sentence ids both series hold a
// value for, narrowed by the options.
func Domain(ref, pred Series, opts Options) []int {
	var allowed map[int]bool
	if opts.Restrict != nil {
		allowed = make(map[int]bool, len(opts.Restrict))
		for _, id := range opts.Restrict {
			allowed[id] = true
		}
	}

	var ids []int
	for id, r := range ref {
		p, ok := pred[id]
		if !ok {
			continue
		}
		if allowed != nil && !allowed[id] {
			continue
		}
		if !opts.CountFailures && (r.IsFailure() || p.IsFailure()) {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func agree(r, p ledger.Value) bool {
	return r == p && !r.IsFailure()
}

// Compare measures agreement of pred against ref. The overall rate is
// symmetric in its arguments; per-class figures depend on which series is
// the reference.
func Compare(ref, pred Series, opts Options) (*Result, error) {
	domain := Domain(ref, pred, opts)
	if len(domain) == 0 {
		return nil, ErrInsufficientData
	}

	matches := 0
	support := make(map[ledger.Value]int)
	hits := make(map[ledger.Value]int)

	for _, id := range domain {
		r, p := ref[id], pred[id]
		if agree(r, p) {
			matches++
		}
		if r.IsFailure() {
			continue
		}
		support[r]++
		if agree(r, p) {
			hits[r]++
		}
	}

	interval, err := Wilson(matches, len(domain), opts.z())
	if err != nil {
		return nil, err
	}

	classes := make(map[ledger.Value]bool, len(support)+len(opts.Classes))
	for c := range support {
		classes[c] = true
	}
	for _, c := range opts.Classes {
		classes[c] = true
	}

	perClass := make([]ClassAgreement, 0, len(classes))
	for _, c := range slices.Sorted(maps.Keys(classes)) {
		ca := ClassAgreement{Class: c, Support: support[c], Matches: hits[c]}
		if ca.Support > 0 {
			rate := float64(ca.Matches) / float64(ca.Support)
			ca.Rate = &rate
		}
		perClass = append(perClass, ca)
	}

	return &Result{
		N:        len(domain),
		Matches:  matches,
		Rate:     float64(matches) / float64(len(domain)),
		Interval: interval,
		PerClass: perClass,
	}, nil
}

// CompareSources resolves two sources in a snapshot and compares them.
func CompareSources(snap *ledger.Snapshot, ref, pred string, opts Options) (*Result, error) {
	refName, refLabels, err := snap.Find(ref)
	if err != nil {
		return nil, err
	}
	predName, predLabels, err := snap.Find(pred)
	if err != nil {
		return nil, err
	}

	res, err := Compare(Series(refLabels), Series(predLabels), opts)
	if err != nil {
		return nil, err
	}
	res.Reference = refName
	res.Prediction = predName
	return res, nil
}
