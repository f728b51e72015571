package agreement_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/concord/internal/agreement"
	"github.com/JaimeStill/concord/internal/corpus"
	"github.com/JaimeStill/concord/internal/ledger"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-4
}

func TestZScore(t *testing.T) {
	tests := []struct {
		confidence float64
		oneSided   bool
		want       float64
	}{
		{0.95, false, 1.959964},
		{0.95, true, 1.644854},
		{0.99, false, 2.575829},
		{0.975, true, 1.959964},
		{0.90, true, 1.281552},
	}

	for _, tt := range tests {
		z, err := agreement.ZScore(tt.confidence, tt.oneSided)
		if err != nil || !approx(z, tt.want) {
			t.Errorf("ZScore(%v, %v) = %v, %v; want %v", tt.confidence, tt.oneSided, z, err, tt.want)
		}
	}

	for _, bad := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
		if _, err := agreement.ZScore(bad, false); !errors.Is(err, agreement.ErrInvalidConfidence) {
			t.Errorf("ZScore(%v) error = %v", bad, err)
		}
	}
}

func TestDefaultZ(t *testing.T) {
	oneSided, _ := agreement.ZScore(0.975, true)
	if !approx(agreement.DefaultZ, 1.959964) || !approx(agreement.DefaultZ, oneSided) {
		t.Errorf("DefaultZ = %v, want two-sided 95%% (one-sided 97.5%%) quantile", agreement.DefaultZ)
	}

	res, err := agreement.Compare(
		agreement.Series{1: 1, 2: 2},
		agreement.Series{1: 1, 2: 2},
		agreement.Options{},
	)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !approx(res.Interval.Z, agreement.DefaultZ) {
		t.Errorf("interval z = %v, want DefaultZ", res.Interval.Z)
	}
}

func TestWilson(t *testing.T) {
	tests := []struct {
		name         string
		k, n         int
		lower, upper float64
	}{
		{"all agree", 10, 10, 0.7225, 1},
		{"eight of ten", 8, 10, 0.4902, 0.9433},
		{"none agree", 0, 10, 0, 0.2775},
		{"single trial", 1, 1, 0.2065, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv, err := agreement.Wilson(tt.k, tt.n, 1.96)
			if err != nil {
				t.Fatalf("Wilson: %v", err)
			}
			if !approx(iv.Lower, tt.lower) || !approx(iv.Upper, tt.upper) {
				t.Errorf("interval = [%.4f, %.4f], want [%.4f, %.4f]", iv.Lower, iv.Upper, tt.lower, tt.upper)
			}
			if iv.Lower < 0 || iv.Upper > 1 || iv.Lower > iv.Upper {
				t.Errorf("interval out of bounds: %+v", iv)
			}
		})
	}
}

func TestWilsonErrors(t *testing.T) {
	if _, err := agreement.Wilson(0, 0, 1.96); !errors.Is(err, agreement.ErrInsufficientData) {
		t.Errorf("n=0 error = %v", err)
	}
	if _, err := agreement.Wilson(11, 10, 1.96); !errors.Is(err, agreement.ErrInvalidCount) {
		t.Errorf("k>n error = %v", err)
	}
	if _, err := agreement.Wilson(-1, 10, 1.96); !errors.Is(err, agreement.ErrInvalidCount) {
		t.Errorf("k<0 error = %v", err)
	}
}

func rate(v float64) *float64 { return &v }

func TestCompareSwapKeepsOverallRate(t *testing.T) {
	ref := agreement.Series{1: 1, 2: 1, 3: 2, 4: 3}
	pred := agreement.Series{1: 1, 2: 2, 3: 2, 4: 1, 5: 2}

	fwd, err := agreement.Compare(ref, pred, agreement.Options{})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	rev, err := agreement.Compare(pred, ref, agreement.Options{})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if fwd.N != 4 || fwd.Matches != 2 || fwd.Rate != 0.5 {
		t.Errorf("forward = n %d, matches %d, rate %v", fwd.N, fwd.Matches, fwd.Rate)
	}
	if fwd.Rate != rev.Rate || fwd.N != rev.N || fwd.Interval != rev.Interval {
		t.Errorf("overall figures differ: %+v vs %+v", fwd, rev)
	}

	wantFwd := []agreement.ClassAgreement{
		{Class: 1, Support: 2, Matches: 1, Rate: rate(0.5)},
		{Class: 2, Support: 1, Matches: 1, Rate: rate(1)},
		{Class: 3, Support: 1, Matches: 0, Rate: rate(0)},
	}
	if diff := cmp.Diff(wantFwd, fwd.PerClass); diff != "" {
		t.Errorf("forward per-class mismatch (-want +got):\n%s", diff)
	}

	wantRev := []agreement.ClassAgreement{
		{Class: 1, Support: 2, Matches: 1, Rate: rate(0.5)},
		{Class: 2, Support: 2, Matches: 1, Rate: rate(0.5)},
	}
	if diff := cmp.Diff(wantRev, rev.PerClass); diff != "" {
		t.Errorf("reverse per-class mismatch (-want +got):\n%s", diff)
	}
}

func TestCompareOptions(t *testing.T) {
	ref := agreement.Series{1: 1, 2: ledger.Failure, 3: 2, 4: 2}
	pred := agreement.Series{1: 1, 2: 1, 3: 2, 4: 1}

	t.Run("failures excluded", func(t *testing.T) {
		res, _ := agreement.Compare(ref, pred, agreement.Options{})
		if res.N != 3 || res.Matches != 2 {
			t.Errorf("n=%d matches=%d, want 3 and 2", res.N, res.Matches)
		}
	})

	t.Run("failures counted", func(t *testing.T) {
		res, _ := agreement.Compare(ref, pred, agreement.Options{CountFailures: true})
		if res.N != 4 || res.Matches != 2 {
			t.Errorf("n=%d matches=%d, want 4 and 2", res.N, res.Matches)
		}
	})

	t.Run("restricted", func(t *testing.T) {
		res, _ := agreement.Compare(ref, pred, agreement.Options{Restrict: []int{3, 4, 99}})
		if res.N != 2 || res.Matches != 1 {
			t.Errorf("n=%d matches=%d, want 2 and 1", res.N, res.Matches)
		}
	})

	t.Run("taxonomy classes", func(t *testing.T) {
		res, _ := agreement.Compare(ref, pred, agreement.Options{Classes: []ledger.Value{1, 2, 3}})
		last := res.PerClass[len(res.PerClass)-1]
		if last.Class != 3 || last.Support != 0 || last.Rate != nil {
			t.Errorf("unsupported class = %+v, want nil rate", last)
		}
	})

	t.Run("empty restriction", func(t *testing.T) {
		_, err := agreement.Compare(ref, pred, agreement.Options{Restrict: []int{}})
		if !errors.Is(err, agreement.ErrInsufficientData) {
			t.Errorf("error = %v, want ErrInsufficientData", err)
		}
	})

	t.Run("empty domain", func(t *testing.T) {
		_, err := agreement.Compare(ref, agreement.Series{}, agreement.Options{})
		if !errors.Is(err, agreement.ErrInsufficientData) {
			t.Errorf("error = %v, want ErrInsufficientData", err)
		}
	})
}

func TestConfusion(t *testing.T) {
	ref := agreement.Series{1: 1, 2: 1, 3: 2}
	pred := agreement.Series{1: 1, 2: 2, 3: 2}

	m, err := agreement.Confusion(ref, pred, agreement.Options{Classes: []ledger.Value{1, 2, 3}})
	if err != nil {
		t.Fatalf("Confusion: %v", err)
	}

	if diff := cmp.Diff([]ledger.Value{1, 2, 3}, m.Classes); diff != "" {
		t.Errorf("classes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]int{{1, 1, 0}, {0, 1, 0}, {0, 0, 0}}, m.Counts); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}

	totals := m.RowTotals()
	if diff := cmp.Diff([]int{2, 1, 0}, totals); diff != "" {
		t.Errorf("row totals mismatch (-want +got):\n%s", diff)
	}
	sum := 0
	for _, n := range totals {
		sum += n
	}
	if sum != 3 {
		t.Errorf("row totals sum to %d, want domain size 3", sum)
	}

	norm := m.Normalized()
	if norm[0][0] != 50 || norm[0][1] != 50 || norm[1][1] != 100 {
		t.Errorf("normalized = %v", norm)
	}
	if !math.IsNaN(norm[2][0]) {
		t.Errorf("zero row = %v, want NaN", norm[2])
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Normalized [][]*float64 `json:"normalized"`
	}
	json.Unmarshal(data, &decoded)
	if decoded.Normalized[2][0] != nil || *decoded.Normalized[1][1] != 100 {
		t.Errorf("json normalized = %s", data)
	}
}

func snapshot() *ledger.Snapshot {
	records := make([]corpus.Record, 5)
	for i := range records {
		records[i] = corpus.Record{ID: i + 1, Text: "frase"}
	}
	return &ledger.Snapshot{
		Records: records,
		Sources: []ledger.Source{{Name: "Fabio"}, {Name: "Giulia"}, {Name: "mod4_gpt-4o"}},
		Labels: map[string]map[int]ledger.Value{
			"Fabio":       {1: 1, 2: 2, 3: 3, 4: 1},
			"Giulia":      {1: 1, 2: 2, 3: 1},
			"mod4_gpt-4o": {1: 1, 2: 4, 4: ledger.Failure, 5: 6},
		},
	}
}

func TestCompareSources(t *testing.T) {
	res, err := agreement.CompareSources(snapshot(), "fabio", "GIULIA", agreement.Options{})
	if err != nil {
		t.Fatalf("CompareSources: %v", err)
	}
	if res.Reference != "Fabio" || res.Prediction != "Giulia" || res.N != 3 || res.Matches != 2 {
		t.Errorf("result = %+v", res)
	}

	if _, err := agreement.CompareSources(snapshot(), "Fabio", "gpt-5", agreement.Options{}); !errors.Is(err, ledger.ErrUnknownSource) {
		t.Errorf("error = %v, want ErrUnknownSource", err)
	}
}

func TestPairwise(t *testing.T) {
	pairs, err := agreement.Pairwise(snapshot(), []string{"Fabio", "Giulia"}, agreement.Options{})
	if err != nil {
		t.Fatalf("Pairwise: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("pairs = %d, want 2", len(pairs))
	}
	if *pairs[0].Rate != *pairs[1].Rate || pairs[0].N != pairs[1].N {
		t.Errorf("ordered pairs disagree: %+v %+v", pairs[0], pairs[1])
	}

	if _, err := agreement.Pairwise(snapshot(), []string{"Fabio"}, agreement.Options{}); !errors.Is(err, agreement.ErrTooFewSources) {
		t.Errorf("error = %v, want ErrTooFewSources", err)
	}
}

func TestMultiWay(t *testing.T) {
	res, err := agreement.MultiWay(snapshot(), []string{"Fabio", "Giulia", "mod4_gpt-4o"}, agreement.Options{})
	if err != nil {
		t.Fatalf("MultiWay: %v", err)
	}

	// 1: all 1. 2: 2,2,4. 3: 3,1. 4: only Fabio holds a class. 5: only the model.
	want := &agreement.MultiWayResult{
		Sources:      []string{"Fabio", "Giulia", "mod4_gpt-4o"},
		Labeled:      5,
		MultiLabeled: 3,
		Agreed:       1,
		Disagreed:    2,
		Rate:         rate(1.0 / 3),
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("multiway mismatch (-want +got):\n%s", diff)
	}

	empty, err := agreement.MultiWay(snapshot(), []string{"Fabio", "Giulia"}, agreement.Options{Restrict: []int{}})
	if err != nil {
		t.Fatalf("MultiWay with empty restriction: %v", err)
	}
	if empty.Labeled != 0 || empty.MultiLabeled != 0 || empty.Rate != nil {
		t.Errorf("empty restriction = %+v, want nothing labeled and nil rate", empty)
	}
}
