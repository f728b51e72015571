package agreement

import (
	"encoding/json"
	"maps"
	"math"
	"slices"

	"github.com/JaimeStill/concord/internal/ledger"
)

// Matrix counts reference classes (rows) against predicted classes (columns).
type Matrix struct {
	Reference  string
	Prediction string
	Classes    []ledger.Value
	Counts     [][]int
}

// Confusion builds the confusion matrix over the comparison domain. Classes
// are the sorted union of values seen on either side.
func Confusion(ref, pred Series, opts Options) (*Matrix, error) {
	domain := Domain(ref, pred, opts)
	if len(domain) == 0 {
		return nil, ErrInsufficientData
	}

	seen := make(map[ledger.Value]bool)
	for _, id := range domain {
		seen[ref[id]] = true
		seen[pred[id]] = true
	}
	for _, c := range opts.Classes {
		seen[c] = true
	}
	classes := slices.Sorted(maps.Keys(seen))

	index := make(map[ledger.Value]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}

	counts := make([][]int, len(classes))
	for i := range counts {
		counts[i] = make([]int, len(classes))
	}
	for _, id := range domain {
		counts[index[ref[id]]][index[pred[id]]]++
	}

	return &Matrix{Classes: classes, Counts: counts}, nil
}

// ConfusionSources resolves two sources in a snapshot and builds their matrix.
func ConfusionSources(snap *ledger.Snapshot, ref, pred string, opts Options) (*Matrix, error) {
	refName, refLabels, err := snap.Find(ref)
	if err != nil {
		return nil, err
	}
	predName, predLabels, err := snap.Find(pred)
	if err != nil {
		return nil, err
	}

	m, err := Confusion(Series(refLabels), Series(predLabels), opts)
	if err != nil {
		return nil, err
	}
	m.Reference = refName
	m.Prediction = predName
	return m, nil
}

// RowTotals returns the number of domain sentences per reference class.
func (m *Matrix) RowTotals() []int {
	totals := make([]int, len(m.Counts))
	for i, row := range m.Counts {
		for _, n := range row {
			totals[i] += n
		}
	}
	return totals
}

// Normalized expresses each row as percentages of its total. Rows with a
// zero total are NaN.
func (m *Matrix) Normalized() [][]float64 {
	totals := m.RowTotals()
	out := make([][]float64, len(m.Counts))
	for i, row := range m.Counts {
		out[i] = make([]float64, len(row))
		for j, n := range row {
			if totals[i] == 0 {
				out[i][j] = math.NaN()
				continue
			}
			out[i][j] = 100 * float64(n) / float64(totals[i])
		}
	}
	return out
}

// MarshalJSON includes row totals and normalized rows; NaN becomes null.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	norm := m.Normalized()
	rows := make([][]*float64, len(norm))
	for i, row := range norm {
		rows[i] = make([]*float64, len(row))
		for j, v := range row {
			if !math.IsNaN(v) {
				rows[i][j] = &v
			}
		}
	}

	return json.Marshal(struct {
		Reference  string         `json:"reference,omitempty"`
		Prediction string         `json:"prediction,omitempty"`
		Classes    []ledger.Value `json:"classes"`
		Counts     [][]int        `json:"counts"`
		RowTotals  []int          `json:"row_totals"`
		Normalized [][]*float64   `json:"normalized"`
	}{
		Reference:  m.Reference,
		Prediction: m.Prediction,
		Classes:    m.Classes,
		Counts:     m.Counts,
		RowTotals:  m.RowTotals(),
		Normalized: rows,
	})
}
