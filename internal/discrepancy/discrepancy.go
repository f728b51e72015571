// Package discrepancy lists sentences on which label sources disagree.
package discrepancy

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/JaimeStill/concord/internal/ledger"
)

// Rule separates report blocks.
var Rule = strings.Repeat("-", 60)

// Assignment is the value one source holds for a sentence. Present is false
// when the source has no entry.
type Assignment struct {
	Source  string       `json:"source"`
	Value   ledger.Value `json:"value"`
	Present bool         `json:"present"`
}

// Discrepancy is a sentence with more than one distinct class among the
// listed sources.
type Discrepancy struct {
	SentenceID  int          `json:"sentence_id"`
	Text        string       `json:"sentence"`
	Assignments []Assignment `json:"assignments"`
}

// Resolve maps requested source names to their canonical snapshot names.
func Resolve(snap *ledger.Snapshot, sources []string) ([]string, error) {
	names := make([]string, len(sources))
	for i, s := range sources {
		name, _, err := snap.Find(s)
		if err != nil {
			return nil, err
		}
		names[i] = name
	}
	return names, nil
}

// Find yields, in ascending id order, every sentence for which the listed
// sources hold more than one distinct class value. Failure sentinels and
// missing entries never create a disagreement. When restrict is non-nil only
// those ids are considered. sources must be canonical names (see Resolve).
// The sequence can be ranged over any number of times.
func Find(snap *ledger.Snapshot, sources []string, restrict []int) iter.Seq[Discrepancy] {
	var allowed map[int]bool
	if restrict != nil {
		allowed = make(map[int]bool, len(restrict))
		for _, id := range restrict {
			allowed[id] = true
		}
	}

	return func(yield func(Discrepancy) bool) {
		for _, rec := range snap.Records {
			if allowed != nil && !allowed[rec.ID] {
				continue
			}

			distinct := make(map[ledger.Value]bool)
			assignments := make([]Assignment, len(sources))
			for i, src := range sources {
				v, ok := snap.Labels[src][rec.ID]
				assignments[i] = Assignment{Source: src, Value: v, Present: ok}
				if ok && !v.IsFailure() {
					distinct[v] = true
				}
			}

			if len(distinct) < 2 {
				continue
			}

			d := Discrepancy{SentenceID: rec.ID, Text: rec.Text, Assignments: assignments}
			if !yield(d) {
				return
			}
		}
	}
}

// Write renders discrepancies as plain-text blocks, each closed by Rule,
// and returns how many were written.
func Write(w io.Writer, seq iter.Seq[Discrepancy]) (int, error) {
	bw := bufio.NewWriter(w)
	n := 0

	for d := range seq {
		fmt.Fprintf(bw, "ID %d\n%s\n", d.SentenceID, d.Text)
		for _, a := range d.Assignments {
			value := "-"
			if a.Present {
				value = a.Value.String()
			}
			fmt.Fprintf(bw, "  %s → %s\n", a.Source, value)
		}
		fmt.Fprintln(bw, Rule)
		n++
	}

	return n, bw.Flush()
}
