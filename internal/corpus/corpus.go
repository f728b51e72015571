package corpus

import (
	"fmt"
	"slices"
	"strings"
)

// Corpus is an ordered, read-only collection of records indexed by id.
type Corpus struct {
	records []Record
	index   map[int]int
}

// FromRecords builds a corpus from records that already carry ids, such as
// rows read back from CSV or the ledger. Ids must be positive and unique;
// records are ordered by id.
func FromRecords(records []Record) (*Corpus, error) {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b Record) int { return a.ID - b.ID })

	index := make(map[int]int, len(sorted))
	for i, r := range sorted {
		if r.ID < 1 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidID, r.ID)
		}
		if _, dup := index[r.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, r.ID)
		}
		index[r.ID] = i
	}

	return &Corpus{records: sorted, index: index}, nil
}

// Len returns the number of records.
func (c *Corpus) Len() int {
	return len(c.records)
}

// Records returns the records in id order. The returned slice is a copy.
func (c *Corpus) Records() []Record {
	return slices.Clone(c.records)
}

// IDs returns all record ids in ascending order.
func (c *Corpus) IDs() []int {
	ids := make([]int, len(c.records))
	for i, r := range c.records {
		ids[i] = r.ID
	}
	return ids
}

// Get returns the record with the given id.
func (c *Corpus) Get(id int) (Record, bool) {
	i, ok := c.index[id]
	if !ok {
		return Record{}, false
	}
	return c.records[i], true
}

// Search returns records whose text contains term, ignoring case.
func (c *Corpus) Search(term string) []Record {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return c.Records()
	}

	var out []Record
	for _, r := range c.records {
		if strings.Contains(strings.ToLower(r.Text), term) {
			out = append(out, r)
		}
	}
	return out
}

// Duplicates groups ids whose normalized, case-folded text is identical.
// Only groups with more than one id are returned, ordered by their first id.
func (c *Corpus) Duplicates() [][]int {
	groups := make(map[string][]int)
	var order []string

	for _, r := range c.records {
		key := strings.ToLower(Normalize(r.Text))
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r.ID)
	}

	var out [][]int
	for _, key := range order {
		if ids := groups[key]; len(ids) > 1 {
			out = append(out, ids)
		}
	}
	return out
}

// Missing returns the given sentences that do not occur in the corpus,
// comparing normalized text.
func (c *Corpus) Missing(sentences []string) []string {
	present := make(map[string]struct{}, len(c.records))
	for _, r := range c.records {
		present[Normalize(r.Text)] = struct{}{}
	}

	var out []string
	for _, s := range sentences {
		if _, ok := present[Normalize(s)]; !ok {
			out = append(out, s)
		}
	}
	return out
}
