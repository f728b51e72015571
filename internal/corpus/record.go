// Package corpus turns raw concordance exports into an ordered set of dated
// sentence records with stable identifiers.
//
// Identifiers are assigned once, 1-based, in source order, before any sampling
// takes place. Equal normalized text never implies equal identity: duplicated
// sentences remain independent records unless the drop policy removes them at
// build time.
package corpus

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the concordance and CSV date format.
const DateLayout = "2006-01-02"

// Date is a calendar day without time of day.
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*d = parsed
	return nil
}

// Record is one sentence of the corpus. Records are immutable once built.
type Record struct {
	ID   int    `json:"id"`
	Date *Date  `json:"date"`
	Text string `json:"sentence"`
}

// DateString renders the record date, or "" when unknown.
func (r Record) DateString() string {
	if r.Date == nil {
		return ""
	}
	return r.Date.String()
}
