package corpus

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strings"
)

// DuplicatePolicy decides what happens to records whose normalized text was
// already seen earlier in the same source.
type DuplicatePolicy string

const (
	// KeepDuplicates keeps every record as an independent entity.
	KeepDuplicates DuplicatePolicy = "keep"
	// DropDuplicates skips later records before ids are assigned.
	DropDuplicates DuplicatePolicy = "drop"
)

// ParsePolicy validates a policy name; "" selects KeepDuplicates.
func ParsePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(strings.ToLower(s)) {
	case "", KeepDuplicates:
		return KeepDuplicates, nil
	case DropDuplicates:
		return DropDuplicates, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

// Options configures Build.
type Options struct {
	Duplicates DuplicatePolicy
}

// Stats summarizes a build.
type Stats struct {
	Lines        int `json:"lines"`
	Records      int `json:"records"`
	Skipped      int `json:"skipped"`
	Empty        int `json:"empty"`
	Dropped      int `json:"dropped"`
	InvalidDates int `json:"invalid_dates"`
}

var (
	linePattern   = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s*\|\s*(.+)$`)
	sentenceTag   = regexp.MustCompile(`</?s>`)
	collocateTag  = regexp.MustCompile(`</?coll>`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Normalize strips concordance markup and collapses whitespace.
// Sentence boundary tags become spaces, collocate tags are removed.
func Normalize(text string) string {
	text = sentenceTag.ReplaceAllString(text, " ")
	text = collocateTag.ReplaceAllString(text, "")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Build parses "DATE | TEXT" lines into a corpus. Lines that do not match the
// format are skipped and counted, never fatal. A well-formed line whose date is
// not a real calendar day keeps the record with an unknown date. Records whose
// text is empty after normalization are skipped.
func Build(lines iter.Seq[string], opts Options) (*Corpus, Stats) {
	var stats Stats
	seen := make(map[string]struct{})
	c := &Corpus{index: make(map[int]int)}

	for line := range lines {
		stats.Lines++

		m := linePattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			stats.Skipped++
			continue
		}

		text := Normalize(m[2])
		if text == "" {
			stats.Empty++
			continue
		}

		if opts.Duplicates == DropDuplicates {
			key := strings.ToLower(text)
			if _, dup := seen[key]; dup {
				stats.Dropped++
				continue
			}
			seen[key] = struct{}{}
		}

		rec := Record{ID: len(c.records) + 1, Text: text}
		if d, err := ParseDate(m[1]); err == nil {
			rec.Date = &d
		} else {
			stats.InvalidDates++
		}

		c.index[rec.ID] = len(c.records)
		c.records = append(c.records, rec)
	}

	stats.Records = len(c.records)
	return c, stats
}

// Read builds a corpus from a concordance export stream.
func Read(r io.Reader, opts Options) (*Corpus, Stats, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var scanErr error
	lines := func(yield func(string) bool) {
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
		scanErr = scanner.Err()
	}

	c, stats := Build(lines, opts)
	if scanErr != nil {
		return nil, stats, fmt.Errorf("read concordance: %w", scanErr)
	}
	return c, stats, nil
}
