package ledger

import (
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes human annotators from model runs.
type Kind string

const (
	Human Kind = "human"
	Model Kind = "model"
)

// ParseKind validates a kind name; "" selects Human.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", Human:
		return Human, nil
	case Model:
		return Model, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Source is a label column: one annotator or one model configuration.
type Source struct {
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchMode controls how source names are compared during lookup and
// registration.
type MatchMode string

const (
	// MatchFold treats names differing only in case as the same source.
	MatchFold MatchMode = "fold"
	// MatchExact compares names byte for byte.
	MatchExact MatchMode = "exact"
)

// ParseMatchMode validates a match mode; "" selects MatchFold.
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(s)) {
	case "", MatchFold:
		return MatchFold, nil
	case MatchExact:
		return MatchExact, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMatch, s)
}

// Key returns the lookup key for a source name under the mode.
func (m MatchMode) Key(name string) string {
	name = strings.TrimSpace(name)
	if m == MatchExact {
		return name
	}
	return strings.ToLower(name)
}

// FixedColumns are the leading ledger columns; no source may use these names.
var FixedColumns = []string{"id", "date", "sentence"}

func checkName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	for _, fixed := range FixedColumns {
		if strings.EqualFold(name, fixed) {
			return fmt.Errorf("%w: %q", ErrReservedName, name)
		}
	}
	return nil
}

// ModelSource names the column for a model run: the model name with dots
// replaced by underscores, prefixed with the prompt version when one is set.
// ModelSource("mod4", "gpt-4.1") is "mod4_gpt-4_1".
func ModelSource(promptVersion, model string) string {
	col := strings.ReplaceAll(model, ".", "_")
	if promptVersion == "" {
		return col
	}
	return promptVersion + "_" + col
}
