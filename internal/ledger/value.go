package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is a class code recorded for a sentence. Failure marks an attempted
// annotation that produced no usable class; a missing entry means the
// sentence was never attempted.
type Value int

// Failure is the explicit "attempted, no label" sentinel.
const Failure Value = 0

// FailureText is the persisted form of Failure.
const FailureText = "none"

// IsFailure reports whether v is the failure sentinel.
func (v Value) IsFailure() bool {
	return v == Failure
}

func (v Value) String() string {
	if v == Failure {
		return FailureText
	}
	return strconv.Itoa(int(v))
}

// ParseValue reads the persisted text form. ok is false for an empty cell,
// which means never attempted.
func ParseValue(s string) (v Value, ok bool, err error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return Failure, false, nil
	case "none", "null", "nan":
		return Failure, true, nil
	}

	// Spreadsheet round trips can turn "3" into "3.0".
	s = strings.TrimSuffix(s, ".0")

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return Failure, false, fmt.Errorf("%w: %q", ErrInvalidValue, s)
	}
	return Value(n), true, nil
}

// UnmarshalJSON accepts a class code or its persisted text form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if n < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidValue, n)
		}
		*v = Value(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidValue, data)
	}
	parsed, ok, err := ParseValue(s)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: empty value", ErrInvalidValue)
	}
	*v = parsed
	return nil
}
