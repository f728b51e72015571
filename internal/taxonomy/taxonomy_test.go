package taxonomy_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/concord/internal/taxonomy"
)

func TestBuiltins(t *testing.T) {
	tests := []struct {
		name  string
		codes []int
	}{
		{"libera", []int{1, 2, 3, 4, 5, 6}},
		{"disponibile", []int{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := taxonomy.Builtin(tt.name)
			if err != nil {
				t.Fatalf("Builtin: %v", err)
			}
			if diff := cmp.Diff(tt.codes, tx.Codes()); diff != "" {
				t.Errorf("codes mismatch (-want +got):\n%s", diff)
			}
			if tx.Valid(0) {
				t.Error("0 must never be a class")
			}
			if tx.Valid(len(tt.codes) + 1) {
				t.Errorf("%d should be out of range", len(tt.codes)+1)
			}
		})
	}
}

func TestNames(t *testing.T) {
	if diff := cmp.Diff([]string{"disponibile", "libera"}, taxonomy.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownBuiltin(t *testing.T) {
	if _, err := taxonomy.Builtin("occupata"); !errors.Is(err, taxonomy.ErrUnknownTaxonomy) {
		t.Errorf("error = %v, want ErrUnknownTaxonomy", err)
	}
}

func TestPrompt(t *testing.T) {
	tx, err := taxonomy.Load("libera")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	prompt := tx.Prompt()
	for _, want := range []string{
		`"donna libera"`,
		"6 → Libera – status legale o giudiziario:",
		"<numero intero tra 1 e 6>",
		"Esempi:",
		`Output: {"class": 4}`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	d, _ := taxonomy.Builtin("disponibile")
	if strings.Contains(d.Prompt(), "Esempi:") {
		t.Error("disponibile has no examples section")
	}
}

func TestDecodeValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no name", "classes:\n  - code: 1\n"},
		{"no classes", "name: x\n"},
		{"zero code", "name: x\nclasses:\n  - code: 0\n"},
		{"repeated code", "name: x\nclasses:\n  - code: 1\n  - code: 1\n"},
		{"bad example", "name: x\nclasses:\n  - code: 1\nexamples:\n  - input: y\n    class: 2\n"},
		{"malformed", "name: [x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := taxonomy.Decode(strings.NewReader(tt.doc)); !errors.Is(err, taxonomy.ErrInvalidTaxonomy) {
				t.Errorf("error = %v, want ErrInvalidTaxonomy", err)
			}
		})
	}
}
