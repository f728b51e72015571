// Package taxonomy defines the closed class sets annotators and models assign
// to occurrences of an expression, and renders them as classification prompts.
package taxonomy

import (
	"embed"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtin embed.FS

// Class is one sense of the expression. Codes start at 1; 0 is never a class.
type Class struct {
	Code        int    `yaml:"code" json:"code"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description" json:"description"`
}

// Example is a few-shot pair included in the prompt.
type Example struct {
	Input string `yaml:"input" json:"input"`
	Class int    `yaml:"class" json:"class"`
}

// Taxonomy is an ordered, closed set of classes.
type Taxonomy struct {
	Name       string    `yaml:"name" json:"name"`
	Expression string    `yaml:"expression" json:"expression"`
	Intro      string    `yaml:"intro" json:"intro"`
	Classes    []Class   `yaml:"classes" json:"classes"`
	Examples   []Example `yaml:"examples,omitempty" json:"examples,omitempty"`
}

// Names lists the built-in taxonomies.
func Names() []string {
	entries, _ := builtin.ReadDir("builtin")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	return names
}

// Builtin returns a built-in taxonomy by name.
func Builtin(name string) (*Taxonomy, error) {
	f, err := builtin.Open("builtin/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaxonomy, name)
	}
	defer f.Close()
	return Decode(f)
}

// Load resolves a taxonomy reference: a built-in name, or a path to a YAML
// file.
func Load(ref string) (*Taxonomy, error) {
	if slices.Contains(Names(), ref) {
		return Builtin(ref)
	}

	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrUnknownTaxonomy, ref, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads and validates a YAML taxonomy.
func Decode(r io.Reader) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTaxonomy, err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Taxonomy) validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidTaxonomy)
	}
	if len(t.Classes) == 0 {
		return fmt.Errorf("%w: %s has no classes", ErrInvalidTaxonomy, t.Name)
	}

	seen := make(map[int]bool, len(t.Classes))
	for _, c := range t.Classes {
		if c.Code < 1 {
			return fmt.Errorf("%w: %s class code %d must be positive", ErrInvalidTaxonomy, t.Name, c.Code)
		}
		if seen[c.Code] {
			return fmt.Errorf("%w: %s repeats class %d", ErrInvalidTaxonomy, t.Name, c.Code)
		}
		seen[c.Code] = true
	}

	for _, e := range t.Examples {
		if !seen[e.Class] {
			return fmt.Errorf("%w: %s example uses unknown class %d", ErrInvalidTaxonomy, t.Name, e.Class)
		}
	}
	return nil
}

// Valid reports whether code is a class of the taxonomy.
func (t *Taxonomy) Valid(code int) bool {
	return slices.ContainsFunc(t.Classes, func(c Class) bool { return c.Code == code })
}

// Codes returns the class codes in ascending order.
func (t *Taxonomy) Codes() []int {
	codes := make([]int, len(t.Classes))
	for i, c := range t.Classes {
		codes[i] = c.Code
	}
	slices.Sort(codes)
	return codes
}

// Max returns the largest class code.
func (t *Taxonomy) Max() int {
	codes := t.Codes()
	return codes[len(codes)-1]
}

// Prompt renders the system prompt sent to classification models.
func (t *Taxonomy) Prompt() string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(t.Intro))
	b.WriteString("\n\n")

	for _, c := range t.Classes {
		fmt.Fprintf(&b, "%d → %s: %s\n\n", c.Code, c.Label, strings.TrimSpace(c.Description))
	}

	fmt.Fprintf(&b, "Rispondi **ESCLUSIVAMENTE** con un JSON UTF-8 valido:\n{\n  \"class\": <numero intero tra %d e %d>\n}\n", t.Codes()[0], t.Max())

	if len(t.Examples) > 0 {
		b.WriteString("\nEsempi:\n")
		for _, e := range t.Examples {
			fmt.Fprintf(&b, "\nInput: %q\nOutput: {\"class\": %d}\n", e.Input, e.Class)
		}
	}

	return b.String()
}
