// Package classifier asks language models to assign a taxonomy class to a
// sentence.
package classifier

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/internal/taxonomy"
	"github.com/JaimeStill/concord/pkg/formatting"
)

// Classifier assigns one class to a sentence.
type Classifier interface {
	// Name is the model name the classifier queries.
	Name() string
	Classify(ctx context.Context, sentence string) (ledger.Value, error)
}

// Factory builds a classifier for a model name.
type Factory func(ctx context.Context, model string) (Classifier, error)

var classPattern = regexp.MustCompile(`"?class"?\s*[:=]\s*(\d+)`)

type classResponse struct {
	Class int `json:"class"`
}

// ParseClass extracts the class from a model reply. A `class: N` fragment
// anywhere in the text wins; otherwise the reply is parsed as JSON, bare or
// fenced. Errors wrap ErrClassificationFailed.
func ParseClass(text string, tax *taxonomy.Taxonomy) (ledger.Value, error) {
	var code int

	if m := classPattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return ledger.Failure, fmt.Errorf("%w: %q", ErrUnparseable, m[1])
		}
		code = n
	} else {
		parsed, err := formatting.Parse[classResponse](text)
		if err != nil {
			return ledger.Failure, fmt.Errorf("%w: %w", ErrUnparseable, err)
		}
		code = parsed.Class
	}

	if !tax.Valid(code) {
		return ledger.Failure, fmt.Errorf("%w: %d", ErrOutOfRange, code)
	}
	return ledger.Value(code), nil
}

// userMessage frames a sentence for providers without a separate system
// instruction.
func userMessage(tax *taxonomy.Taxonomy, sentence string) string {
	return tax.Prompt() + "\nFrase: " + sentence
}
