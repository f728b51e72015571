package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	KeyRunID   = "run_id"
	KeyRequest = "request"
	KeyJobs    = "jobs"
	KeyTexts   = "texts"
	KeyResult  = "result"
)

// Mode selects which sentences a model is asked about.
type Mode string

const (
	// ModeMissing selects sentences the model has no label for.
	ModeMissing Mode = "missing"
	// ModeFailed selects sentences whose previous attempt recorded the
	// failure sentinel.
	ModeFailed Mode = "failed"
	// ModeAll selects every sentence, overwriting earlier labels.
	ModeAll Mode = "all"
)

// ParseMode validates a mode name; "" selects ModeMissing.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "", ModeMissing:
		return ModeMissing, nil
	case ModeFailed:
		return ModeFailed, nil
	case ModeAll:
		return ModeAll, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Request describes one classification run.
type Request struct {
	Models []string `json:"models"`
	Mode   Mode     `json:"mode"`
	// PromptVersion overrides the runtime prompt version used to name
	// model columns.
	PromptVersion *string `json:"prompt_version,omitempty"`
	// IDs restricts the run to these sentences. Empty means every sentence.
	IDs []int `json:"ids,omitempty"`
	// RequireHuman skips sentences no human source has labeled.
	RequireHuman bool `json:"require_human"`
}

// Job is the work planned for one model.
type Job struct {
	Model  string `json:"model"`
	Source string `json:"source"`
	IDs    []int  `json:"ids"`
}

// ItemError records a sentence that could not be classified or written.
// No label is recorded for it, so a later missing-mode run picks it up.
type ItemError struct {
	SentenceID int    `json:"sentence_id"`
	Error      string `json:"error"`
}

// ModelResult counts the outcomes for one model.
type ModelResult struct {
	Model      string      `json:"model"`
	Source     string      `json:"source"`
	Attempted  int         `json:"attempted"`
	Classified int         `json:"classified"`
	Failed     int         `json:"failed"`
	Errors     []ItemError `json:"errors,omitempty"`
}

// WorkflowResult is the final output from a classification run.
type WorkflowResult struct {
	RunID       uuid.UUID     `json:"run_id"`
	Request     Request       `json:"request"`
	Models      []ModelResult `json:"models"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
}

// Totals sums the per-model counts.
func (r *WorkflowResult) Totals() (attempted, classified, failed, errored int) {
	for _, m := range r.Models {
		attempted += m.Attempted
		classified += m.Classified
		failed += m.Failed
		errored += len(m.Errors)
	}
	return
}
