// Package classifications records model classification runs. It starts runs
// through the workflow engine, one at a time, and keeps their results for
// later inspection.
package classifications

import (
	"net/url"
	"slices"
	"strings"

	"github.com/JaimeStill/concord/internal/workflow"
)

// Run is a completed classification run.
type Run = workflow.WorkflowResult

// Filters contains optional filtering criteria for run queries.
// Nil fields are ignored.
type Filters struct {
	Model  *string `json:"model,omitempty"`
	Source *string `json:"source,omitempty"`
}

// Match reports whether a run satisfies every set filter.
func (f Filters) Match(r *Run) bool {
	if f.Model != nil && !slices.ContainsFunc(r.Models, func(m workflow.ModelResult) bool {
		return m.Model == *f.Model
	}) {
		return false
	}
	if f.Source != nil && !slices.ContainsFunc(r.Models, func(m workflow.ModelResult) bool {
		return strings.EqualFold(m.Source, *f.Source)
	}) {
		return false
	}
	return true
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if m := values.Get("model"); m != "" {
		f.Model = &m
	}

	if s := values.Get("source"); s != "" {
		f.Source = &s
	}

	return f
}
