// Package workflow runs model classification over the ledger. It provides the
// request and result types and the 3-node state graph
// (plan → classify? → summarize) that executes a run.
package workflow

import "errors"

// Sentinel errors for workflow operations.
var (
	ErrNoModels       = errors.New("at least one model required")
	ErrInvalidMode    = errors.New("unknown selection mode")
	ErrUnknownID      = errors.New("sentence id not in ledger")
	ErrClassifyFailed = errors.New("classification run failed")
)
