package discrepancy

import "errors"

var ErrTooFewSources = errors.New("at least two sources are required")
