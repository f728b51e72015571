package classifier

import (
	"errors"
	"fmt"
)

// ErrClassificationFailed marks a response that yielded no usable class.
// Callers record the failure sentinel instead of aborting.
var ErrClassificationFailed = errors.New("classification failed")

var (
	ErrUnparseable     = fmt.Errorf("%w: no class in response", ErrClassificationFailed)
	ErrOutOfRange      = fmt.Errorf("%w: class outside taxonomy", ErrClassificationFailed)
	ErrUnknownProvider = errors.New("unknown classifier provider")
	ErrMissingAPIKey   = errors.New("api key required")
	ErrEmptyModel      = errors.New("model name required")
)
