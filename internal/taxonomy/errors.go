package taxonomy

import "errors"

var (
	ErrUnknownTaxonomy = errors.New("unknown taxonomy")
	ErrInvalidTaxonomy = errors.New("invalid taxonomy")
)
