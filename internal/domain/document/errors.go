package document

import "errors"

// Sentinel kinds for document errors.
var (
	ErrMalformed = errors.New("malformed snapshot document")
)
