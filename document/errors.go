package document

import "errors"

var (
	// ErrMalformedIdentifier is returned when a record identifier is not in the expected shape.
	ErrMalformedIdentifier = errors.New("flexdb: malformed record identifier")

	// ErrInvalidJSON is returned when input is not the expected JSON.
	ErrInvalidJSON = errors.New("flexdb: invalid json")
)
