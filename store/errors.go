package store

import "errors"

var (
	// ErrNotFound is returned when a document doesn't exist.
	ErrNotFound = errors.New("flexdb: document not found")

	// ErrAlreadyExists is returned when a generated id collides with an existing document.
	ErrAlreadyExists = errors.New("flexdb: document already exists")

	// ErrInvalidBatch is returned when a batch is not framed by a single BEGIN and COMMIT.
	ErrInvalidBatch = errors.New("flexdb: invalid transaction batch")

	// ErrBatchTooLarge is returned when a batch exceeds the backend's transaction size limit.
	ErrBatchTooLarge = errors.New("flexdb: transaction batch too large")

	// ErrNotArray is returned when appending to a field that holds something other than an array.
	ErrNotArray = errors.New("flexdb: field is not an array")

	// ErrNotNumber is returned when incrementing a field that holds something other than a number.
	ErrNotNumber = errors.New("flexdb: field is not a number")

	// ErrReservedField is returned when an operation targets a field managed by the store.
	ErrReservedField = errors.New("flexdb: field is reserved")

	// ErrInvalidCollection is returned for an empty collection name.
	ErrInvalidCollection = errors.New("flexdb: invalid collection name")
)
