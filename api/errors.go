package api

import (
	"errors"
	"net/http"

	"github.com/jacentio/flexdb/document"
	"github.com/jacentio/flexdb/store"
	"github.com/jacentio/flexdb/txn"
)

// ErrorKind names a class of request failure. It is the only detail about a
// failure that reaches clients.
type ErrorKind string

const (
	KindStoreIO             ErrorKind = "StoreIOError"
	KindNotFound            ErrorKind = "NotFound"
	KindMalformedIdentifier ErrorKind = "MalformedIdentifier"
	KindDeserialization     ErrorKind = "DeserializationError"
)

// badRequest marks an error caused by the request body.
type badRequest struct {
	err error
}

func (e badRequest) Error() string { return "decode request: " + e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

// KindOf classifies err.
func KindOf(err error) ErrorKind {
	var br badRequest
	switch {
	case errors.As(err, &br), errors.Is(err, txn.ErrInvalidTx):
		return KindDeserialization
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.Is(err, document.ErrMalformedIdentifier):
		return KindMalformedIdentifier
	default:
		return KindStoreIO
	}
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// statusOf returns the status for a failure of kind. Only a Get reports a
// missing document as 404; elsewhere it is a server error.
func statusOf(kind ErrorKind, notFoundIs404 bool) int {
	switch {
	case kind == KindDeserialization:
		return http.StatusBadRequest
	case kind == KindNotFound && notFoundIs404:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
