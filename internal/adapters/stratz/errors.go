package stratz

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every Execute failure is a *QueryError whose Err chain
// reaches one of these where applicable.
var (
	ErrQuery           = errors.New("stats query failed")
	ErrMissingEndpoint = errors.New("stats endpoint is required")
	ErrMissingToken    = errors.New("stats token is required")
	ErrEmptyData       = errors.New("response has no data")
	ErrMissingField    = errors.New("required field missing")
)

// Kind classifies a QueryError.
type Kind string

// Query error kinds.
const (
	KindTransport Kind = "transport" // request could not be sent or read
	KindStatus    Kind = "status"    // non-2xx HTTP status
	KindDecode    Kind = "decode"    // body is not the expected JSON
	KindRemote    Kind = "remote"    // GraphQL errors array
	KindSchema    Kind = "schema"    // required fields missing
)

// QueryError is returned for every failed query. It matches ErrQuery with
// errors.Is and unwraps to the underlying cause.
type QueryError struct {
	Query  string
	Kind   Kind
	Status int
	Err    error
}

func (e *QueryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("query %s: %s (status %d): %v", e.Query, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("query %s: %s: %v", e.Query, e.Kind, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Is reports whether target is ErrQuery.
func (e *QueryError) Is(target error) bool { return target == ErrQuery }

func queryError(query string, kind Kind, status int, err error) *QueryError {
	return &QueryError{Query: query, Kind: kind, Status: status, Err: err}
}
