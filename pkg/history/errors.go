package history

import (
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// ValidationError is returned when an upsert payload is missing a usable
// identity or carries an invalid identity field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid payload: %s", e.Reason)
	}
	return fmt.Sprintf("invalid payload field %q: %s", e.Field, e.Reason)
}

// ToHTTPError converts the error for services exposing the connector over HTTP.
func (e *ValidationError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, e.Error())
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// AmbiguousMatchError is returned when more than one document matches the
// winning lookup key; no write is performed.
type AmbiguousMatchError struct {
	Field string
	Count int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%d documents match on %q; expected at most one", e.Count, e.Field)
}

// ToHTTPError converts the error for services exposing the connector over HTTP.
func (e *AmbiguousMatchError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusConflict, e.Error())
}

// IsAmbiguousMatchError reports whether err is an AmbiguousMatchError.
func IsAmbiguousMatchError(err error) bool {
	_, ok := err.(*AmbiguousMatchError)
	return ok
}
