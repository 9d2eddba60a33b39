package store

import (
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// OperationError is returned when a store primitive exhausted its retry and
// still failed. Op names the primitive, Target the document or collection
// involved.
type OperationError struct {
	Op     string
	Target string
	Err    error
}

func (e *OperationError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("store operation '%s' on '%s' failed: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("store operation '%s' failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// ToHTTPError converts the error for services exposing the connector over HTTP.
func (e *OperationError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadGateway, e.Error())
}

// IsOperationError reports whether err is an OperationError.
func IsOperationError(err error) bool {
	_, ok := err.(*OperationError)
	return ok
}
