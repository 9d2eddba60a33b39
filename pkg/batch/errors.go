package batch

import (
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// LimitExceededError is returned when queueing a write would push the batch
// past the per-commit ceiling.
type LimitExceededError struct {
	Queued int
	Limit  int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("batch holds %d writes, the limit is %d; commit before queueing more", e.Queued, e.Limit)
}

// ToHTTPError converts the error for services exposing the connector over HTTP.
func (e *LimitExceededError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusConflict, e.Error())
}

// IsLimitExceededError reports whether err is a LimitExceededError.
func IsLimitExceededError(err error) bool {
	_, ok := err.(*LimitExceededError)
	return ok
}
