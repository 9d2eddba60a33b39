package identifier

import (
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// InvalidIdentifierError is returned when a value is neither a valid dealroom
// ID nor a valid UUID.
type InvalidIdentifierError struct {
	Value any
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("'%v' is neither a valid dealroom ID nor a valid UUID", e.Value)
}

// ToHTTPError converts the error for services exposing the connector over HTTP.
func (e *InvalidIdentifierError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, e.Error())
}

// IsInvalidIdentifierError reports whether err is an InvalidIdentifierError.
func IsInvalidIdentifierError(err error) bool {
	_, ok := err.(*InvalidIdentifierError)
	return ok
}
