package normalizers

import (
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// NormalizationError is returned when a value cannot be canonicalized into a
// valid website URL.
type NormalizationError struct {
	URL    string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("'%s' is not a valid URL: %s", e.URL, e.Reason)
}

// ToHTTPError converts the error for services exposing the connector over HTTP.
func (e *NormalizationError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, e.Error())
}

// IsNormalizationError reports whether err is a NormalizationError.
func IsNormalizationError(err error) bool {
	_, ok := err.(*NormalizationError)
	return ok
}
