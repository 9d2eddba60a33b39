// Package status defines the result codes returned by connector operations.
package status

// Code encodes the outcome of a connector operation.
type Code int

const (
	Error   Code = -1
	Success Code = 0
	Created Code = 1
	Updated Code = 2
)

func (c Code) String() string {
	switch c {
	case Error:
		return "error"
	case Success:
		return "success"
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}
