// Package identifier models dealroom identifiers (numeric IDs and UUIDs) and
// the sentinel states a document identity field can hold.
package identifier

import (
	"math"
	"strconv"

	"github.com/google/uuid"
)

// Field names that hold an identifier in a history document.
const (
	FieldNameID   = "dealroom_id"
	FieldNameUUID = "dealroom_uuid"

	// oldFieldSuffix marks the field where a superseded identifier is kept.
	oldFieldSuffix = "_old"
)

// Entity holds the special values an identity field can carry instead of a
// concrete identifier.
type Entity int

const (
	// Deleted marks entities that were retired from the dealroom database.
	Deleted Entity = -2
	// NotInDB marks entities that have no confirmed dealroom link yet.
	NotInDB Entity = -1
)

// Identifier is a tagged identifier value: either a numeric dealroom ID or a
// dealroom UUID. The zero value is not a valid identifier; construct through
// NewID, NewUUID or Determine.
type Identifier struct {
	id    int64
	uuid  string
	field string
}

// NewID returns an identifier holding a numeric dealroom ID.
func NewID(value int64) Identifier {
	return Identifier{id: value, field: FieldNameID}
}

// NewUUID returns an identifier holding a dealroom UUID.
func NewUUID(value string) Identifier {
	return Identifier{uuid: value, field: FieldNameUUID}
}

// Value returns the identifier value to be stored, an int64 for IDs and a
// string for UUIDs.
func (i Identifier) Value() any {
	if i.field == FieldNameUUID {
		return i.uuid
	}
	return i.id
}

// FieldName returns the document field that holds the value.
func (i Identifier) FieldName() string {
	return i.field
}

// OldFieldName returns the document field where the value is kept once the
// identity has been superseded.
func (i Identifier) OldFieldName() string {
	return i.field + oldFieldSuffix
}

// Determine checks whether raw is a valid identifier and returns it as an
// Identifier. Empty or falsy input (nil, "", 0) yields nil without an error.
// Input that is neither a positive numeric ID nor a UUID returns an
// InvalidIdentifierError.
func Determine(raw any) (*Identifier, error) {
	if isFalsy(raw) {
		return nil, nil
	}

	if n, ok := asPositiveID(raw); ok {
		ident := NewID(n)
		return &ident, nil
	}

	if s, ok := raw.(string); ok {
		if _, err := uuid.Parse(s); err == nil {
			ident := NewUUID(s)
			return &ident, nil
		}
	}

	return nil, &InvalidIdentifierError{Value: raw}
}

// IsValidID reports whether v is usable as a dealroom_id field value: a
// positive integer (as int or numeric string) or one of the sentinels.
func IsValidID(v any) bool {
	switch t := v.(type) {
	case int, int32, int64:
		n, _ := asInt64(t)
		return n > 0 || Entity(n) == NotInDB || Entity(n) == Deleted
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return false
		}
		return n > 0 || Entity(n) == NotInDB || Entity(n) == Deleted
	default:
		return false
	}
}

// IsValidUUID reports whether v is usable as a dealroom_uuid field value: a
// UUID-formatted string or one of the sentinels.
func IsValidUUID(v any) bool {
	switch t := v.(type) {
	case int, int32, int64:
		n, _ := asInt64(t)
		return Entity(n) == NotInDB || Entity(n) == Deleted
	case string:
		if _, err := uuid.Parse(t); err == nil {
			return true
		}
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return false
		}
		return Entity(n) == NotInDB || Entity(n) == Deleted
	default:
		return false
	}
}

// CoerceID converts a dealroom_id payload value to its integer form. A value
// that is not numeric at this point is a caller defect, reported as an
// InvalidIdentifierError.
func CoerceID(v any) (int64, error) {
	if n, ok := asInt64(v); ok {
		return n, nil
	}
	if s, ok := v.(string); ok {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, &InvalidIdentifierError{Value: v}
}

// IsSentinel reports whether a stored field value equals the given sentinel.
func IsSentinel(v any, e Entity) bool {
	n, ok := asInt64(v)
	return ok && Entity(n) == e
}

// ValuesEqual compares a stored field value against an identifier value,
// tolerating the integer widenings the store client performs.
func ValuesEqual(stored, value any) bool {
	if a, ok := asInt64(stored); ok {
		b, ok := asInt64(value)
		return ok && a == b
	}
	s, ok := stored.(string)
	if !ok {
		return false
	}
	v, ok := value.(string)
	return ok && s == v
}

func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		n, ok := asInt64(v)
		return ok && n == 0
	}
}

func asPositiveID(v any) (int64, bool) {
	switch t := v.(type) {
	case int, int32, int64:
		n, _ := asInt64(t)
		return n, n > 0
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil && n > 0
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case Entity:
		return int64(t), true
	case float64:
		if t == math.Trunc(t) {
			return int64(t), true
		}
		return 0, false
	default:
		return 0, false
	}
}
