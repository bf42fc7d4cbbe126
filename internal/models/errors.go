package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds. A *DataError unwraps to exactly one of them.
var (
	// ErrSchema: a column is missing, or a categorical value is unexpected.
	ErrSchema = errors.New("schema violation")

	// ErrReferential: a join key or tag could not be resolved.
	ErrReferential = errors.New("referential integrity violation")

	// ErrConsistency: two fields of the same row or feed disagree.
	ErrConsistency = errors.New("consistency violation")

	// ErrExternal: an upstream site answered with an unexpected status or payload.
	ErrExternal = errors.New("external service failure")

	// ErrOverlap: a price batch covers dates already in the history.
	ErrOverlap = errors.New("history overlap")

	// ErrUnsupported: the requested operation is not implemented.
	ErrUnsupported = errors.New("unsupported operation")
)

// DataError is a fatal data-integrity failure. Check names the assertion
// that failed; Column and Keys point at the offending data.
type DataError struct {
	Kind   error
	Check  string
	Column string
	Keys   []string
	Detail string
}

func (e *DataError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Check)
	if e.Column != "" {
		fmt.Fprintf(&b, " (column %q)", e.Column)
	}
	if len(e.Keys) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Keys, ", "))
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Unwrap returns the sentinel kind.
func (e *DataError) Unwrap() error {
	return e.Kind
}

// NewDataError creates a DataError. Keys may be empty.
func NewDataError(kind error, check, column, detail string, keys ...string) *DataError {
	return &DataError{
		Kind:   kind,
		Check:  check,
		Column: column,
		Keys:   keys,
		Detail: detail,
	}
}

// SchemaError is shorthand for an ErrSchema DataError.
func SchemaError(check, column, detail string, keys ...string) *DataError {
	return NewDataError(ErrSchema, check, column, detail, keys...)
}

// ReferentialError is shorthand for an ErrReferential DataError.
func ReferentialError(check, column, detail string, keys ...string) *DataError {
	return NewDataError(ErrReferential, check, column, detail, keys...)
}

// ConsistencyError is shorthand for an ErrConsistency DataError.
func ConsistencyError(check, column, detail string, keys ...string) *DataError {
	return NewDataError(ErrConsistency, check, column, detail, keys...)
}

// AsDataError extracts the first *DataError in err's chain.
func AsDataError(err error) (*DataError, bool) {
	var de *DataError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CheckOf returns the failed check name, or "" for errors that are not a DataError.
func CheckOf(err error) string {
	if de, ok := AsDataError(err); ok {
		return de.Check
	}
	return ""
}
