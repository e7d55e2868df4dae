package claims

import (
	"errors"
	"fmt"
)

// Set of error variables for the conversion.
var (
	ErrMalformed     = errors.New("malformed csv")
	ErrMissingColumn = errors.New("missing required column")
)

// RowError represents a value in the input that could not be converted.
type RowError struct {
	Line   int
	Column string
	Err    error
}

// Error implements the error interface.
func (re *RowError) Error() string {
	return fmt.Sprintf("line %d, column %s: %s", re.Line, re.Column, re.Err)
}

// Unwrap provides access to the underlying parse error.
func (re *RowError) Unwrap() error {
	return re.Err
}
