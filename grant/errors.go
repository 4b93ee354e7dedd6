package grant

import (
	"errors"
	"fmt"
)

// ErrInvalidPayload marks a payload that did not survive the serialize/parse round trip.
var ErrInvalidPayload = errors.New("payload is not valid JSON")

// SchemaError reports input whose shape the dispatcher cannot understand. It is
// fatal for the whole run: nothing is sent once one is raised.
type SchemaError struct {
	// Line is the CSV line the problem was found on (1 is the header).
	Line     int
	Column   int
	Expected string
	Got      string
	// Payload holds the offending serialized message, when one was built.
	Payload []byte
	Err     error
}

func (e *SchemaError) Error() string {
	where := fmt.Sprintf("line %d", e.Line)
	if e.Column > 0 {
		where += fmt.Sprintf(" column %d", e.Column)
	}
	switch {
	case e.Expected != "":
		return fmt.Sprintf("%s: expected %q, got %q", where, e.Expected, e.Got)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", where, e.Err)
	default:
		return where + ": invalid grant data"
	}
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}
