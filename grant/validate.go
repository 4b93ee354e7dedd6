package grant

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dhcgn/mailbox-grant/model"
)

// Validate serializes the message and parses the result back, returning the
// bytes that will go on the wire. A failure here means the message shape itself
// is broken, so callers abort the run instead of skipping the row.
func Validate(msg model.Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, &SchemaError{Err: fmt.Errorf("encode message: %w", err)}
	}
	if strings.TrimSpace(msg.AccountID) == "" {
		return nil, &SchemaError{Payload: payload, Err: errors.New("account id is required")}
	}

	var decoded struct {
		AccountIDs []string        `json:"accountIds"`
		Message    json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, &SchemaError{Payload: payload, Err: fmt.Errorf("%w: %v", ErrInvalidPayload, err)}
	}
	if len(decoded.AccountIDs) != 1 || len(decoded.Message) == 0 {
		return nil, &SchemaError{Payload: payload, Err: fmt.Errorf("%w: unexpected envelope", ErrInvalidPayload)}
	}
	var body map[string]any
	if err := json.Unmarshal(decoded.Message, &body); err != nil {
		return nil, &SchemaError{Payload: payload, Err: fmt.Errorf("%w: %v", ErrInvalidPayload, err)}
	}
	return payload, nil
}

// Prepare builds and validates every row, stopping at the first failure.
// Line numbers are assigned in input order starting at 1.
func Prepare(builder *Builder, rows []Row) ([]model.Prepared, error) {
	prepared := make([]model.Prepared, 0, len(rows))
	for i, row := range rows {
		msg, err := builder.Build(row)
		if err != nil {
			return nil, err
		}
		payload, err := Validate(msg)
		if err != nil {
			var schemaErr *SchemaError
			if errors.As(err, &schemaErr) && schemaErr.Line == 0 {
				schemaErr.Line = row.SourceLine
			}
			return nil, err
		}
		prepared = append(prepared, model.Prepared{
			Line:       i + 1,
			SourceLine: row.SourceLine,
			Message:    msg,
			Payload:    payload,
		})
	}
	return prepared, nil
}
