package extract

import "fmt"

// MalformedResponseError is returned when the model output is not decodable
// JSON even after repair. Raw holds the untouched model output.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return "extract: malformed model response: " + e.Err.Error()
	}
	return "extract: malformed model response"
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// SchemaError is returned when the decoded response does not have the
// expected shape or values.
type SchemaError struct {
	Field  string // "" for whole-document problems
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return "extract: invalid response schema: " + e.Reason
	}
	return fmt.Sprintf("extract: invalid response field %q: %s", e.Field, e.Reason)
}
