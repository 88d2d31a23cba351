package schema

import "fmt"

// Kind classifies why decode<T> failed.
type Kind int

const (
	InvalidType Kind = iota
	InvalidValue
	InvalidLength
	MissingField
)

func (k Kind) String() string {
	switch k {
	case InvalidType:
		return "InvalidType"
	case InvalidValue:
		return "InvalidValue"
	case InvalidLength:
		return "InvalidLength"
	case MissingField:
		return "MissingField"
	default:
		return "UnknownError"
	}
}

// DecodeError is the failure channel for decode<T>. Field is populated only
// for MissingField; Path records the dotted struct path the error occurred
// at (e.g. "address.zip") for nested structs.
type DecodeError struct {
	Kind  Kind
	Field string
	Path  string
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case MissingField:
		if e.Path != "" {
			return fmt.Sprintf("MissingField(%q) at %s", e.Field, e.Path)
		}
		return fmt.Sprintf("MissingField(%q)", e.Field)
	default:
		if e.Path != "" {
			return fmt.Sprintf("%s at %s", e.Kind, e.Path)
		}
		return e.Kind.String()
	}
}

// String renders the error the way §4.3's "Invalid parameters: <ErrorKind>"
// text expects — just the kind, or MissingField("f") for that one case.
func (e *DecodeError) String() string {
	if e.Kind == MissingField {
		return fmt.Sprintf("MissingField(%q)", e.Field)
	}
	return e.Kind.String()
}

func newError(kind Kind, path string) *DecodeError {
	return &DecodeError{Kind: kind, Path: path}
}

func missingField(name, path string) *DecodeError {
	return &DecodeError{Kind: MissingField, Field: name, Path: path}
}
