package corpus

import (
	"errors"
	"fmt"
)

// Kind classifies corpus failures
type Kind string

const (
	KindMalformedRecord     Kind = "MalformedRecord"
	KindUnresolvedReference Kind = "UnresolvedReference"
	KindEncodingError       Kind = "EncodingError"
	KindUnencodablePair     Kind = "UnencodablePair"
)

// Sentinels for errors.Is matching against a *Error of the same kind
var (
	ErrMalformedRecord     = errors.New("malformed record")
	ErrUnresolvedReference = errors.New("unresolved reference")
	ErrEncoding            = errors.New("encoding error")
	ErrUnencodablePair     = errors.New("unencodable pair")
)

// Error is a structured corpus failure naming where it happened
type Error struct {
	Kind     Kind
	File     string
	Line     int    // 1-based, 0 when unknown
	RecordID string // unresolved or offending record identifier
	Err      error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.File != "" {
		msg += fmt.Sprintf(" in %s", e.File)
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" line %d", e.Line)
	}
	if e.RecordID != "" {
		msg += fmt.Sprintf(" (record %s)", e.RecordID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels
func (e *Error) Is(target error) bool {
	switch target {
	case ErrMalformedRecord:
		return e.Kind == KindMalformedRecord
	case ErrUnresolvedReference:
		return e.Kind == KindUnresolvedReference
	case ErrEncoding:
		return e.Kind == KindEncodingError
	case ErrUnencodablePair:
		return e.Kind == KindUnencodablePair
	}
	return false
}

// KindOf extracts the kind of a corpus error anywhere in the chain
func KindOf(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}
