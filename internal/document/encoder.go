package document

import (
	"errors"
	"fmt"
)

// ErrInvalidKey is returned when a field name cannot be written without escaping.
var ErrInvalidKey = errors.New("invalid document key")

// ErrTrailingData is returned by Decode when the payload continues after the
// first JSON value.
var ErrTrailingData = errors.New("trailing data after document")

// Encoder turns a document into a JSON object payload. Implementations are
// stateless and safe for concurrent use.
type Encoder interface {
	Encode(doc *Document) ([]byte, error)
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(doc *Document) ([]byte, error)

// Encode calls f.
func (f EncoderFunc) Encode(doc *Document) ([]byte, error) { return f(doc) }

// Encoder names.
const (
	SimpleName = "simple"
	JSONName   = "json"
)

// NewEncoder returns the encoder registered under name.
func NewEncoder(name string) (Encoder, error) {
	switch name {
	case SimpleName:
		return SimpleEncoder{}, nil
	case JSONName, "":
		return JSONEncoder{}, nil
	default:
		return nil, fmt.Errorf("unknown encoder %q", name)
	}
}

var emptyObject = []byte("{}")
