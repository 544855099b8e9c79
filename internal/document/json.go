package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
)

// JSONEncoder writes documents with goccy/go-json, keeping field order. Null is
// written as JSON null and any key is accepted.
type JSONEncoder struct{}

// Encode implements Encoder.
func (JSONEncoder) Encode(doc *Document) ([]byte, error) {
	if doc.Len() == 0 {
		return emptyObject, nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range doc.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidKey, f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := writeJSONValue(&buf, f.Value); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONValue(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		s, err := formatFloat(v.f)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	default:
		return fmt.Errorf("%w: kind %s", ErrUnsupportedValue, v.kind)
	}
	return nil
}

// Decode parses a JSON object payload. Fields come back ordered by name;
// numbers with a fraction or exponent become floats, other numbers ints.
// Nested objects and arrays yield ErrUnsupportedValue. The payload must hold
// exactly one value.
func Decode(payload []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	return FromMap(m)
}
