package document

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// SimpleEncoder writes documents field by field without a general serializer.
// Text is quoted with quotes, backslashes and control characters escaped; null
// becomes the empty string "" and text that is not valid UTF-8 is rejected
// with ErrUnsupportedValue. Keys are written verbatim, so keys holding a
// quote, a backslash, a control character or invalid UTF-8 are rejected with ErrInvalidKey.
type SimpleEncoder struct{}

// Encode implements Encoder.
func (SimpleEncoder) Encode(doc *Document) ([]byte, error) {
	if doc.Len() == 0 {
		return emptyObject, nil
	}

	buf := make([]byte, 0, 16*doc.Len())
	buf = append(buf, '{')
	for i, f := range doc.fields {
		if err := checkKey(f.Name); err != nil {
			return nil, err
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '"')
		buf = append(buf, f.Name...)
		buf = append(buf, '"', ':')

		var err error
		if buf, err = appendSimpleValue(buf, f.Value); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return append(buf, '}'), nil
}

func checkKey(name string) error {
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}
	for i := range len(name) {
		if c := name[i]; c == '"' || c == '\\' || c < 0x20 {
			return fmt.Errorf("%w: %q", ErrInvalidKey, name)
		}
	}
	return nil
}

func appendSimpleValue(buf []byte, v Value) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(buf, '"', '"'), nil
	case KindString:
		if !utf8.ValidString(v.s) {
			return nil, fmt.Errorf("%w: invalid UTF-8 text", ErrUnsupportedValue)
		}
		return appendQuoted(buf, v.s), nil
	case KindInt:
		return strconv.AppendInt(buf, v.i, 10), nil
	case KindFloat:
		s, err := formatFloat(v.f)
		if err != nil {
			return nil, err
		}
		return append(buf, s...), nil
	case KindBool:
		return strconv.AppendBool(buf, v.b), nil
	default:
		return nil, fmt.Errorf("%w: kind %s", ErrUnsupportedValue, v.kind)
	}
}

const hexDigits = "0123456789abcdef"

func appendQuoted(buf []byte, s string) []byte {
	buf = append(buf, '"')
	for i := range len(s) {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			buf = append(buf, '\\', c)
		case c == '\n':
			buf = append(buf, '\\', 'n')
		case c == '\r':
			buf = append(buf, '\\', 'r')
		case c == '\t':
			buf = append(buf, '\\', 't')
		case c < 0x20:
			buf = append(buf, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		default:
			buf = append(buf, c)
		}
	}
	return append(buf, '"')
}
