package common

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/document"
)

// ErrInvalidField is returned for arguments that are not name=value pairs.
var ErrInvalidField = errors.New("field must be name=value")

// ParseFields builds a document from name=value arguments. Values follow
// document.ParseValue: quoted text, null, true/false and numbers are typed,
// anything else is a string.
func ParseFields(args []string) (*document.Document, error) {
	doc := document.New()
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidField, arg)
		}
		doc.Set(name, document.ParseValue(raw))
	}
	return doc, nil
}
