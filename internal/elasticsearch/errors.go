package elasticsearch

import (
	"errors"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"
)

var (
	// ErrIndexNotFound is returned when the target index does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrDocumentNotFound is returned when the target document does not exist.
	ErrDocumentNotFound = errors.New("document not found")
)

const (
	typeIndexNotFound = "index_not_found_exception"
	typeAlreadyExists = "resource_already_exists_exception"
)

// ResponseError is a non-2xx answer from Elasticsearch.
type ResponseError struct {
	Status int
	Type   string
	Reason string
	Body   string
}

func (e *ResponseError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("elasticsearch [%d] %s: %s", e.Status, e.Type, e.Reason)
	}
	return fmt.Sprintf("elasticsearch [%d]: %s", e.Status, e.Body)
}

// Is lets errors.Is match ErrIndexNotFound for index_not_found_exception.
func (e *ResponseError) Is(target error) bool {
	return target == ErrIndexNotFound && e.Type == typeIndexNotFound
}

type errorEnvelope struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

func responseError(res *esapi.Response) *ResponseError {
	rerr := &ResponseError{Status: res.StatusCode}
	if res.Body == nil {
		return rerr
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		rerr.Body = fmt.Sprintf("read response body: %v", err)
		return rerr
	}
	rerr.Body = string(body)

	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil {
		rerr.Type = env.Error.Type
		rerr.Reason = env.Error.Reason
	}
	return rerr
}
