package buffer

import (
	"errors"
	"fmt"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
)

// ErrFlushFailed matches every *FlushError.
var ErrFlushFailed = errors.New("flush failed")

// FlushError reports a flush that did not clear its batch. Result is set when
// the backend answered but rejected items; Err is set for encoding and
// transport failures.
type FlushError struct {
	Collection string
	Size       int
	Result     *domain.BulkResult
	Err        error
}

func (e *FlushError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("flush %s (%d documents): %v", e.Collection, e.Size, e.Err)
	}
	return fmt.Sprintf("flush %s (%d documents): %d items rejected",
		e.Collection, e.Size, len(e.GetFailures()))
}

// Unwrap exposes ErrFlushFailed and the underlying cause.
func (e *FlushError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFlushFailed, e.Err}
	}
	return []error{ErrFlushFailed}
}

// GetFailures returns the rejected items, if any.
func (e *FlushError) GetFailures() []domain.ItemFailure {
	if e == nil || e.Result == nil {
		return nil
	}
	return e.Result.Failures
}
