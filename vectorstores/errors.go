package vectorstores

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotFound           = errors.New("record not found")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// BackendError is any non-2xx engine response that does not map to a more
// specific error. The original backend message is preserved as context.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// BulkItemError is a single failed action within a bulk write.
type BulkItemError struct {
	ID     string
	Reason string
}

// BulkWriteError aggregates every failed item of a bulk write. Records that
// succeeded in the same request may have been persisted; the call as a whole
// is still reported as failed.
type BulkWriteError struct {
	Items []BulkItemError
}

func (e *BulkWriteError) Error() string {
	parts := make([]string, len(e.Items))
	for i, item := range e.Items {
		parts[i] = fmt.Sprintf("id=%s: %s", item.ID, item.Reason)
	}
	return fmt.Sprintf("bulk write failed for %d record(s): %s", len(e.Items), strings.Join(parts, "; "))
}
