package gateway

import (
	"errors"
	"fmt"
)

// ErrUnsupportedWorkload is returned by the routing rule when a
// workload/protocol combination has no remote operation. It is fatal for
// that single operation only and never aborts a bulk batch.
var ErrUnsupportedWorkload = errors.New("unsupported workload/protocol combination")

// SagaAbortedError reports an edit-while-running saga that failed at the
// stop step. The edit was not persisted.
type SagaAbortedError struct {
	ConfigID int64
	Cause    error
}

func (e *SagaAbortedError) Error() string {
	return fmt.Sprintf("edit of configuration %d aborted: could not stop running session: %v", e.ConfigID, e.Cause)
}

func (e *SagaAbortedError) Unwrap() error {
	return e.Cause
}
