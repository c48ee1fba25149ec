package orchestrator

import (
	"fmt"
	"strings"
)

// ItemFailure is one failed item of a bulk operation.
type ItemFailure struct {
	ID   int64
	Name string
	Err  error
}

// BulkReport aggregates the outcome of a bulk start or stop. Partial success
// is still success-with-caveats: the report names every failed item in one
// message instead of surfacing one error per item. Operation is the
// past-tense verb used in the summary ("started", "stopped").
type BulkReport struct {
	Operation string
	Succeeded []int64
	Failures  []ItemFailure
}

// Failed reports whether any item failed.
func (r BulkReport) Failed() bool {
	return len(r.Failures) > 0
}

// Summary renders the single human-readable report for the whole batch.
func (r BulkReport) Summary() string {
	total := len(r.Succeeded) + len(r.Failures)
	if !r.Failed() {
		return fmt.Sprintf("%s %d of %d configurations", r.Operation, len(r.Succeeded), total)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %d of %d configurations; %d failed:", r.Operation, len(r.Succeeded), total, len(r.Failures))
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "\n  - %d (%s): %v", f.ID, f.Name, f.Err)
	}
	return b.String()
}
