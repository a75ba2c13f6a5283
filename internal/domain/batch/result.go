// Package batch describes the outcome of writing one ingestion batch.
package batch

// Status is the processing outcome of a batch.
type Status string

// Batch status values.
const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusError   Status = "error"
)

// Failure describes one record that was not written.
// Index is the record position within the whole upload; Path is set for path-resolution failures.
type Failure struct {
	Index   int
	Path    string
	Message string
}

// Result is the outcome of one unordered batch write.
type Result struct {
	offset   int
	size     int
	inserted int
	failures []Failure
	err      error
}

// NewWritten creates the result of a batch the store accepted, possibly with per-record rejections.
func NewWritten(offset, size, inserted int, failures []Failure) Result {
	return Result{offset: offset, size: size, inserted: inserted, failures: failures}
}

// NewError creates the result of a batch that failed as a whole.
func NewError(offset, size int, err error) Result {
	return Result{offset: offset, size: size, err: err}
}

// Offset returns the index of the batch's first record within the upload.
func (r Result) Offset() int { return r.offset }

// Size returns the number of records submitted.
func (r Result) Size() int { return r.size }

// Inserted returns how many records were written.
func (r Result) Inserted() int { return r.inserted }

// Failed returns how many records were not written.
func (r Result) Failed() int { return r.size - r.inserted }

// Failures returns per-record failure details.
func (r Result) Failures() []Failure { return r.failures }

// Err returns the batch-level error, if any.
func (r Result) Err() error { return r.err }

// Status classifies the batch.
func (r Result) Status() Status {
	switch {
	case r.err != nil || (r.inserted == 0 && r.size > 0):
		return StatusError
	case r.inserted < r.size:
		return StatusPartial
	default:
		return StatusOK
	}
}
