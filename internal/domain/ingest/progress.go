package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/fedsearch/internal/domain/batch"
)

// State is the lifecycle position of an ingestion job.
//
//	pending -> running -> completed
//	pending | running -> failed
type State string

// Job states.
const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool { return s == StateCompleted || s == StateFailed }

// ErrTerminal signals a mutation of a finished job.
var ErrTerminal = errors.New("job already finished")

// Progress is the mutable record of one ingestion job. It is not safe for
// concurrent use; the job registry serializes access.
type Progress struct {
	jobID      string
	collection string
	format     Format
	state      State
	total      int
	processed  int
	inserted   int
	failed     int
	samples    []batch.Failure
	errMsg     string
	startedAt  time.Time
	finishedAt time.Time
}

// NewProgress creates a pending job record.
func NewProgress(jobID, collection string, format Format, now time.Time) *Progress {
	return &Progress{
		jobID:      jobID,
		collection: collection,
		format:     format,
		state:      StatePending,
		startedAt:  now,
	}
}

// JobID returns the job identifier.
func (p *Progress) JobID() string { return p.jobID }

// State returns the lifecycle state.
func (p *Progress) State() State { return p.state }

// Start moves a pending job to running with the expected record total.
func (p *Progress) Start(total int) error {
	if p.state != StatePending {
		return p.transitionErr(StateRunning)
	}
	if total < 0 {
		total = 0
	}
	p.total = total
	p.state = StateRunning
	return nil
}

// Advance sets the number of records read so far. It never moves backwards.
func (p *Progress) Advance(processed int) error {
	if p.state != StateRunning {
		return p.transitionErr(StateRunning)
	}
	if processed > p.processed {
		p.processed = processed
	}
	return nil
}

// Record accumulates the outcome of a batch write.
func (p *Progress) Record(r batch.Result) error {
	if p.state.Terminal() {
		return ErrTerminal
	}
	p.inserted += r.Inserted()
	p.failed += r.Failed()
	switch {
	case r.Err() != nil:
		p.sample(batch.Failure{Index: r.Offset(), Message: fmt.Sprintf("batch of %d failed: %v", r.Size(), r.Err())})
	default:
		for _, f := range r.Failures() {
			p.sample(f)
		}
	}
	return nil
}

// Reject counts records that never reached the store.
func (p *Progress) Reject(failures ...batch.Failure) error {
	if p.state.Terminal() {
		return ErrTerminal
	}
	p.failed += len(failures)
	for _, f := range failures {
		p.sample(f)
	}
	return nil
}

func (p *Progress) sample(f batch.Failure) {
	if len(p.samples) < MaxFailureSamples {
		p.samples = append(p.samples, f)
	}
}

// Complete finishes a running job. The processed count becomes the final total.
func (p *Progress) Complete(now time.Time) error {
	if p.state != StateRunning {
		return p.transitionErr(StateCompleted)
	}
	p.total = p.processed
	p.state = StateCompleted
	p.finishedAt = now
	return nil
}

// Fail finishes a job with an error from any non-terminal state.
func (p *Progress) Fail(err error, now time.Time) error {
	if p.state.Terminal() {
		return ErrTerminal
	}
	p.errMsg = err.Error()
	p.state = StateFailed
	p.finishedAt = now
	return nil
}

func (p *Progress) transitionErr(to State) error {
	if p.state.Terminal() {
		return ErrTerminal
	}
	return fmt.Errorf("invalid transition %s -> %s", p.state, to)
}

// Snapshot is an immutable view of a job for progress subscribers.
type Snapshot struct {
	JobID           string
	Collection      string
	Format          Format
	State           State
	TotalUnits      int
	ProcessedUnits  int
	ProgressPercent int
	Done            bool
	ElapsedMs       int64
	TotalInserted   int
	TotalFailed     int
	Error           string
	FailedSamples   []batch.Failure
}

// Snapshot computes the view at now. Once the job is terminal the elapsed
// time is frozen, so repeated snapshots are identical.
func (p *Progress) Snapshot(now time.Time) Snapshot {
	end := now
	if p.state.Terminal() {
		end = p.finishedAt
	}

	s := Snapshot{
		JobID:           p.jobID,
		Collection:      p.collection,
		Format:          p.format,
		State:           p.state,
		TotalUnits:      p.total,
		ProcessedUnits:  p.processed,
		ProgressPercent: Percent(p.processed, p.total),
		Done:            p.state.Terminal(),
		ElapsedMs:       end.Sub(p.startedAt).Milliseconds(),
		TotalInserted:   p.inserted,
		TotalFailed:     p.failed,
		Error:           p.errMsg,
	}
	if p.state == StateCompleted && p.total == 0 {
		s.ProgressPercent = 100
	}
	if len(p.samples) > 0 {
		s.FailedSamples = append([]batch.Failure(nil), p.samples...)
	}
	return s
}

// Percent is floor(processed*100/total) capped at 100.
func Percent(processed, total int) int {
	if total <= 0 || processed <= 0 {
		return 0
	}
	pct := int(int64(processed) * 100 / int64(total))
	if pct > 100 {
		return 100
	}
	return pct
}
