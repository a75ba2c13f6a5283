package ingest

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/fedsearch/internal/domain"
	"github.com/kailas-cloud/fedsearch/internal/domain/batch"
	doming "github.com/kailas-cloud/fedsearch/internal/domain/ingest"
)

// job guards one Progress record. The ingesting goroutine and its batch
// writers mutate it; subscribers only take snapshots.
type job struct {
	mu       sync.Mutex
	progress *doming.Progress
	now      func() time.Time
	done     chan struct{}
	doneOnce sync.Once
}

func (j *job) id() string { return j.progress.JobID() }

func (j *job) snapshot() doming.Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress.Snapshot(j.now())
}

func (j *job) terminal() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress.State().Terminal()
}

func (j *job) start(total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.progress.Start(total)
}

func (j *job) advance(processed int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.progress.Advance(processed)
}

func (j *job) record(r batch.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.progress.Record(r)
}

func (j *job) reject(failures ...batch.Failure) {
	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.progress.Reject(failures...)
}

// finish moves the job to its terminal state and wakes subscribers.
// Later calls leave the first outcome in place.
func (j *job) finish(err error) doming.Snapshot {
	j.mu.Lock()
	now := j.now()
	if err != nil {
		_ = j.progress.Fail(err, now)
	} else if j.progress.Complete(now) != nil {
		// never started: a job with nothing to read still completes
		_ = j.progress.Start(0)
		_ = j.progress.Complete(now)
	}
	snap := j.progress.Snapshot(now)
	j.mu.Unlock()

	j.doneOnce.Do(func() { close(j.done) })
	return snap
}

// registry holds the current job per collection name.
type registry struct {
	mu   sync.Mutex
	jobs map[string]*job
	now  func() time.Time
}

func newRegistry(now func() time.Time) *registry {
	return &registry{jobs: make(map[string]*job), now: now}
}

// begin registers a pending job. A finished job for the same collection is
// replaced; an unfinished one rejects the new upload.
func (r *registry) begin(collection string, format doming.Format) (*job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.jobs[collection]; ok && !cur.terminal() {
		return nil, domain.ErrJobInProgress
	}
	j := &job{
		progress: doming.NewProgress(uuid.NewString(), collection, format, r.now()),
		now:      r.now,
		done:     make(chan struct{}),
	}
	r.jobs[collection] = j
	return j, nil
}

func (r *registry) get(collection string) (*job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[collection]
	return j, ok
}

// evict drops j unless a newer job has taken its slot.
func (r *registry) evict(collection string, j *job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.jobs[collection] == j {
		delete(r.jobs, collection)
	}
}
