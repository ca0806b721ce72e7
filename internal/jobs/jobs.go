// Package jobs tracks anonymization jobs in memory so API clients can
// poll progress and fetch results.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an anonymization job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Progress tracks completed pages. CurrentPage counts pages finished, not
// page positions, so it is monotonic under concurrent workers.
type Progress struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

// Job is the state of a single document anonymization. It holds a mutex,
// so it is never marshaled directly; serialization goes through Snapshot.
type Job struct {
	mu sync.Mutex

	ID       string
	Filename string

	Status   Status
	Progress Progress
	Error    string

	Redactions  int
	FailedPages []int

	CreatedAt time.Time
	UpdatedAt time.Time

	result []byte
}

// Snapshot is a JSON-safe copy of the job state.
type Snapshot struct {
	ID          string   `json:"job_id"`
	Filename    string   `json:"filename"`
	Status      Status   `json:"status"`
	Progress    Progress `json:"progress"`
	Error       string   `json:"error,omitempty"`
	Redactions  int      `json:"redactions"`
	FailedPages []int    `json:"failed_pages,omitempty"`
}

// Start marks the job running and resets progress for the page count.
func (j *Job) Start(totalPages int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusProcessing
	j.Progress = Progress{CurrentPage: 0, TotalPages: totalPages}
	j.UpdatedAt = time.Now()
}

// SetProgress records completed page count.
func (j *Job) SetProgress(completed, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.CurrentPage = completed
	j.Progress.TotalPages = total
	j.UpdatedAt = time.Now()
}

// Complete stores the output document and marks the job done.
func (j *Job) Complete(result []byte, redactions int, failedPages []int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusCompleted
	j.result = result
	j.Redactions = redactions
	j.FailedPages = failedPages
	j.UpdatedAt = time.Now()
}

// Fail marks the job failed with a client-safe message.
func (j *Job) Fail(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusFailed
	j.Error = msg
	j.UpdatedAt = time.Now()
}

// Result returns the output document, or nil before completion.
func (j *Job) Result() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Snapshot returns a copy safe to serialize without holding the lock.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	failed := make([]int, len(j.FailedPages))
	copy(failed, j.FailedPages)
	return Snapshot{
		ID:          j.ID,
		Filename:    j.Filename,
		Status:      j.Status,
		Progress:    j.Progress,
		Error:       j.Error,
		Redactions:  j.Redactions,
		FailedPages: failed,
	}
}

// Store is a thread-safe in-memory job registry with TTL eviction.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

// NewStore creates a store. Jobs untouched for ttl are evicted by Cleanup.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

// Create registers a new pending job.
func (s *Store) Create(filename string) *Job {
	now := time.Now()
	job := &Job{
		ID:        uuid.New().String(),
		Filename:  filename,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return job
}

// Get returns the job or nil.
func (s *Store) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup evicts jobs whose last update is older than the TTL.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		stale := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if stale {
			delete(s.jobs, id)
		}
	}
}

// RunCleanup evicts stale jobs on the given interval until the channel
// closes.
func (s *Store) RunCleanup(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}
