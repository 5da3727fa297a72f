// Package schedule delivers messages to registered endpoints at a future time.
package schedule

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"execution/internal/schema"
	"execution/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Deliver hands a fired message to its destination.
type Deliver func(schema.Message) error

// Job is a message waiting for its trigger time.
type Job struct {
	Key         schema.JobKey
	Destination string
	Message     schema.Message
	TriggerAt   time.Time
}

type entry struct {
	job   Job
	timer *time.Timer
	seq   uint64
}

// Scheduler runs one timer per job. A job with the same key replaces the
// previous one.
type Scheduler struct {
	mu        sync.Mutex
	now       func() time.Time
	endpoints map[string]Deliver
	jobs      map[schema.JobKey]*entry
	seq       uint64
	stopped   bool
}

func New(now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		now:       now,
		endpoints: make(map[string]Deliver),
		jobs:      make(map[schema.JobKey]*entry),
	}
}

// Register binds an address to the endpoint receiving its fired messages.
func (s *Scheduler) Register(address string, deliver Deliver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints[address] = deliver
}

// CreateJob schedules msg for delivery to destination at the given time. A
// time in the past fires immediately.
func (s *Scheduler) CreateJob(destination string, msg schema.Message, key schema.JobKey, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return errors.Wrapf(exception.ErrScheduleStopped, "job: %s", key)
	}
	if _, ok := s.endpoints[destination]; !ok {
		return errors.Wrapf(exception.ErrScheduleUnknownAddress, "job: %s, address: %s", key, destination)
	}
	if old, ok := s.jobs[key]; ok {
		old.timer.Stop()
	}

	s.seq++
	seq := s.seq
	delay := at.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	s.jobs[key] = &entry{
		job:   Job{Key: key, Destination: destination, Message: msg, TriggerAt: at},
		timer: time.AfterFunc(delay, func() { s.fire(key, seq) }),
		seq:   seq,
	}
	logs.Debugf("scheduled job %s for %s at %s", key, destination, at.Format(time.RFC3339Nano))
	return nil
}

// RemoveJob cancels a pending job. Unknown keys are ignored.
func (s *Scheduler) RemoveJob(key schema.JobKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.jobs[key]; ok {
		e.timer.Stop()
		delete(s.jobs, key)
		logs.Debugf("removed job %s", key)
	}
}

// Pending returns the jobs not yet fired, ordered by trigger time.
func (s *Scheduler) Pending() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, e := range s.jobs {
		out = append(out, e.job)
	}
	slices.SortFunc(out, func(a, b Job) int {
		if c := a.TriggerAt.Compare(b.TriggerAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}

// Stop cancels every pending job and rejects new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for key, e := range s.jobs {
		e.timer.Stop()
		delete(s.jobs, key)
	}
}

func (s *Scheduler) fire(key schema.JobKey, seq uint64) {
	s.mu.Lock()
	e, ok := s.jobs[key]
	if !ok || e.seq != seq {
		s.mu.Unlock()
		return
	}
	delete(s.jobs, key)
	deliver := s.endpoints[e.job.Destination]
	s.mu.Unlock()

	if err := deliver(e.job.Message); err != nil {
		logs.Errorf("deliver job %s to %s, err: %+v", key, e.job.Destination, err)
	}
}
