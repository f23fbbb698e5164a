// Package queue runs detail scrapes one (or a few) at a time.
//
// Jobs are FIFO, keyed for dedupe by matches.JobKey, and separated by a
// fixed cooldown. A job that fails or panics is logged and forgotten; it
// never holds up the jobs behind it.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sw33tLie/matchfeed/pkg/matches"
)

const (
	DefaultConcurrency = 1
	DefaultCooldown    = 2 * time.Second
	DefaultPreviewSize = 10
)

// Logger abstracts logging so callers can use logrus or anything with the
// same four methods.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

type Status string

const (
	StatusQueued Status = "queued"
	StatusActive Status = "active"
)

// Task is one unit of work. Its error is logged, never returned to the
// caller of Enqueue.
type Task func(ctx context.Context) error

type Metadata struct {
	// DedupeKey must come from matches.DetailJobKey. Empty means no dedupe.
	DedupeKey matches.JobKey
	// Label is a human readable description for logs and snapshots.
	Label string
}

// Handle is what Enqueue hands back to the caller.
type Handle struct {
	TaskID        string `json:"taskId"`
	QueuePosition int    `json:"queuePosition"`
	AlreadyQueued bool   `json:"alreadyQueued"`
	Status        Status `json:"status"`
}

type Options struct {
	Concurrency int           // defaults to 1 if <= 0
	Cooldown    time.Duration // negative means none, zero means DefaultCooldown
	PreviewSize int           // upcoming jobs shown in Snapshot
	Log         Logger        // optional; nil = no logging
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Cooldown < 0 {
		o.Cooldown = 0
	} else if o.Cooldown == 0 {
		o.Cooldown = DefaultCooldown
	}
	if o.PreviewSize <= 0 {
		o.PreviewSize = DefaultPreviewSize
	}
	if o.Log == nil {
		o.Log = nopLogger{}
	}
	return o
}

type job struct {
	id         string
	meta       Metadata
	task       Task
	status     Status
	enqueuedAt time.Time
	startedAt  time.Time
}

// Queue is safe for concurrent use.
type Queue struct {
	opts Options
	log  Logger
	now  func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending []*job
	active  []*job
	byKey   map[matches.JobKey]*job
	// slots counts workers that are running a job or cooling down after one.
	slots     int
	closed    bool
	completed int
	failed    int
	idle      []chan struct{}
}

func New(opts Options) *Queue {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		opts:   opts,
		log:    opts.Log,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		byKey:  make(map[matches.JobKey]*job),
	}
}

// Enqueue schedules task unless a job with the same dedupe key is already
// pending or running, in which case that job's handle comes back with
// AlreadyQueued set.
func (q *Queue) Enqueue(task Task, meta Metadata) (Handle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return Handle{}, fmt.Errorf("queue is closed")
	}
	if meta.DedupeKey != "" {
		if existing, ok := q.byKey[meta.DedupeKey]; ok {
			h := q.handleLocked(existing)
			h.AlreadyQueued = true
			q.log.Debugf("queue: %s already %s as %s", meta.DedupeKey, existing.status, existing.id)
			return h, nil
		}
	}

	j := &job{
		id:         uuid.NewString(),
		meta:       meta,
		task:       task,
		status:     StatusQueued,
		enqueuedAt: q.now(),
	}
	q.pending = append(q.pending, j)
	if meta.DedupeKey != "" {
		q.byKey[meta.DedupeKey] = j
	}
	q.dispatchLocked()
	return q.handleLocked(j), nil
}

// handleLocked computes the live position of j: 1 while it runs, otherwise
// the number of running jobs plus its place in line.
func (q *Queue) handleLocked(j *job) Handle {
	h := Handle{TaskID: j.id, Status: j.status}
	if j.status == StatusActive {
		h.QueuePosition = 1
		return h
	}
	for i, p := range q.pending {
		if p == j {
			h.QueuePosition = len(q.active) + i + 1
			break
		}
	}
	return h
}

func (q *Queue) dispatchLocked() {
	for !q.closed && q.slots < q.opts.Concurrency && len(q.pending) > 0 {
		j := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		j.status = StatusActive
		j.startedAt = q.now()
		q.active = append(q.active, j)
		q.slots++
		go q.work(j)
	}
	q.notifyIdleLocked()
}

func (q *Queue) work(j *job) {
	err := q.run(j)
	took := q.now().Sub(j.startedAt)

	q.mu.Lock()
	q.removeActiveLocked(j)
	if j.meta.DedupeKey != "" && q.byKey[j.meta.DedupeKey] == j {
		delete(q.byKey, j.meta.DedupeKey)
	}
	if err != nil {
		q.failed++
	} else {
		q.completed++
	}
	q.mu.Unlock()

	if err != nil {
		q.log.Errorf("queue: job %s (%s) failed after %s: %v", j.id, j.describe(), took.Round(time.Millisecond), err)
	} else {
		q.log.Infof("queue: job %s (%s) done in %s", j.id, j.describe(), took.Round(time.Millisecond))
	}

	// The slot stays taken through the cooldown.
	if q.opts.Cooldown > 0 {
		t := time.NewTimer(q.opts.Cooldown)
		select {
		case <-t.C:
		case <-q.ctx.Done():
			t.Stop()
		}
	}

	q.mu.Lock()
	q.slots--
	q.dispatchLocked()
	q.mu.Unlock()
}

func (q *Queue) run(j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	q.log.Debugf("queue: starting job %s (%s)", j.id, j.describe())
	return j.task(q.ctx)
}

func (q *Queue) removeActiveLocked(j *job) {
	for i, a := range q.active {
		if a == j {
			q.active = append(q.active[:i], q.active[i+1:]...)
			return
		}
	}
}

func (q *Queue) notifyIdleLocked() {
	if q.slots > 0 || (len(q.pending) > 0 && !q.closed) {
		return
	}
	for _, ch := range q.idle {
		close(ch)
	}
	q.idle = nil
}

// Wait blocks until nothing is pending, running or cooling down.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	if q.slots == 0 && (len(q.pending) == 0 || q.closed) {
		q.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	q.idle = append(q.idle, ch)
	q.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops dispatching, drops pending jobs and cuts any cooldown short.
// Jobs already running see their context cancelled.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for _, j := range q.pending {
		if j.meta.DedupeKey != "" {
			delete(q.byKey, j.meta.DedupeKey)
		}
	}
	dropped := len(q.pending)
	q.pending = nil
	q.notifyIdleLocked()
	q.mu.Unlock()

	if dropped > 0 {
		q.log.Warnf("queue: closed with %d pending jobs dropped", dropped)
	}
	q.cancel()
}

func (j *job) describe() string {
	if j.meta.Label != "" {
		return j.meta.Label
	}
	if j.meta.DedupeKey != "" {
		return string(j.meta.DedupeKey)
	}
	return "unlabelled"
}
