package queue

import "time"

// JobInfo describes a job in a Snapshot.
type JobInfo struct {
	TaskID     string     `json:"taskId"`
	DedupeKey  string     `json:"dedupeKey,omitempty"`
	Label      string     `json:"label,omitempty"`
	Status     Status     `json:"status"`
	Position   int        `json:"queuePosition"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
}

// Snapshot is a point-in-time view of the queue, for observability only.
type Snapshot struct {
	Concurrency int           `json:"concurrency"`
	Cooldown    time.Duration `json:"cooldownNs"`
	Active      int           `json:"active"`
	Queued      int           `json:"queued"`
	Completed   int           `json:"completed"`
	Failed      int           `json:"failed"`
	Running     []JobInfo     `json:"running"`
	Upcoming    []JobInfo     `json:"upcoming"`
}

func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Snapshot{
		Concurrency: q.opts.Concurrency,
		Cooldown:    q.opts.Cooldown,
		Active:      len(q.active),
		Queued:      len(q.pending),
		Completed:   q.completed,
		Failed:      q.failed,
		Running:     make([]JobInfo, 0, len(q.active)),
		Upcoming:    []JobInfo{},
	}
	for _, j := range q.active {
		s.Running = append(s.Running, q.infoLocked(j))
	}
	for i, j := range q.pending {
		if i >= q.opts.PreviewSize {
			break
		}
		s.Upcoming = append(s.Upcoming, q.infoLocked(j))
	}
	return s
}

func (q *Queue) infoLocked(j *job) JobInfo {
	info := JobInfo{
		TaskID:     j.id,
		DedupeKey:  string(j.meta.DedupeKey),
		Label:      j.meta.Label,
		Status:     j.status,
		Position:   q.handleLocked(j).QueuePosition,
		EnqueuedAt: j.enqueuedAt,
	}
	if !j.startedAt.IsZero() {
		started := j.startedAt
		info.StartedAt = &started
	}
	return info
}
