package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

// Queue keeps attendance events in append order. It is not durable across
// restarts and exists for development and tests.
type Queue struct {
	mu     sync.Mutex
	events []*domain.AttendanceEvent
	index  map[uuid.UUID]int
	now    func() time.Time
}

func NewQueue() *Queue {
	return &Queue{
		index: make(map[uuid.UUID]int),
		now:   time.Now,
	}
}

// Append stores a copy of event with its current Delivered flag
func (q *Queue) Append(ctx context.Context, event *domain.AttendanceEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.index[event.ID]; ok {
		return nil
	}
	q.index[event.ID] = len(q.events)
	q.events = append(q.events, cloneEvent(event))
	return nil
}

// ListUndelivered returns pending events, oldest first
func (q *Queue) ListUndelivered(ctx context.Context) ([]*domain.AttendanceEvent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*domain.AttendanceEvent
	for _, e := range q.events {
		if !e.Delivered {
			out = append(out, cloneEvent(e))
		}
	}
	return out, nil
}

// MarkDelivered flips an event to delivered. Repeated calls are no-ops.
func (q *Queue) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i, ok := q.index[id]
	if !ok {
		return domain.ErrAttendanceNotFound
	}
	e := q.events[i]
	if !e.Delivered {
		at := q.now().UTC()
		e.Delivered = true
		e.DeliveredAt = &at
	}
	return nil
}

// ListAll returns up to limit events, newest first. limit <= 0 means all.
func (q *Queue) ListAll(ctx context.Context, limit int) ([]*domain.AttendanceEvent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*domain.AttendanceEvent, 0, len(q.events))
	for i := len(q.events) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, cloneEvent(q.events[i]))
	}
	return out, nil
}

func (q *Queue) CountUndelivered(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var n int64
	for _, e := range q.events {
		if !e.Delivered {
			n++
		}
	}
	return n, nil
}

func cloneEvent(e *domain.AttendanceEvent) *domain.AttendanceEvent {
	c := *e
	c.EvidenceImage = append([]byte(nil), e.EvidenceImage...)
	if e.DeliveredAt != nil {
		at := *e.DeliveredAt
		c.DeliveredAt = &at
	}
	return &c
}
