package access

import (
	"context"
	"sync"
	"sync/atomic"
)

// roleChangeEvent reports whether eventType records a mutation of the role
// catalogue. Role changes are never dropped; only per-request decisions
// (token and permission checks) are subject to DropIfFull.
func roleChangeEvent(eventType string) bool {
	switch eventType {
	case auditEventRoleUpdated, auditEventRoleRejected, auditEventRoleDeleted:
		return true
	default:
		return false
	}
}

// auditDispatcher moves audit events off the request path onto a single
// delivery goroutine.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool

	mu     sync.RWMutex // guards closed and sends on queue
	closed bool
	queue  chan AuditEvent
	idle   chan struct{}

	droppedDecisions atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, size),
		idle:       make(chan struct{}),
	}
	go d.deliver()
	return d
}

func (d *auditDispatcher) deliver() {
	defer close(d.idle)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit queues event. Decision events are dropped when the queue is full and
// DropIfFull is set; role changes wait for room until ctx is done.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull && !roleChangeEvent(event.EventType) {
		select {
		case d.queue <- event:
		default:
			d.droppedDecisions.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		if !roleChangeEvent(event.EventType) {
			d.droppedDecisions.Add(1)
		}
	}
}

// Close rejects further events, then waits until everything already queued
// has reached the sink. It is safe to call more than once.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.idle
}

// Dropped returns how many decision events were discarded.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.droppedDecisions.Load()
}
