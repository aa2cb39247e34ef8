package ploom

import "context"

// Observer receives a session snapshot after every state transition and
// after every individual tool execution. Snapshots arrive in strict
// chronological order relative to state changes, so a sink that processes
// them in arrival order never observes a state regression. Implementations
// must not block; use NewQueueObserver to decouple a slow sink.
type Observer func(ctx context.Context, snapshot *PlanSession)

// QueueObserver decouples a slow sink from the engine with a buffered
// queue. When the buffer is full, the oldest snapshots are already in
// flight and the newest one is dropped rather than stalling a tool pass.
type QueueObserver struct {
	ch   chan *PlanSession
	done chan struct{}
}

const defaultQueueSize = 64

// NewQueueObserver starts a queue draining into sink. Call Close to flush
// remaining snapshots and stop the drain goroutine.
func NewQueueObserver(sink func(*PlanSession)) *QueueObserver {
	q := &QueueObserver{
		ch:   make(chan *PlanSession, defaultQueueSize),
		done: make(chan struct{}),
	}
	go func() {
		defer close(q.done)
		for snapshot := range q.ch {
			sink(snapshot)
		}
	}()
	return q
}

// Observer returns the non-blocking publish function to register with
// WithObserver.
func (q *QueueObserver) Observer() Observer {
	return func(ctx context.Context, snapshot *PlanSession) {
		select {
		case q.ch <- snapshot:
		default:
			// Queue full: drop rather than block the engine.
		}
	}
}

// Close flushes queued snapshots and waits for the sink to finish.
func (q *QueueObserver) Close() {
	close(q.ch)
	<-q.done
}
