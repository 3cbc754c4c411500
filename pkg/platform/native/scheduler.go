// ABOUTME: Segment completion scheduler
// ABOUTME: Fires ended callbacks once the audible clock passes a segment's last frame
package native

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// completion is a pending ended callback
type completion struct {
	end     int64 // frame the segment ends on
	onEnded func()
}

// completionScheduler fires callbacks in end order against the audible clock
type completionScheduler struct {
	clock  func() int64
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	queue *completionQueue
	stats completionStats
}

// completionStats tracks scheduler metrics
type completionStats struct {
	Scheduled int64
	Completed int64
}

func newCompletionScheduler(clock func() int64) *completionScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &completionScheduler{
		clock:  clock,
		ctx:    ctx,
		cancel: cancel,
		queue:  newCompletionQueue(),
	}
}

// add registers onEnded to fire once the clock reaches end
func (s *completionScheduler) add(end int64, onEnded func()) {
	if onEnded == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Scheduled++
	heap.Push(s.queue, completion{end: end, onEnded: onEnded})
}

// Run starts the scheduler loop
func (s *completionScheduler) Run() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.processQueue()
		}
	}
}

// processQueue fires every callback whose segment has been heard
func (s *completionScheduler) processQueue() {
	now := s.clock()

	var due []func()
	s.mu.Lock()
	for s.queue.Len() > 0 && s.queue.Peek().end <= now {
		c := heap.Pop(s.queue).(completion)
		due = append(due, c.onEnded)
		s.stats.Completed++
	}
	s.mu.Unlock()

	for _, fn := range due {
		if s.ctx.Err() != nil {
			return
		}
		fn()
	}
}

// Stats returns scheduler statistics
func (s *completionScheduler) Stats() completionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Stop ends the loop and drops pending callbacks
func (s *completionScheduler) Stop() {
	s.cancel()

	s.mu.Lock()
	s.queue = newCompletionQueue()
	s.mu.Unlock()
}

// completionQueue is a min-heap of completions by end frame
type completionQueue struct {
	items []completion
}

func newCompletionQueue() *completionQueue {
	q := &completionQueue{}
	heap.Init(q)
	return q
}

// Implement heap.Interface
func (q *completionQueue) Len() int { return len(q.items) }

func (q *completionQueue) Less(i, j int) bool {
	return q.items[i].end < q.items[j].end
}

func (q *completionQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *completionQueue) Push(x interface{}) {
	q.items = append(q.items, x.(completion))
}

func (q *completionQueue) Pop() interface{} {
	n := len(q.items)
	item := q.items[n-1]
	q.items = q.items[:n-1]
	return item
}

func (q *completionQueue) Peek() completion {
	return q.items[0]
}
