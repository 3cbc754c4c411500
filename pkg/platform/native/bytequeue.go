// ABOUTME: Blocking queue of compressed bytes
// ABOUTME: io.Reader for the streaming decoder with seal and drain signals
package native

import (
	"errors"
	"io"
	"sync"
)

var errQueueClosed = errors.New("byte queue closed")

// byteQueue buffers appended bytes for a decoder reading on another
// goroutine. Reads block until data arrives, and return io.EOF once the
// queue is sealed and empty or closed.
type byteQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	data    []byte
	pending bool // the last write has not been fully read yet
	sealed  bool
	closed  bool

	// onDrain runs on the reading goroutine when a write has been fully consumed
	onDrain func()
}

func newByteQueue(onDrain func()) *byteQueue {
	q := &byteQueue{onDrain: onDrain}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Write appends p and reopens a sealed queue
func (q *byteQueue) Write(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, errQueueClosed
	}

	q.data = append(q.data, p...)
	q.pending = true
	q.sealed = false
	q.cond.Broadcast()
	return len(p), nil
}

// Read copies queued bytes into p, waiting while the queue is open and empty
func (q *byteQueue) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	q.mu.Lock()
	for len(q.data) == 0 && !q.sealed && !q.closed {
		q.cond.Wait()
	}

	if q.closed || len(q.data) == 0 {
		q.mu.Unlock()
		return 0, io.EOF
	}

	n := copy(p, q.data)
	q.data = q.data[n:]
	drained := false
	if len(q.data) == 0 {
		q.data = nil
		drained = q.pending
		q.pending = false
	}
	q.mu.Unlock()

	if drained && q.onDrain != nil {
		q.onDrain()
	}
	return n, nil
}

// Seal lets readers hit io.EOF once the remaining bytes are read
func (q *byteQueue) Seal() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.sealed = true
	q.cond.Broadcast()
}

// waitReopen blocks while the queue is sealed and empty. It returns false
// once the queue is closed.
func (q *byteQueue) waitReopen() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.sealed && len(q.data) == 0 && !q.closed {
		q.cond.Wait()
	}
	return !q.closed
}

// Reset drops unread bytes
func (q *byteQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.data = nil
	q.pending = false
	q.cond.Broadcast()
}

// Len returns the number of unread bytes
func (q *byteQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

// Close wakes every reader with io.EOF and rejects further writes
func (q *byteQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.data = nil
	q.cond.Broadcast()
}
