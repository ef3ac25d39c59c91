package pipeline

import (
	"container/heap"
	"sync"
)

// queuedJob is one queue entry. seq breaks ties so equal-priority jobs
// dispatch strictly first-in first-out.
type queuedJob struct {
	requestID string
	priority  int
	seq       uint64
}

type jobHeap []*queuedJob

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x interface{}) { *h = append(*h, x.(*queuedJob)) }

func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// queue is the blocking priority queue one chain's workers drain
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	heap   jobHeap
	seq    uint64
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) push(requestID string, priority int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.seq++
	heap.Push(&q.heap, &queuedJob{requestID: requestID, priority: priority, seq: q.seq})
	q.cond.Signal()
}

// pop blocks until an entry is available or the queue is closed
func (q *queue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.heap) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.heap) == 0 {
		return "", false
	}
	item := heap.Pop(&q.heap).(*queuedJob)
	return item.requestID, true
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

func (q *queue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}
