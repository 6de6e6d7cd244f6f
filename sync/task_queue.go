package sync

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/q9f/besu/core/types"
)

// TaskCollection is the pending-request queue the download coordinator
// drains. Implementations must be safe for concurrent use and must
// deduplicate requests that are currently queued; whether a request was
// already persisted or is in flight is the caller's concern.
type TaskCollection interface {
	// Add appends a request unless an equal request is already queued.
	Add(req *NodeDataRequest)
	// Next pops the oldest queued request, or nil when the queue is empty.
	Next() *NodeDataRequest
	// IsEmpty returns whether no requests are queued.
	IsEmpty() bool
	// Len returns the number of queued requests.
	Len() int
	// Clear drops all queued requests.
	Clear()
}

// queueKey identifies a queued request for deduplication.
type queueKey struct {
	kind RequestKind
	hash types.Hash
}

// InMemoryTaskQueue is a FIFO TaskCollection with queued-entry
// deduplication. A request drained from the queue may be added again
// later; only concurrently queued duplicates are dropped.
type InMemoryTaskQueue struct {
	mu     sync.Mutex
	tasks  []*NodeDataRequest
	queued mapset.Set[queueKey]
}

// NewInMemoryTaskQueue creates an empty task queue.
func NewInMemoryTaskQueue() *InMemoryTaskQueue {
	return &InMemoryTaskQueue{
		queued: mapset.NewThreadUnsafeSet[queueKey](),
	}
}

// Add appends the request unless an equal one is already queued.
func (q *InMemoryTaskQueue) Add(req *NodeDataRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := queueKey{kind: req.Kind(), hash: req.Hash()}
	if !q.queued.Add(key) {
		return
	}
	q.tasks = append(q.tasks, req)
}

// Next pops the oldest queued request, or nil when the queue is empty.
func (q *InMemoryTaskQueue) Next() *NodeDataRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil
	}
	req := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	q.queued.Remove(queueKey{kind: req.Kind(), hash: req.Hash()})
	return req
}

// IsEmpty returns whether no requests are queued.
func (q *InMemoryTaskQueue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks) == 0
}

// Len returns the number of queued requests.
func (q *InMemoryTaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Clear drops all queued requests.
func (q *InMemoryTaskQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = nil
	q.queued.Clear()
}
