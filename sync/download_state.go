// download_state.go implements WorldDownloadState, the coordination state
// machine for one world state download: it owns the pending-request queue,
// tracks in-flight fetch tasks, detects completion and stalls, and tears
// everything down on cancellation.
package sync

import (
	"fmt"
	"sync"

	"github.com/q9f/besu/core/rawdb"
	"github.com/q9f/besu/core/types"
	"github.com/q9f/besu/log"
)

// Task is a handle to an in-flight asynchronous fetch. Cancel is a
// best-effort, idempotent request to stop the work; the task removes
// itself from the coordinator when it finishes naturally.
type Task interface {
	Cancel()
}

// DownloadProcess is the handle to the pipeline driving requests from the
// queue. Abort is idempotent and releases the pipeline's resources.
type DownloadProcess interface {
	Abort()
}

// WorldDownloadState is the single authority for the lifecycle of one
// world state download. All methods are safe for concurrent use and none
// of them block; the DownloadFuture is the only legitimate point of
// suspension for observers.
type WorldDownloadState struct {
	mu sync.Mutex

	pendingRequests            TaskCollection
	maxRequestsWithoutProgress int
	requestsSinceLastProgress  int

	// inFlightBatches counts batches drained from the queue but not yet
	// fully processed. Requests inside such a batch are invisible to the
	// queue, so completion must wait for the count to reach zero.
	inFlightBatches int

	downloading  bool
	rootNodeData []byte

	outstanding map[Task]struct{}
	process     DownloadProcess

	future *DownloadFuture

	// taskAvailable wakes the dispatch loop when requests are enqueued.
	taskAvailable chan struct{}

	lgr *log.Logger
}

// NewWorldDownloadState creates the coordinator for one download over the
// given pending-request queue. The download counts as active from creation
// until the future reaches a terminal state.
func NewWorldDownloadState(pending TaskCollection, maxRequestsWithoutProgress int) *WorldDownloadState {
	s := &WorldDownloadState{
		pendingRequests:            pending,
		maxRequestsWithoutProgress: maxRequestsWithoutProgress,
		downloading:                true,
		outstanding:                make(map[Task]struct{}),
		taskAvailable:              make(chan struct{}, 1),
		lgr:                        log.Default().Module("sync"),
	}
	s.future = newDownloadFuture()
	s.future.setCancelHook(s.cleanup)
	return s
}

// SetLogger replaces the coordinator's logger.
func (s *WorldDownloadState) SetLogger(lgr *log.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lgr != nil {
		s.lgr = lgr
	}
}

// DownloadFuture returns the completion signal for this download. The same
// instance is returned on every call.
func (s *WorldDownloadState) DownloadFuture() *DownloadFuture {
	return s.future
}

// IsDownloading returns whether the download is still in progress.
func (s *WorldDownloadState) IsDownloading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloading
}

// SetRootNodeData records the byte content of the state root node. The
// root is known as soon as its response arrives but is only persisted by
// CheckCompletion, once the rest of the trie is durable.
func (s *WorldDownloadState) SetRootNodeData(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rootNodeData = append([]byte(nil), data...)
}

// RootNodeData returns the recorded root node bytes, or nil when the root
// response has not arrived yet.
func (s *WorldDownloadState) RootNodeData() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rootNodeData
}

// EnqueueRequest appends one request to the pending queue. Once the
// download future is terminal the request is silently dropped: a decode
// racing against completion or cancellation must not resurrect the
// download.
func (s *WorldDownloadState) EnqueueRequest(req *NodeDataRequest) {
	s.mu.Lock()
	if s.future.Terminal() {
		s.mu.Unlock()
		return
	}
	s.pendingRequests.Add(req)
	s.mu.Unlock()
	s.NotifyTaskAvailable()
}

// EnqueueRequests appends a batch of requests, with the same post-terminal
// no-op semantics as EnqueueRequest.
func (s *WorldDownloadState) EnqueueRequests(reqs []*NodeDataRequest) {
	s.mu.Lock()
	if s.future.Terminal() {
		s.mu.Unlock()
		return
	}
	for _, req := range reqs {
		s.pendingRequests.Add(req)
	}
	s.mu.Unlock()
	if len(reqs) > 0 {
		s.NotifyTaskAvailable()
	}
}

// BeginBatch marks one batch of requests as in flight. It must be called
// before the batch is drained from the queue, so there is no window in
// which drained-but-unfinished requests are invisible to CheckCompletion.
func (s *WorldDownloadState) BeginBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlightBatches++
}

// EndBatch marks one in-flight batch as fully processed. Any re-enqueues
// arising from the batch (failures, discovered children) must happen
// before this call.
func (s *WorldDownloadState) EndBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlightBatches--
}

// InFlightBatches returns the number of batches drained but not yet fully
// processed.
func (s *WorldDownloadState) InFlightBatches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlightBatches
}

// Dequeue pops the oldest pending request, or nil when none is queued.
func (s *WorldDownloadState) Dequeue() *NodeDataRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingRequests.Next()
}

// PendingCount returns the number of queued requests.
func (s *WorldDownloadState) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingRequests.Len()
}

// AddOutstandingTask registers an in-flight fetch so it can be cancelled
// at teardown.
func (s *WorldDownloadState) AddOutstandingTask(t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstanding[t] = struct{}{}
}

// RemoveOutstandingTask deregisters a fetch that finished naturally.
func (s *WorldDownloadState) RemoveOutstandingTask(t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.outstanding, t)
}

// OutstandingTaskCount returns the number of registered in-flight fetches.
func (s *WorldDownloadState) OutstandingTaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outstanding)
}

// SetDownloadProcess binds the pipeline handle once it is constructed. The
// process is built after the coordinator because it needs the coordinator's
// queue, so the binding happens before concurrent activity begins.
func (s *WorldDownloadState) SetDownloadProcess(p DownloadProcess) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.process = p
}

// RequestComplete records the outcome of one finished unit of work. A
// completion that made progress resets the no-progress counter; one that
// did not increments it, and the counter reaching the configured ceiling
// fails the download with ErrStalledDownload. The increment-and-compare is
// atomic, so concurrent callers racing at the ceiling record exactly one
// stall.
func (s *WorldDownloadState) RequestComplete(madeProgress bool) {
	s.mu.Lock()
	if madeProgress {
		s.requestsSinceLastProgress = 0
		s.mu.Unlock()
		return
	}
	s.requestsSinceLastProgress++
	stalled := s.requestsSinceLastProgress >= s.maxRequestsWithoutProgress
	s.mu.Unlock()

	if stalled {
		s.markStalled()
	}
}

func (s *WorldDownloadState) markStalled() {
	err := fmt.Errorf("%w: %d consecutive requests", ErrStalledDownload, s.maxRequestsWithoutProgress)
	if !s.future.Complete(err) {
		return
	}
	s.mu.Lock()
	s.downloading = false
	lgr := s.lgr
	s.mu.Unlock()
	lgr.Warn("world state download stalled",
		"requestsWithoutProgress", s.maxRequestsWithoutProgress)
}

// NotifyTaskAvailable wakes one waiter on TaskAvailable. Never blocks.
func (s *WorldDownloadState) NotifyTaskAvailable() {
	select {
	case s.taskAvailable <- struct{}{}:
	default:
	}
}

// TaskAvailable returns the channel the dispatch loop waits on for newly
// enqueued requests.
func (s *WorldDownloadState) TaskAvailable() <-chan struct{} {
	return s.taskAvailable
}

// CheckCompletion completes the download if no requests remain pending and
// no drained batch is still being processed: the root node bytes are
// persisted under the header's state root, then the future completes, then
// the downloading flag drops - in that order, so a continuation on the
// future always observes the root already durable. With requests still
// pending or in flight this is a no-op. Returns whether this call
// completed the download.
func (s *WorldDownloadState) CheckCompletion(storage *rawdb.WorldStateStorage, header *types.Header) bool {
	s.mu.Lock()
	if !s.downloading || s.future.Terminal() || s.inFlightBatches > 0 ||
		!s.pendingRequests.IsEmpty() || s.rootNodeData == nil {
		s.mu.Unlock()
		return false
	}
	root := s.rootNodeData
	lgr := s.lgr
	s.mu.Unlock()

	if err := storage.PutAccountStateTrieNode(header.Root, root); err != nil {
		if s.future.Complete(fmt.Errorf("sync: persist state root %s: %w", header.Root, err)) {
			s.setNotDownloading()
			lgr.Error("failed to persist downloaded state root", "root", header.Root, "err", err)
		}
		return false
	}
	if !s.future.Complete(nil) {
		return false
	}
	s.setNotDownloading()
	lgr.Info("world state download complete", "root", header.Root)
	return true
}

func (s *WorldDownloadState) setNotDownloading() {
	s.mu.Lock()
	s.downloading = false
	s.mu.Unlock()
}

// cleanup is the teardown saga run once when the future is cancelled: every
// outstanding task receives a cancel request, the pending queue is drained,
// and the bound process is aborted. Each step is guarded so a failing step
// never prevents the remaining ones from running.
func (s *WorldDownloadState) cleanup() {
	s.mu.Lock()
	s.downloading = false
	tasks := make([]Task, 0, len(s.outstanding))
	for t := range s.outstanding {
		tasks = append(tasks, t)
	}
	s.outstanding = make(map[Task]struct{})
	process := s.process
	lgr := s.lgr
	s.mu.Unlock()

	for _, t := range tasks {
		s.runTeardownStep(lgr, "cancel outstanding task", t.Cancel)
	}
	s.runTeardownStep(lgr, "clear pending requests", func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.pendingRequests.Clear()
	})
	if process != nil {
		s.runTeardownStep(lgr, "abort download process", process.Abort)
	}
}

// runTeardownStep executes one teardown step, logging and swallowing any
// panic so the remaining steps still run.
func (s *WorldDownloadState) runTeardownStep(lgr *log.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			lgr.Error("teardown step failed", "step", name, "err", r)
		}
	}()
	fn()
}
