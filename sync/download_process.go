// download_process.go implements the pipeline that drives node data
// requests from the coordinator's queue: a pool of workers that batch
// pending requests, fetch node bytes from the network, persist the
// responses, and feed newly discovered child requests back to the
// coordinator.
package sync

import (
	"context"
	"sync"

	"github.com/q9f/besu/core/rawdb"
	"github.com/q9f/besu/core/types"
	"github.com/q9f/besu/crypto"
	"github.com/q9f/besu/log"
	"github.com/q9f/besu/metrics"
)

// NodeDataFetcher is the boundary to the network layer: it requests the
// raw bytes of trie nodes or bytecode by content hash. The returned slice
// is aligned with the requested hashes; entries the remote could not serve
// are nil or empty. Peer selection and retry policy live behind this
// interface.
type NodeDataFetcher interface {
	RequestNodeData(ctx context.Context, hashes []types.Hash) ([][]byte, error)
}

// fetchTask is the cancellable handle registered with the coordinator for
// one in-flight fetch.
type fetchTask struct {
	cancel context.CancelFunc
}

// Cancel requests the in-flight fetch to stop. Idempotent.
func (t *fetchTask) Cancel() { t.cancel() }

// WorldStateDownloadProcess pulls pending requests from a
// WorldDownloadState, performs the network fetches, and reports results
// back. Start launches the workers; Abort stops them and is idempotent.
type WorldStateDownloadProcess struct {
	state   *WorldDownloadState
	storage *rawdb.WorldStateStorage
	fetcher NodeDataFetcher
	header  *types.Header

	hashCountPerRequest int
	workerCount         int

	completedRequests *metrics.Counter
	failedRequests    *metrics.Counter
	pendingGauge      *metrics.Gauge

	ctx       context.Context
	cancelCtx context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	abortOnce sync.Once

	lgr *log.Logger
}

// NewWorldStateDownloadProcess creates the pipeline for one download. The
// registry may be nil, in which case a private one is used.
func NewWorldStateDownloadProcess(
	state *WorldDownloadState,
	storage *rawdb.WorldStateStorage,
	fetcher NodeDataFetcher,
	header *types.Header,
	config *DownloaderConfig,
	registry *metrics.Registry,
) *WorldStateDownloadProcess {
	if config == nil {
		config = DefaultDownloaderConfig()
	}
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorldStateDownloadProcess{
		state:               state,
		storage:             storage,
		fetcher:             fetcher,
		header:              header,
		hashCountPerRequest: config.HashCountPerRequest,
		workerCount:         config.WorkerCount,
		completedRequests:   registry.Counter("worldstate.completed_requests"),
		failedRequests:      registry.Counter("worldstate.failed_requests"),
		pendingGauge:        registry.Gauge("worldstate.pending_requests"),
		ctx:                 ctx,
		cancelCtx:           cancel,
		lgr:                 log.Default().Module("sync"),
	}
}

// Start launches the worker pool. Calling it more than once has no effect.
func (p *WorldStateDownloadProcess) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workerCount; i++ {
			p.wg.Add(1)
			go p.run()
		}
	})
}

// Abort stops dispatch and cancels the workers. It does not wait for them
// to exit, so it is safe to call from a worker's own completion path.
// Idempotent.
func (p *WorldStateDownloadProcess) Abort() {
	p.abortOnce.Do(func() {
		p.cancelCtx()
	})
}

// Wait blocks until all workers have exited.
func (p *WorldStateDownloadProcess) Wait() {
	p.wg.Wait()
}

// run is the per-worker dispatch loop: drain a batch, fetch it, feed the
// results back, and park on the task-available channel when the queue is
// empty.
func (p *WorldStateDownloadProcess) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}
		if p.state.DownloadFuture().Terminal() {
			return
		}

		// The batch is marked in flight before it is drained; its requests
		// leave the queue but must still block completion until processed.
		p.state.BeginBatch()
		batch := p.dequeueBatch()
		if len(batch) == 0 {
			p.state.EndBatch()
			// Nothing queued: the download may be finished, otherwise
			// park until new work arrives.
			p.state.CheckCompletion(p.storage, p.header)
			select {
			case <-p.ctx.Done():
				return
			case <-p.state.TaskAvailable():
			}
			continue
		}
		p.pendingGauge.Update(int64(p.state.PendingCount()))
		p.processBatch(batch)
		p.state.EndBatch()
		p.state.CheckCompletion(p.storage, p.header)
	}
}

// dequeueBatch pops up to hashCountPerRequest pending requests, dropping
// any whose data is already persisted.
func (p *WorldStateDownloadProcess) dequeueBatch() []*NodeDataRequest {
	batch := make([]*NodeDataRequest, 0, p.hashCountPerRequest)
	for len(batch) < p.hashCountPerRequest {
		req := p.state.Dequeue()
		if req == nil {
			break
		}
		if p.alreadyPersisted(req) {
			continue
		}
		batch = append(batch, req)
	}
	return batch
}

func (p *WorldStateDownloadProcess) alreadyPersisted(req *NodeDataRequest) bool {
	// The root node is deliberately persisted last; its request must
	// always go out.
	if req.Kind() == AccountTrieNodeRequest && req.Hash() == p.header.Root {
		return false
	}
	if req.Kind() == CodeRequest {
		return p.storage.ContainsCode(req.Hash())
	}
	return p.storage.ContainsTrieNode(req.Hash())
}

// processBatch fetches one batch of requests, persists the returned nodes,
// enqueues the children they reveal, and reports progress to the
// coordinator.
func (p *WorldStateDownloadProcess) processBatch(batch []*NodeDataRequest) {
	reqCtx, cancelReq := context.WithCancel(p.ctx)
	task := &fetchTask{cancel: cancelReq}
	p.state.AddOutstandingTask(task)
	defer func() {
		cancelReq()
		p.state.RemoveOutstandingTask(task)
	}()

	hashes := make([]types.Hash, len(batch))
	for i, req := range batch {
		hashes[i] = req.Hash()
	}

	data, err := p.fetcher.RequestNodeData(reqCtx, hashes)
	if err != nil {
		p.failedRequests.Inc()
		p.lgr.Debug("node data request failed", "hashes", len(hashes), "err", err)
		p.state.EnqueueRequests(batch)
		p.state.RequestComplete(false)
		return
	}

	madeProgress := false
	for i, req := range batch {
		if i >= len(data) || len(data[i]) == 0 {
			// Unanswered: put it back for a later attempt.
			p.state.EnqueueRequest(req)
			continue
		}
		if crypto.Keccak256Hash(data[i]) != req.Hash() {
			p.lgr.Debug("discarding node data with mismatched hash", "hash", req.Hash())
			p.state.EnqueueRequest(req)
			continue
		}
		if p.handleResponse(req.SetData(data[i])) {
			madeProgress = true
		}
	}

	p.completedRequests.Inc()
	p.state.RequestComplete(madeProgress)
}

// handleResponse persists one resolved request (or records root bytes) and
// enqueues the child requests it implies. Returns whether the response
// advanced the download.
func (p *WorldStateDownloadProcess) handleResponse(req *NodeDataRequest) bool {
	if req.Kind() == AccountTrieNodeRequest && req.Hash() == p.header.Root {
		// Persisting the root is the coordinator's completion-time duty.
		p.state.SetRootNodeData(req.Data())
	} else if err := req.Persist(p.storage); err != nil {
		p.lgr.Warn("failed to persist node data", "kind", req.Kind(), "hash", req.Hash(), "err", err)
		p.state.EnqueueRequest(req)
		return false
	}

	children, err := req.ChildRequests()
	if err != nil {
		p.lgr.Debug("failed to decode children", "kind", req.Kind(), "hash", req.Hash(), "err", err)
		return true
	}
	missing := children[:0:0]
	for _, child := range children {
		if !p.alreadyPersisted(child) {
			missing = append(missing, child)
		}
	}
	p.state.EnqueueRequests(missing)
	return true
}
