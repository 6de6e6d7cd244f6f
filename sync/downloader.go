// downloader.go implements WorldStateDownloader, the entry point that runs
// one world state download to completion: it seeds the root request, wires
// the coordinator to the download process, and exposes the resulting
// future.
package sync

import (
	"errors"
	"fmt"
	"sync"

	"github.com/q9f/besu/core/rawdb"
	"github.com/q9f/besu/core/types"
	"github.com/q9f/besu/log"
	"github.com/q9f/besu/metrics"
)

// Downloader errors.
var (
	// ErrDownloaderBusy reports that a download for a different state root
	// is already running.
	ErrDownloaderBusy = errors.New("sync: download already in progress for another state root")
)

// emptyTrieNode is the RLP encoding of an empty trie root (an empty
// string); its keccak256 hash is types.EmptyRootHash.
var emptyTrieNode = []byte{0x80}

// DownloaderConfig tunes the world state downloader.
type DownloaderConfig struct {
	// MaxRequestsWithoutProgress is the number of consecutive request
	// completions without newly discovered work after which the download
	// fails as stalled.
	MaxRequestsWithoutProgress int
	// HashCountPerRequest caps the number of hashes batched into one
	// network request.
	HashCountPerRequest int
	// WorkerCount is the number of concurrent fetch workers.
	WorkerCount int
}

// DefaultDownloaderConfig returns the reference configuration.
func DefaultDownloaderConfig() *DownloaderConfig {
	return &DownloaderConfig{
		MaxRequestsWithoutProgress: 10,
		HashCountPerRequest:        384,
		WorkerCount:                4,
	}
}

// WorldStateDownloader runs world state downloads, one at a time. A second
// Run for the same root while a download is active returns the running
// download's future; a Run for a different root fails with
// ErrDownloaderBusy.
type WorldStateDownloader struct {
	mu sync.Mutex

	config  *DownloaderConfig
	storage *rawdb.WorldStateStorage
	fetcher NodeDataFetcher
	metrics *metrics.Registry
	lgr     *log.Logger

	state *WorldDownloadState
	root  types.Hash
}

// NewWorldStateDownloader creates a downloader over the given storage and
// network fetcher. A nil config selects DefaultDownloaderConfig.
func NewWorldStateDownloader(storage *rawdb.WorldStateStorage, fetcher NodeDataFetcher, config *DownloaderConfig) *WorldStateDownloader {
	if config == nil {
		config = DefaultDownloaderConfig()
	}
	if config.MaxRequestsWithoutProgress <= 0 {
		config.MaxRequestsWithoutProgress = DefaultDownloaderConfig().MaxRequestsWithoutProgress
	}
	if config.HashCountPerRequest <= 0 {
		config.HashCountPerRequest = DefaultDownloaderConfig().HashCountPerRequest
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultDownloaderConfig().WorkerCount
	}
	return &WorldStateDownloader{
		config:  config,
		storage: storage,
		fetcher: fetcher,
		metrics: metrics.NewRegistry(),
		lgr:     log.Default().Module("sync"),
	}
}

// Metrics returns the registry holding the downloader's counters.
func (d *WorldStateDownloader) Metrics() *metrics.Registry {
	return d.metrics
}

// Run starts downloading the world state committed by the given header and
// returns the future representing the download's outcome.
func (d *WorldStateDownloader) Run(header *types.Header) (*DownloadFuture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != nil && d.state.IsDownloading() {
		if d.root == header.Root {
			return d.state.DownloadFuture(), nil
		}
		return nil, fmt.Errorf("%w: running %s, requested %s", ErrDownloaderBusy, d.root, header.Root)
	}

	state := NewWorldDownloadState(NewInMemoryTaskQueue(), d.config.MaxRequestsWithoutProgress)
	state.SetLogger(d.lgr)
	d.state = state
	d.root = header.Root
	future := state.DownloadFuture()

	// An empty state root needs no network traffic at all.
	if header.Root.IsZero() || header.Root == types.EmptyRootHash {
		state.SetRootNodeData(emptyTrieNode)
		state.CheckCompletion(d.storage, header)
		return future, nil
	}

	// A previously downloaded state can complete from local storage.
	if data, ok := d.storage.GetAccountStateTrieNode(header.Root); ok {
		state.SetRootNodeData(data)
		state.CheckCompletion(d.storage, header)
		return future, nil
	}

	process := NewWorldStateDownloadProcess(state, d.storage, d.fetcher, header, d.config, d.metrics)
	state.SetDownloadProcess(process)
	future.OnDone(func(err error) {
		// Stop dispatch on every terminal path, not just cancellation.
		process.Abort()
		if err != nil && !errors.Is(err, ErrDownloadCancelled) {
			d.lgr.Warn("world state download failed", "root", header.Root, "err", err)
		}
	})

	state.EnqueueRequest(CreateAccountDataRequest(header.Root))
	process.Start()
	d.lgr.Info("world state download started",
		"root", header.Root, "block", header.NumberU64(), "workers", d.config.WorkerCount)
	return future, nil
}

// Cancel cancels the running download, if any. Returns whether a download
// was cancelled by this call.
func (d *WorldStateDownloader) Cancel() bool {
	d.mu.Lock()
	state := d.state
	d.mu.Unlock()
	if state == nil {
		return false
	}
	return state.DownloadFuture().Cancel()
}

// IsDownloading returns whether a download is currently active.
func (d *WorldStateDownloader) IsDownloading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state != nil && d.state.IsDownloading()
}
