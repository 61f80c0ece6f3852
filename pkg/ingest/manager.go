// Package ingest is the write path of the corpus: it orchestrates
// parse -> chunk -> embed and mutates the dense and sparse indexes
// atomically per document, owns the per-session index read/write
// lock, and invalidates the query cache on every corpus mutation.
//
// Index persistence and rebuilds follow a staged-write-then-rename
// discipline (write to a temp file or staging directory, then os.Rename
// into place). Ingest adds chunks to the live Bleve index directly;
// if that step fails, the dense add already saved is rolled back, so a
// failed ingest leaves the indexes at their pre-ingest contents rather
// than with vectors added but no sparse entries. Writes additionally hold a
// gofrs/flock cross-process lock per session directory, so two
// processes sharing a storage root can't interleave rebuilds.
package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/kadirpekel/docuquery/pkg/cache"
	"github.com/kadirpekel/docuquery/pkg/chunk"
	"github.com/kadirpekel/docuquery/pkg/denseindex"
	"github.com/kadirpekel/docuquery/pkg/embed"
	"github.com/kadirpekel/docuquery/pkg/sessionstore"
	"github.com/kadirpekel/docuquery/pkg/sparseindex"
)

// Manager owns document ingestion, deletion, and per-session index
// access. It is the single writer of index state; pkg/pipeline reads
// through SessionIndexes/LibraryDenseIndex so readers and writers on the
// same session are serialized by the same lock registry.
type Manager struct {
	Paths    Paths
	Store    *sessionstore.Store
	Cache    *cache.Cache
	embedder *embed.Embedder
	chunker  *chunk.Chunker

	locksMu sync.Mutex
	locks   map[string]*sync.RWMutex
}

// New creates a Manager rooted at paths.
func New(paths Paths, store *sessionstore.Store, c *cache.Cache, embedder *embed.Embedder, chunker *chunk.Chunker) *Manager {
	return &Manager{
		Paths:    paths,
		Store:    store,
		Cache:    c,
		embedder: embedder,
		chunker:  chunker,
		locks:    make(map[string]*sync.RWMutex),
	}
}

func (m *Manager) lockFor(key string) *sync.RWMutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	mu, ok := m.locks[key]
	if !ok {
		mu = &sync.RWMutex{}
		m.locks[key] = mu
	}
	return mu
}

// SessionIndexes opens sessionID's dense and sparse indexes under a
// read lock and returns a release function the caller must call when
// done searching.
func (m *Manager) SessionIndexes(sessionID string) (*denseindex.Index, *sparseindex.Index, func(), error) {
	id := sessionID
	mu := m.lockFor(scopeKey(&id))
	mu.RLock()

	dense, err := denseindex.Open(m.Paths.DenseDir(&id))
	if err != nil {
		mu.RUnlock()
		return nil, nil, nil, fmt.Errorf("ingest: open session dense index: %w", err)
	}
	sparse, err := sparseindex.Open(m.Paths.SparseDir(&id))
	if err != nil {
		mu.RUnlock()
		return nil, nil, nil, fmt.Errorf("ingest: open session sparse index: %w", err)
	}

	release := func() {
		_ = sparse.Close()
		mu.RUnlock()
	}
	return dense, sparse, release, nil
}

// LibraryDenseIndex opens the shared library's dense index under a
// read lock.
func (m *Manager) LibraryDenseIndex() (*denseindex.Index, func(), error) {
	mu := m.lockFor(scopeKey(nil))
	mu.RLock()

	dense, err := denseindex.Open(m.Paths.DenseDir(nil))
	if err != nil {
		mu.RUnlock()
		return nil, nil, fmt.Errorf("ingest: open library dense index: %w", err)
	}
	release := func() { mu.RUnlock() }
	return dense, release, nil
}

// withWriteLock acquires both the in-process exclusive lock and a
// cross-process file lock for the given scope, runs fn, and releases
// both regardless of outcome.
func (m *Manager) withWriteLock(sessionID *string, fn func() error) error {
	mu := m.lockFor(scopeKey(sessionID))
	mu.Lock()
	defer mu.Unlock()

	lockPath := m.Paths.LockFile(sessionID)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("ingest: create scope dir: %w", err)
	}
	fl := flock.New(lockPath)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("ingest: acquire write lock: %w", err)
	}
	defer func() {
		if err := fl.Unlock(); err != nil {
			slog.Warn("ingest: release write lock failed", "error", err)
		}
	}()

	return fn()
}
