// Package scanstore defines the persistence contract a scan is applied
// through and its SQLite realization.
package scanstore

import (
	"github.com/rybkr/sizehist/internal/gitobj"
	"github.com/rybkr/sizehist/internal/pathintern"
	"github.com/rybkr/sizehist/internal/scantypes"
	"github.com/rybkr/sizehist/internal/sizetree"
)

// BlobRecord is one row of the blobs table, as returned by TopBlobs.
type BlobRecord struct {
	Oid         gitobj.Hash
	Size        int64
	Path        string
	FirstAuthor string
	FirstDate   int64
}

// Store is the abstract persistence contract a GitScanner drives. The
// SQLite implementation is the canonical realization; the interface lets an
// in-memory fake stand in for it.
type Store interface {
	// GetHeadOid returns the last persisted HEAD hex and true, or ("",
	// false, nil) if no scan has ever completed.
	GetHeadOid() (string, bool, error)

	// SetHeadOid persists the HEAD cursor. Callers must only invoke this
	// after a successful ApplyScan.
	SetHeadOid(hex string) error

	// LoadScannedCommits returns every commit oid previously persisted,
	// used to diff against a freshly collected ancestor walk.
	LoadScannedCommits() (map[gitobj.Hash]struct{}, error)

	// LoadSeenBlobs returns every blob oid previously persisted, used to
	// seed the in-memory dedup set at the start of a scan.
	LoadSeenBlobs() (map[gitobj.Hash]struct{}, error)

	// ApplyScan atomically inserts delta's blob rows into paths
	// (additive upsert), blob metadata (ignore-on-conflict), and
	// scanned-commit markers (ignore-on-conflict). Either all three are
	// visible on the next open, or none are.
	ApplyScan(delta scantypes.ScanDelta, commits []gitobj.Hash, interner *pathintern.Interner) error

	// LoadTree reconstructs the directory tree from the paths table.
	LoadTree() (*sizetree.TreeNode, error)

	// TopBlobs returns the n largest blobs by size, descending.
	TopBlobs(n int) ([]BlobRecord, error)

	// Close releases underlying resources.
	Close() error
}
