// Package scantypes holds the data shapes produced by a scan and consumed
// by a store, kept separate from both so that neither the scan algorithm
// nor the persistence layer has to import the other.
package scantypes

import (
	"time"

	"github.com/rybkr/sizehist/internal/gitobj"
	"github.com/rybkr/sizehist/internal/pathintern"
)

// BlobRow records that, at a given path, a blob contributed cumulativeSize
// compressed bytes to history, of which currentSize is also present in
// HEAD. A single blob may be represented by multiple rows across scans,
// one per path it ever occupied; rows are additive once persisted.
type BlobRow struct {
	Oid            gitobj.Hash
	PathId         pathintern.PathId
	CumulativeSize int64
	CurrentSize    int64
}

// BlobMetaRow records the first commit, in scan order, that introduced a
// blob: its total size, the path it was introduced at, and the author
// and timestamp of that commit.
type BlobMetaRow struct {
	Oid       gitobj.Hash
	Size      int64
	PathId    pathintern.PathId
	Author    string
	Timestamp time.Time
}

// ScanDelta is the output of one scanner invocation, not yet persisted.
type ScanDelta struct {
	Blobs    []BlobRow
	Metadata []BlobMetaRow
}

// CommitInfo carries the fields of a commit the scan algorithm actually
// needs: which blobs it introduces get attributed to this author/time.
type CommitInfo struct {
	Oid       gitobj.Hash
	Author    string
	Timestamp time.Time
}

// HeadEntry is the blob referenced at a path by the HEAD commit.
type HeadEntry struct {
	Oid  gitobj.Hash
	Size int64
}

// HeadSnapshot is a path -> (blob, compressed size) map built once per scan
// from HEAD's tree, used to decide whether a blob observed during the
// historical walk is still "current".
type HeadSnapshot struct {
	HeadOidHex  string
	BlobsByPath map[pathintern.PathId]HeadEntry
}
