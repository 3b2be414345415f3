package scanner

import (
	"sync"

	"github.com/rybkr/sizehist/internal/gitobj"
	"github.com/rybkr/sizehist/internal/pathintern"
	"github.com/rybkr/sizehist/internal/scantypes"
)

type treeKey struct {
	tree gitobj.Hash
	path pathintern.PathId
}

type pathBlobKey struct {
	path pathintern.PathId
	oid  gitobj.Hash
}

// TreeScanCtx drives the deduplicated recursive tree walk described in the
// scan algorithm: for every unscanned commit, walk its tree and emit the
// rows capturing the size contribution that commit's view of each path
// adds, skipping anything already accounted for by an earlier commit or an
// earlier scan run.
type TreeScanCtx struct {
	repo     *gitobj.Repository
	psi      *gitobj.PackSizeIndex
	interner *pathintern.Interner
	head     *scantypes.HeadSnapshot

	seenTrees     map[treeKey]struct{}
	seenBlobs     map[gitobj.Hash]struct{}
	seenPathBlobs map[pathBlobKey]struct{}

	delta scantypes.ScanDelta

	bufPool sync.Pool
}

// NewTreeScanCtx creates a scan context. seenBlobs is seeded from the store
// so that a blob introduced in an already-scanned commit is never
// rewritten as "new" by a later run.
func NewTreeScanCtx(repo *gitobj.Repository, psi *gitobj.PackSizeIndex, interner *pathintern.Interner, head *scantypes.HeadSnapshot, seenBlobs map[gitobj.Hash]struct{}) *TreeScanCtx {
	if seenBlobs == nil {
		seenBlobs = make(map[gitobj.Hash]struct{})
	}
	return &TreeScanCtx{
		repo:          repo,
		psi:           psi,
		interner:      interner,
		head:          head,
		seenTrees:     make(map[treeKey]struct{}),
		seenBlobs:     seenBlobs,
		seenPathBlobs: make(map[pathBlobKey]struct{}),
		bufPool: sync.Pool{
			New: func() any {
				buf := make([]byte, 0, 256)
				return &buf
			},
		},
	}
}

// ScanCommit walks commit's tree from the root, emitting rows into the
// context's delta. A tree that fails to decode aborts only that recursion
// frame; siblings and ancestors still get visited.
func (ctx *TreeScanCtx) ScanCommit(commit *gitobj.Commit) {
	info := scantypes.CommitInfo{
		Oid:       commit.ID,
		Author:    commit.Author.Name,
		Timestamp: commit.Author.When,
	}

	bufPtr := ctx.bufPool.Get().(*[]byte) //nolint:errcheck // pool only ever holds *[]byte
	*bufPtr = (*bufPtr)[:0]
	ctx.scanTree(commit.Tree, bufPtr, info)
	ctx.bufPool.Put(bufPtr)
}

// scanTree recurses into tree, appending path segments onto pathBuf and
// truncating back to the entry length before returning, so allocation
// stays proportional to tree depth rather than tree size.
func (ctx *TreeScanCtx) scanTree(treeOid gitobj.Hash, pathBuf *[]byte, commit scantypes.CommitInfo) {
	pathId := ctx.interner.Intern(*pathBuf)
	key := treeKey{tree: treeOid, path: pathId}
	if _, ok := ctx.seenTrees[key]; ok {
		return
	}
	ctx.seenTrees[key] = struct{}{}

	tree, err := ctx.repo.ReadTree(treeOid)
	if err != nil {
		return
	}

	for _, entry := range tree.Entries {
		baseLen := len(*pathBuf)
		if baseLen > 0 {
			*pathBuf = append(*pathBuf, '/')
		}
		*pathBuf = append(*pathBuf, entry.Name...)

		switch entry.Type {
		case "tree":
			ctx.scanTree(entry.ID, pathBuf, commit)
		case "blob":
			ctx.handleBlob(entry.ID, *pathBuf, commit)
		}

		*pathBuf = (*pathBuf)[:baseLen]
	}
}

// handleBlob implements the per-blob emission rules: at most one row per
// (path, blob) pair per run, a BlobMetaRow only the first time a blob is
// ever seen across all runs, and a zero-cumulative "still current" row
// when a previously-seen blob recurs at a path HEAD still references.
func (ctx *TreeScanCtx) handleBlob(oid gitobj.Hash, path []byte, commit scantypes.CommitInfo) {
	pathId := ctx.interner.Intern(path)

	pbKey := pathBlobKey{path: pathId, oid: oid}
	if _, ok := ctx.seenPathBlobs[pbKey]; ok {
		return
	}
	ctx.seenPathBlobs[pbKey] = struct{}{}

	_, alreadySeen := ctx.seenBlobs[oid]
	isNewBlob := !alreadySeen
	ctx.seenBlobs[oid] = struct{}{}

	size := ctx.psi.SizeOf(oid)

	var currentSize int64
	if head, ok := ctx.head.BlobsByPath[pathId]; ok && head.Oid == oid {
		currentSize = head.Size
	}

	switch {
	case isNewBlob:
		ctx.delta.Blobs = append(ctx.delta.Blobs, scantypes.BlobRow{
			Oid: oid, PathId: pathId, CumulativeSize: size, CurrentSize: currentSize,
		})
		ctx.delta.Metadata = append(ctx.delta.Metadata, scantypes.BlobMetaRow{
			Oid: oid, Size: size, PathId: pathId, Author: commit.Author, Timestamp: commit.Timestamp,
		})
	case currentSize > 0:
		ctx.delta.Blobs = append(ctx.delta.Blobs, scantypes.BlobRow{
			Oid: oid, PathId: pathId, CumulativeSize: 0, CurrentSize: currentSize,
		})
	}
}

// Delta returns the rows accumulated across every ScanCommit call so far.
func (ctx *TreeScanCtx) Delta() scantypes.ScanDelta {
	return ctx.delta
}
