// Package scanner implements the historical size-footprint scan: a
// breadth-first snapshot of HEAD's tree, a deduplicated depth-first walk of
// every unscanned commit's tree, and the orchestration that ties them to a
// store.
package scanner

import (
	"fmt"

	"github.com/rybkr/sizehist/internal/gitobj"
	"github.com/rybkr/sizehist/internal/pathintern"
	"github.com/rybkr/sizehist/internal/scantypes"
)

type headFrame struct {
	oid  gitobj.Hash
	path []byte
}

// BuildHeadSnapshot walks headOid's tree breadth-first, interning the path
// of every blob it finds into interner, and records the (blob, compressed size)
// present at each path. It is built once per scan, before the historical
// walk, so blob emission during that walk can look up "is this still
// current" in O(1).
func BuildHeadSnapshot(repo *gitobj.Repository, psi *gitobj.PackSizeIndex, interner *pathintern.Interner, headHex string, headOid gitobj.Hash) (*scantypes.HeadSnapshot, error) {
	commit, err := repo.ReadCommit(headOid)
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD commit: %w", err)
	}

	snapshot := &scantypes.HeadSnapshot{
		HeadOidHex:  headHex,
		BlobsByPath: make(map[pathintern.PathId]scantypes.HeadEntry),
	}

	queue := []headFrame{{oid: commit.Tree}}
	for len(queue) > 0 {
		frame := queue[0]
		queue = queue[1:]

		tree, err := repo.ReadTree(frame.oid)
		if err != nil {
			// Unreadable tree: skip this subtree, siblings still processed.
			continue
		}

		for _, entry := range tree.Entries {
			childPath := joinPath(frame.path, entry.Name)

			switch entry.Type {
			case "tree":
				queue = append(queue, headFrame{oid: entry.ID, path: childPath})
			case "blob":
				pathId := interner.Intern(childPath)
				snapshot.BlobsByPath[pathId] = scantypes.HeadEntry{
					Oid:  entry.ID,
					Size: psi.SizeOf(entry.ID),
				}
			}
		}
	}

	return snapshot, nil
}

func joinPath(parent []byte, name string) []byte {
	if len(parent) == 0 {
		return []byte(name)
	}
	out := make([]byte, 0, len(parent)+1+len(name))
	out = append(out, parent...)
	out = append(out, '/')
	out = append(out, name...)
	return out
}
