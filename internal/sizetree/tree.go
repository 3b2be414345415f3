// Package sizetree reconstructs a path-keyed directory tree from the flat
// rows a store persists, and rolls up per-directory totals and
// deleted-byte metrics over it.
package sizetree

import "strings"

// TreeNode is one directory or file in the reconstructed tree. Leaves and
// interior nodes share the same shape; the distinction is only whether
// Children is empty.
type TreeNode struct {
	Name                  string
	CumulativeSize        int64
	CurrentSize           int64
	BlobCount             int64
	Children              map[string]*TreeNode
	HasDeletedDescendants bool
	DeletedSize           int64
}

// StoredRow is one row as persisted by a store's paths table.
type StoredRow struct {
	Path           string
	CumulativeSize int64
	CurrentSize    int64
	BlobCount      int64
}

// NewRoot returns an empty root node ready to absorb rows.
func NewRoot() *TreeNode {
	return &TreeNode{Name: "(root)", Children: make(map[string]*TreeNode)}
}

// Absorb splits row.Path on "/" (no escaping), descending or creating
// interior nodes as needed, and adds the row's sizes and blob count to the
// leaf at the final path segment.
func (root *TreeNode) Absorb(row StoredRow) {
	segments := strings.Split(row.Path, "/")

	node := root
	for _, seg := range segments {
		child, ok := node.Children[seg]
		if !ok {
			child = &TreeNode{Name: seg, Children: make(map[string]*TreeNode)}
			node.Children[seg] = child
		}
		node = child
	}

	node.CumulativeSize += row.CumulativeSize
	node.CurrentSize += row.CurrentSize
	node.BlobCount += row.BlobCount
}

// ComputeTotals runs the post-order roll-up: at leaves, derives
// HasDeletedDescendants and DeletedSize from the already-absorbed sizes; at
// interior nodes, sums every additive field over children and ORs
// HasDeletedDescendants.
func (root *TreeNode) ComputeTotals() {
	root.computeTotals()
}

func (n *TreeNode) computeTotals() {
	if len(n.Children) == 0 {
		n.HasDeletedDescendants = n.CurrentSize == 0 && n.CumulativeSize > 0
		if n.HasDeletedDescendants {
			n.DeletedSize = n.CumulativeSize
		}
		return
	}

	var cumulative, current, blobCount, deletedSize int64
	var hasDeleted bool
	for _, child := range n.Children {
		child.computeTotals()
		cumulative += child.CumulativeSize
		current += child.CurrentSize
		blobCount += child.BlobCount
		deletedSize += child.DeletedSize
		hasDeleted = hasDeleted || child.HasDeletedDescendants
	}

	n.CumulativeSize = cumulative
	n.CurrentSize = current
	n.BlobCount = blobCount
	n.DeletedSize = deletedSize
	n.HasDeletedDescendants = hasDeleted
}

// ContainsDeletedFiles reports whether any leaf beneath this node has
// cumulative bytes no longer present in HEAD.
func (n *TreeNode) ContainsDeletedFiles() bool {
	return n.HasDeletedDescendants
}

// Walk calls fn for every node in the tree, interior nodes included, in an
// unspecified order. Used by property tests that need to collect every
// stored row back out of a reconstructed tree.
func (n *TreeNode) Walk(fn func(path string, node *TreeNode)) {
	n.walk(nil, fn)
}

func (n *TreeNode) walk(prefix []string, fn func(path string, node *TreeNode)) {
	if len(prefix) > 0 {
		fn(strings.Join(prefix, "/"), n)
	}
	for name, child := range n.Children {
		child.walk(append(prefix, name), fn) //nolint:gocritic // append on an owned slice per call, no aliasing across siblings
	}
}
