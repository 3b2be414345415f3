package sizetree

import (
	"sort"
	"strings"
)

// ExtensionStat aggregates size and blob-count totals over every leaf
// whose name shares a file extension.
type ExtensionStat struct {
	Extension      string
	CumulativeSize int64
	CurrentSize    int64
	BlobCount      int64
}

// noExtBucket is where leaves with no usable extension land: no dot, an
// empty suffix, a suffix too long to plausibly be an extension, or a
// suffix containing a path separator (meaning the "dot" found was really
// in a parent directory name reached through a degenerate split).
const noExtBucket = "(no ext)"

const maxExtensionLen = 10

// ComputeExtensionStats walks every leaf beneath root (after ComputeTotals
// has already run) and buckets it by lower-cased file extension, summing
// cumulative size, current size, and blob count per bucket. Results are
// sorted descending by cumulative size, ties broken by extension name for
// determinism.
func ComputeExtensionStats(root *TreeNode) []ExtensionStat {
	totals := make(map[string]*ExtensionStat)

	var walk func(n *TreeNode)
	walk = func(n *TreeNode) {
		if len(n.Children) == 0 {
			ext := extensionOf(n.Name)
			stat, ok := totals[ext]
			if !ok {
				stat = &ExtensionStat{Extension: ext}
				totals[ext] = stat
			}
			stat.CumulativeSize += n.CumulativeSize
			stat.CurrentSize += n.CurrentSize
			stat.BlobCount += n.BlobCount
			return
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(root)

	result := make([]ExtensionStat, 0, len(totals))
	for _, stat := range totals {
		result = append(result, *stat)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CumulativeSize != result[j].CumulativeSize {
			return result[i].CumulativeSize > result[j].CumulativeSize
		}
		return result[i].Extension < result[j].Extension
	})

	return result
}

func extensionOf(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx == -1 || idx == len(name)-1 {
		return noExtBucket
	}

	ext := strings.ToLower(name[idx+1:])
	if len(ext) == 0 || len(ext) > maxExtensionLen || strings.ContainsRune(ext, '/') {
		return noExtBucket
	}

	return ext
}
