package gitobj

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// packFooterSize is the length, in bytes, of a pack file's trailing checksum
// region (a 20-byte SHA-1 of everything preceding it).
const packFooterSize = 20

// PackSizeIndex maps every object reachable through a repository's pack
// files or loose-object directory to its compressed, on-disk byte length.
// It never decompresses an object to learn its size: packed sizes come from
// the distance between consecutive offsets in a pack, and loose sizes come
// from a file stat.
type PackSizeIndex struct {
	gitDir string
	sizes  map[Hash]int64
}

// NewPackSizeIndex builds a PackSizeIndex from every pack index already
// loaded on the repository. An unreadable index was already logged and
// skipped during repository open; a pack file that cannot be read here is
// logged and skipped as well, so its objects fall back to loose-file sizes.
func NewPackSizeIndex(repo *Repository) (*PackSizeIndex, error) {
	psi := &PackSizeIndex{
		gitDir: repo.gitDir,
		sizes:  make(map[Hash]int64),
	}

	for _, idx := range repo.packIndices {
		if err := psi.loadPack(idx); err != nil {
			slog.Warn("failed to load pack sizes", "pack", idx.PackFile(), "error", err)
			continue
		}
	}

	return psi, nil
}

type packEntry struct {
	oid    Hash
	offset int64
}

// loadPack computes compressed sizes for every object in one pack by
// sorting its entries by offset and differencing consecutive offsets. If
// multiple packs contain the same oid, the later pack (in load order) wins.
func (psi *PackSizeIndex) loadPack(idx *PackIndex) error {
	info, err := os.Stat(idx.PackFile())
	if err != nil {
		return err
	}
	packEnd := info.Size() - packFooterSize

	all := idx.AllObjects()
	entries := make([]packEntry, 0, len(all))
	for oid, offset := range all {
		entries = append(entries, packEntry{oid: oid, offset: offset})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].offset < entries[j].offset })

	for i, e := range entries {
		var size int64
		if i+1 < len(entries) {
			size = entries[i+1].offset - e.offset
		} else {
			size = packEnd - e.offset
		}
		psi.sizes[e.oid] = size
	}

	return nil
}

// SizeOf returns the compressed size of the given object. If the object is
// not packed, it falls back to the loose object's file size. If neither
// source has it, it returns 0 — a missing size must not abort a scan, it
// only degrades the displayed total.
func (psi *PackSizeIndex) SizeOf(id Hash) int64 {
	if size, ok := psi.sizes[id]; ok {
		return size
	}

	loosePath := filepath.Join(psi.gitDir, "objects", string(id)[:2], string(id)[2:])
	info, err := os.Stat(loosePath)
	if err != nil {
		return 0
	}
	return info.Size()
}
