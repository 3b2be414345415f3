package scanstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rybkr/sizehist/internal/gitobj"
	"github.com/rybkr/sizehist/internal/pathintern"
	"github.com/rybkr/sizehist/internal/scantypes"
)

func openTestStore(t *testing.T) *SqliteStore {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenSqliteStore(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("OpenSqliteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func hashFor(t *testing.T, hex string) gitobj.Hash {
	t.Helper()
	h, err := gitobj.NewHash(hex)
	if err != nil {
		t.Fatalf("NewHash(%q): %v", hex, err)
	}
	return h
}

func TestOpenSqliteStore_FreshFileRebuilds(t *testing.T) {
	store := openTestStore(t)
	if !store.Rebuilt {
		t.Error("expected Rebuilt true for a brand new database file")
	}

	_, ok, err := store.GetHeadOid()
	if err != nil {
		t.Fatalf("GetHeadOid: %v", err)
	}
	if ok {
		t.Error("expected no head_oid on a fresh store")
	}
}

func TestSqliteStore_HeadOidRoundTrip(t *testing.T) {
	store := openTestStore(t)

	if err := store.SetHeadOid("abc123"); err != nil {
		t.Fatalf("SetHeadOid: %v", err)
	}
	hex, ok, err := store.GetHeadOid()
	if err != nil {
		t.Fatalf("GetHeadOid: %v", err)
	}
	if !ok || hex != "abc123" {
		t.Errorf("GetHeadOid = (%q, %v), want (\"abc123\", true)", hex, ok)
	}

	if err := store.SetHeadOid("def456"); err != nil {
		t.Fatalf("SetHeadOid (update): %v", err)
	}
	hex, _, err = store.GetHeadOid()
	if err != nil {
		t.Fatalf("GetHeadOid: %v", err)
	}
	if hex != "def456" {
		t.Errorf("GetHeadOid after update = %q, want def456", hex)
	}
}

func TestSqliteStore_ApplyScanAndLoadTree(t *testing.T) {
	store := openTestStore(t)
	interner := pathintern.New()
	pathID := interner.Intern([]byte("hello.txt"))
	oid := hashFor(t, "1111111111111111111111111111111111111111")

	delta := scantypes.ScanDelta{
		Blobs: []scantypes.BlobRow{
			{Oid: oid, PathId: pathID, CumulativeSize: 13, CurrentSize: 13},
		},
		Metadata: []scantypes.BlobMetaRow{
			{Oid: oid, Size: 13, PathId: pathID, Author: "alice", Timestamp: time.Unix(1000, 0)},
		},
	}
	commitOid := hashFor(t, "2222222222222222222222222222222222222222")

	if err := store.ApplyScan(delta, []gitobj.Hash{commitOid}, interner); err != nil {
		t.Fatalf("ApplyScan: %v", err)
	}

	tree, err := store.LoadTree()
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	leaf, ok := tree.Children["hello.txt"]
	if !ok {
		t.Fatal("missing hello.txt in reconstructed tree")
	}
	if leaf.CumulativeSize != 13 || leaf.CurrentSize != 13 {
		t.Errorf("hello.txt sizes = (%d, %d), want (13, 13)", leaf.CumulativeSize, leaf.CurrentSize)
	}

	scanned, err := store.LoadScannedCommits()
	if err != nil {
		t.Fatalf("LoadScannedCommits: %v", err)
	}
	if _, ok := scanned[commitOid]; !ok {
		t.Error("expected commit to be marked scanned")
	}

	seen, err := store.LoadSeenBlobs()
	if err != nil {
		t.Fatalf("LoadSeenBlobs: %v", err)
	}
	if _, ok := seen[oid]; !ok {
		t.Error("expected blob to be marked seen")
	}

	top, err := store.TopBlobs(5)
	if err != nil {
		t.Fatalf("TopBlobs: %v", err)
	}
	if len(top) != 1 || top[0].Oid != oid || top[0].Size != 13 {
		t.Errorf("TopBlobs = %+v, want single row for oid %s size 13", top, oid)
	}
}

func TestSqliteStore_ApplyScanAdditiveUpsert(t *testing.T) {
	store := openTestStore(t)
	interner := pathintern.New()
	pathID := interner.Intern([]byte("file.txt"))

	oidV1 := hashFor(t, "3333333333333333333333333333333333333333")
	oidV2 := hashFor(t, "4444444444444444444444444444444444444444")

	delta1 := scantypes.ScanDelta{
		Blobs:    []scantypes.BlobRow{{Oid: oidV1, PathId: pathID, CumulativeSize: 10, CurrentSize: 0}},
		Metadata: []scantypes.BlobMetaRow{{Oid: oidV1, Size: 10, PathId: pathID, Author: "alice", Timestamp: time.Unix(1, 0)}},
	}
	delta2 := scantypes.ScanDelta{
		Blobs:    []scantypes.BlobRow{{Oid: oidV2, PathId: pathID, CumulativeSize: 20, CurrentSize: 20}},
		Metadata: []scantypes.BlobMetaRow{{Oid: oidV2, Size: 20, PathId: pathID, Author: "bob", Timestamp: time.Unix(2, 0)}},
	}

	commitA := hashFor(t, "5555555555555555555555555555555555555555")
	commitB := hashFor(t, "6666666666666666666666666666666666666666")

	if err := store.ApplyScan(delta1, []gitobj.Hash{commitA}, interner); err != nil {
		t.Fatalf("ApplyScan 1: %v", err)
	}
	if err := store.ApplyScan(delta2, []gitobj.Hash{commitB}, interner); err != nil {
		t.Fatalf("ApplyScan 2: %v", err)
	}

	tree, err := store.LoadTree()
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	leaf := tree.Children["file.txt"]
	if leaf.CumulativeSize != 30 {
		t.Errorf("cumulative size = %d, want 30 (10+20)", leaf.CumulativeSize)
	}
	if leaf.CurrentSize != 20 {
		t.Errorf("current size = %d, want 20 (only v2 contributes)", leaf.CurrentSize)
	}
	if leaf.BlobCount != 2 {
		t.Errorf("blob count = %d, want 2", leaf.BlobCount)
	}
}

func TestSqliteStore_TopBlobsOrdering(t *testing.T) {
	store := openTestStore(t)
	interner := pathintern.New()
	pathID := interner.Intern([]byte("f"))

	sizes := []int64{100, 500, 1000, 250}
	hexes := []string{
		"aaaa111111111111111111111111111111111111",
		"aaaa222222222222222222222222222222222222",
		"aaaa333333333333333333333333333333333333",
		"aaaa444444444444444444444444444444444444",
	}
	for i, size := range sizes {
		oid := hashFor(t, hexes[i])
		delta := scantypes.ScanDelta{
			Metadata: []scantypes.BlobMetaRow{{Oid: oid, Size: size, PathId: pathID, Author: "a", Timestamp: time.Unix(int64(i), 0)}},
		}
		if err := store.ApplyScan(delta, nil, interner); err != nil {
			t.Fatalf("ApplyScan %d: %v", i, err)
		}
	}

	top, err := store.TopBlobs(3)
	if err != nil {
		t.Fatalf("TopBlobs: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(top))
	}
	wantSizes := []int64{1000, 500, 250}
	for i, want := range wantSizes {
		if top[i].Size != want {
			t.Errorf("top[%d].Size = %d, want %d", i, top[i].Size, want)
		}
	}
}

func TestEnsureSchema_VersionMismatchRebuilds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	store, err := OpenSqliteStore(path)
	if err != nil {
		t.Fatalf("OpenSqliteStore: %v", err)
	}
	interner := pathintern.New()
	pathID := interner.Intern([]byte("a.txt"))
	oid := hashFor(t, "7777777777777777777777777777777777777777")
	delta := scantypes.ScanDelta{
		Blobs:    []scantypes.BlobRow{{Oid: oid, PathId: pathID, CumulativeSize: 1, CurrentSize: 1}},
		Metadata: []scantypes.BlobMetaRow{{Oid: oid, Size: 1, PathId: pathID, Author: "a", Timestamp: time.Unix(1, 0)}},
	}
	if err := store.ApplyScan(delta, nil, interner); err != nil {
		t.Fatalf("ApplyScan: %v", err)
	}
	if _, err := store.db.Exec(`UPDATE metadata SET value = ? WHERE key = ?`, "bogus-old-version", metaKeySchemaVersion); err != nil {
		t.Fatalf("force version downgrade: %v", err)
	}
	store.Close()

	reopened, err := OpenSqliteStore(path)
	if err != nil {
		t.Fatalf("reopen OpenSqliteStore: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })

	if !reopened.Rebuilt {
		t.Error("expected Rebuilt true after schema_version mismatch")
	}
	tree, err := reopened.LoadTree()
	if err != nil {
		t.Fatalf("LoadTree after rebuild: %v", err)
	}
	if len(tree.Children) != 0 {
		t.Errorf("expected empty tree after rebuild, got %d children", len(tree.Children))
	}
}
