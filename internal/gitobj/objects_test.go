package gitobj

import (
	"bytes"
	"compress/zlib"
	"testing"
)

func TestParseCommitBody(t *testing.T) {
	id, _ := NewHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	t.Run("no parents", func(t *testing.T) {
		body := []byte("tree 1111111111111111111111111111111111111111\n" +
			"author Jane Doe <jane@example.com> 1700000000 +0000\n" +
			"\ninitial commit\n")

		commit, err := parseCommitBody(body, id)
		if err != nil {
			t.Fatalf("parseCommitBody failed: %v", err)
		}
		if len(commit.Parents) != 0 {
			t.Errorf("expected 0 parents, got %d", len(commit.Parents))
		}
		if commit.Tree != Hash("1111111111111111111111111111111111111111") {
			t.Errorf("unexpected tree: %s", commit.Tree)
		}
		if commit.Author.Name != "Jane Doe" {
			t.Errorf("unexpected author name: %s", commit.Author.Name)
		}
	})

	t.Run("one parent", func(t *testing.T) {
		body := []byte("tree 1111111111111111111111111111111111111111\n" +
			"parent 2222222222222222222222222222222222222222\n" +
			"author Jane Doe <jane@example.com> 1700000000 +0000\n" +
			"\nsecond commit\n")

		commit, err := parseCommitBody(body, id)
		if err != nil {
			t.Fatalf("parseCommitBody failed: %v", err)
		}
		if len(commit.Parents) != 1 {
			t.Fatalf("expected 1 parent, got %d", len(commit.Parents))
		}
		if commit.Parents[0] != Hash("2222222222222222222222222222222222222222") {
			t.Errorf("unexpected parent: %s", commit.Parents[0])
		}
	})

	t.Run("multiple parents", func(t *testing.T) {
		body := []byte("tree 1111111111111111111111111111111111111111\n" +
			"parent 2222222222222222222222222222222222222222\n" +
			"parent 3333333333333333333333333333333333333333\n" +
			"author Jane Doe <jane@example.com> 1700000000 +0000\n" +
			"\nmerge commit\n")

		commit, err := parseCommitBody(body, id)
		if err != nil {
			t.Fatalf("parseCommitBody failed: %v", err)
		}
		if len(commit.Parents) != 2 {
			t.Fatalf("expected 2 parents, got %d", len(commit.Parents))
		}
	})

	t.Run("missing tree is an error", func(t *testing.T) {
		body := []byte("author Jane Doe <jane@example.com> 1700000000 +0000\n\nno tree\n")
		if _, err := parseCommitBody(body, id); err == nil {
			t.Fatal("expected error for commit with no tree")
		}
	})
}

func TestParseTreeBody(t *testing.T) {
	id, _ := NewHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	var buf bytes.Buffer
	writeEntry := func(mode, name string, hash [20]byte) {
		buf.WriteString(mode)
		buf.WriteByte(' ')
		buf.WriteString(name)
		buf.WriteByte(0)
		buf.Write(hash[:])
	}

	blobHash := hashFromHex("1111111111111111111111111111111111111111")
	treeHash := hashFromHex("2222222222222222222222222222222222222222")
	submoduleHash := hashFromHex("3333333333333333333333333333333333333333")

	writeEntry("100644", "README.md", blobHash)
	writeEntry("040000", "src", treeHash)
	writeEntry("160000", "vendor/lib", submoduleHash)

	tree, err := parseTreeBody(buf.Bytes(), id)
	if err != nil {
		t.Fatalf("parseTreeBody failed: %v", err)
	}
	if len(tree.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(tree.Entries))
	}
	if tree.Entries[0].Type != "blob" {
		t.Errorf("expected blob, got %s", tree.Entries[0].Type)
	}
	if tree.Entries[1].Type != "tree" {
		t.Errorf("expected tree, got %s", tree.Entries[1].Type)
	}
	if tree.Entries[2].Type != "commit" {
		t.Errorf("expected commit (submodule), got %s", tree.Entries[2].Type)
	}
}

func TestReadCompressedData(t *testing.T) {
	data := []byte("blob 13\x00Hello, World!")

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	w.Write(data) //nolint:errcheck
	w.Close()

	result, err := readCompressedData(bytes.NewReader(compressed.Bytes()))
	if err != nil {
		t.Fatalf("readCompressedData failed: %v", err)
	}
	if !bytes.Equal(result, data) {
		t.Errorf("got %q, want %q", result, data)
	}
}

func TestObjectTypeFromHeader(t *testing.T) {
	tests := []struct {
		header string
		want   byte
	}{
		{"commit 123", packObjectCommit},
		{"tree 123", packObjectTree},
		{"blob 123", packObjectBlob},
		{"tag 123", packObjectTag},
	}

	for _, tt := range tests {
		got, err := objectTypeFromHeader(tt.header)
		if err != nil {
			t.Fatalf("objectTypeFromHeader(%q) failed: %v", tt.header, err)
		}
		if got != tt.want {
			t.Errorf("objectTypeFromHeader(%q) = %d, want %d", tt.header, got, tt.want)
		}
	}

	if _, err := objectTypeFromHeader("bogus"); err == nil {
		t.Fatal("expected error for malformed header")
	}
}
