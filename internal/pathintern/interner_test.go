package pathintern

import "testing"

func TestIntern_StableAndDense(t *testing.T) {
	in := New()

	id1 := in.Intern([]byte("src/main.go"))
	id2 := in.Intern([]byte("src/lib.go"))
	id3 := in.Intern([]byte("src/main.go"))

	if id1 != id3 {
		t.Errorf("equal byte sequences got distinct ids: %d != %d", id1, id3)
	}
	if id1 == id2 {
		t.Errorf("distinct byte sequences got the same id")
	}
	if id1 != 0 || id2 != 1 {
		t.Errorf("ids are not zero-based dense indices: id1=%d id2=%d", id1, id2)
	}
	if in.Len() != 2 {
		t.Errorf("Len() = %d, want 2", in.Len())
	}
}

func TestIntern_MutationAfterInternDoesNotAffectStoredCopy(t *testing.T) {
	in := New()

	buf := []byte("mutable")
	id := in.Intern(buf)
	buf[0] = 'X'

	if got := in.GetStr(id); got != "mutable" {
		t.Errorf("GetStr() = %q, want %q (interner copied the slice)", got, "mutable")
	}
}

func TestGetBytes_ReturnsOriginalContent(t *testing.T) {
	in := New()
	id := in.Intern([]byte("a/b/c"))

	if got := string(in.GetBytes(id)); got != "a/b/c" {
		t.Errorf("GetBytes() = %q, want %q", got, "a/b/c")
	}
}
