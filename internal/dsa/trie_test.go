package dsa

import "testing"

func TestTrieInsertGet(t *testing.T) {
	tr := NewTrie[int]()
	tr.Insert("abc", 1)
	tr.Insert("abd", 2)
	tr.Insert("abc", 3)

	if got := tr.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	if v, ok := tr.Get("abc"); !ok || v != 3 {
		t.Errorf("Get(abc) = %d, %v; want 3, true", v, ok)
	}
	if _, ok := tr.Get("ab"); ok {
		t.Error("Get(ab) found a value for a bare prefix")
	}
}

func TestTrieWithPrefix(t *testing.T) {
	tr := NewTrie[string]()
	for _, k := range []string{"3f2a-1", "3f2b-2", "3f9c-3", "a000-4"} {
		tr.Insert(k, k)
	}

	tests := []struct {
		prefix string
		limit  int
		want   []string
	}{
		{"3f2", 0, []string{"3f2a-1", "3f2b-2"}},
		{"3f", 0, []string{"3f2a-1", "3f2b-2", "3f9c-3"}},
		{"3f", 2, []string{"3f2a-1", "3f2b-2"}},
		{"a", 0, []string{"a000-4"}},
		{"zz", 0, nil},
	}
	for _, tt := range tests {
		got := tr.WithPrefix(tt.prefix, tt.limit)
		if len(got) != len(tt.want) {
			t.Errorf("WithPrefix(%q, %d) = %v, want %v", tt.prefix, tt.limit, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("WithPrefix(%q, %d)[%d] = %q, want %q", tt.prefix, tt.limit, i, got[i], tt.want[i])
			}
		}
	}
}

func TestTrieDelete(t *testing.T) {
	tr := NewTrie[int]()
	tr.Insert("k", 1)
	if !tr.Delete("k") {
		t.Error("Delete(k) = false, want true")
	}
	if tr.Delete("k") {
		t.Error("second Delete(k) = true, want false")
	}
	if tr.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tr.Len())
	}
}
