// Package dsa provides the prefix index used by in-memory run storage.
package dsa

import (
	"github.com/armon/go-radix"
)

// Trie is a typed radix tree. Keys sharing a prefix share nodes, so short
// identifier prefixes resolve in O(k) for a prefix of length k.
type Trie[V any] struct {
	tree *radix.Tree
}

// NewTrie creates an empty tree.
func NewTrie[V any]() *Trie[V] {
	return &Trie[V]{tree: radix.New()}
}

// Insert sets key to value, replacing any previous value.
func (t *Trie[V]) Insert(key string, value V) {
	t.tree.Insert(key, value)
}

// Get returns the value stored at key.
func (t *Trie[V]) Get(key string) (V, bool) {
	val, found := t.tree.Get(key)
	if !found {
		var zero V
		return zero, false
	}
	v, ok := val.(V)
	return v, ok
}

// WithPrefix returns up to limit values whose keys start with prefix, in key
// order. A limit below one returns all matches.
func (t *Trie[V]) WithPrefix(prefix string, limit int) []V {
	var out []V
	t.tree.WalkPrefix(prefix, func(_ string, val interface{}) bool {
		if v, ok := val.(V); ok {
			out = append(out, v)
		}
		return limit > 0 && len(out) >= limit
	})
	return out
}

// Delete removes key and reports whether it was present.
func (t *Trie[V]) Delete(key string) bool {
	_, deleted := t.tree.Delete(key)
	return deleted
}

// Len returns the number of keys.
func (t *Trie[V]) Len() int {
	return t.tree.Len()
}
