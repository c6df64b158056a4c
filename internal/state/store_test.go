package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetFallsThroughToParent(t *testing.T) {
	root := New(nil)
	root.Set("theme", "dark")
	child := New(root)

	v, ok := child.Get("theme")
	require.True(t, ok)
	assert.Equal(t, "dark", v)
	assert.False(t, child.HasOwn("theme"), "inherited read must not create an own entry")
	assert.Equal(t, 0, child.Len())
}

func TestStore_OwnKeyShadowsParent(t *testing.T) {
	root := New(nil)
	root.Set("theme", "dark")
	child := New(root)
	child.Set("theme", "light")

	v, _ := child.Get("theme")
	assert.Equal(t, "light", v)

	root.Set("theme", "solarized")
	v, _ = child.Get("theme")
	assert.Equal(t, "light", v, "shadowing is permanent once the key is own")

	pv, _ := root.Get("theme")
	assert.Equal(t, "solarized", pv)
}

func TestStore_Owner(t *testing.T) {
	root := New(nil)
	root.Set("a", 1)
	mid := New(root)
	mid.Set("b", 2)
	leaf := New(mid)

	assert.Same(t, root, leaf.Owner("a"))
	assert.Same(t, mid, leaf.Owner("b"))
	assert.Nil(t, leaf.Owner("c"))
	assert.Equal(t, 2, leaf.Depth())
}

func TestStore_MergeIsSortedAndOwn(t *testing.T) {
	root := New(nil)
	s := New(root)
	s.Merge(map[Key]any{"b": 2, "a": 1, "c": 3})

	assert.Equal(t, []Key{"a", "b", "c"}, s.Keys())
	assert.Equal(t, 0, root.Len())
}

func TestStore_DeleteUncoversInherited(t *testing.T) {
	root := New(nil)
	root.Set("k", "parent")
	s := New(root)
	s.Set("k", "own")
	s.Delete("k")

	v, _ := s.Get("k")
	assert.Equal(t, "parent", v)
	assert.Empty(t, s.Keys())
}

func TestStore_Flatten(t *testing.T) {
	root := FromMap(nil, map[Key]any{"a": 1, "b": 1})
	child := FromMap(root, map[Key]any{"b": 2, "c": 2})

	assert.Equal(t, map[Key]any{"a": 1, "b": 2, "c": 2}, child.Flatten())
	assert.Equal(t, map[Key]any{"b": 2, "c": 2}, child.OwnMap())
}

func TestKeyHelpers(t *testing.T) {
	assert.True(t, IsLocal("$mood"))
	assert.False(t, IsLocal("$"), "a bare sigil is an ordinary key")
	assert.False(t, IsLocal("mood"))
	assert.Equal(t, "mood", Bare("$mood"))
	assert.Equal(t, "mood", Bare("mood"))

	assert.True(t, IsReserved(Wildcard))
	assert.True(t, IsReserved(Resolved))
	assert.False(t, IsReserved("mood"))
	assert.NotEqual(t, Wildcard, Resolved)
}

func TestStore_NilSafety(t *testing.T) {
	var s *Store
	assert.Nil(t, s.Parent())
	assert.False(t, s.HasOwn("x"))
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Keys())
	_, ok := s.Get("x")
	assert.False(t, ok)
}
