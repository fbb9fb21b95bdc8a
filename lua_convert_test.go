package trinity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func TestFromLua(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		source string
		want   any
	}{
		"nil":      {source: `return nil`, want: nil},
		"bool":     {source: `return true`, want: true},
		"number":   {source: `return 2`, want: float64(2)},
		"string":   {source: `return "hello"`, want: "hello"},
		"sequence": {source: `return { "a", "b" }`, want: []any{"a", "b"}},
		"record":   {source: `return { label = "kept" }`, want: map[string]any{"label": "kept"}},
		"empty":    {source: `return {}`, want: map[string]any{}},
		"mixed": {
			source: `return { label = "kept", "positional" }`,
			want:   map[string]any{"label": "kept", "1": "positional"},
		},
		"holes": {
			source: `return { [1] = "a", [3] = "c" }`,
			want:   map[string]any{"1": "a", "3": "c"},
		},
		"nested": {
			source: `return { items = { "a", { name = "b" } } }`,
			want:   map[string]any{"items": []any{"a", map[string]any{"name": "b"}}},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			L := newLuaState()
			defer L.Close()
			fn, err := L.LoadString(test.source)
			require.NoError(t, err)
			L.Push(fn)
			require.NoError(t, L.PCall(0, 1, nil))
			assert.Equal(t, test.want, fromLua(L.Get(-1)))
		})
	}
}

func TestLuaRoundTrip(t *testing.T) {
	t.Parallel()

	L := newLuaState()
	defer L.Close()

	data := map[string]any{
		"label": "kept",
		"list":  []any{"a", float64(2), true},
		"nested": map[string]any{
			"name": "b",
		},
	}
	assert.Equal(t, data, fromLua(toLua(L, data)))

	// structs go through their JSON encoding
	type item struct {
		Label string `json:"label"`
		Count int    `json:"count"`
	}
	assert.Equal(t, map[string]any{"label": "x", "count": float64(3)}, fromLua(toLua(L, item{Label: "x", Count: 3})))

	var tbl *lua.LTable
	require.IsType(t, tbl, toLua(L, []string{"a"}))
}
