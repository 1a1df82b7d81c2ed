package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var writeFileParams = []string{"filename", "content", "directory"}

func TestAliasResolution(t *testing.T) {
	n := NewNormalizer()

	got := n.Normalize("write_file", map[string]any{"file": "a.v"}, writeFileParams)

	assert.Equal(t, map[string]any{"filename": "a.v"}, got)
}

func TestExactMatchWinsOverAlias(t *testing.T) {
	n := NewNormalizer()

	params := map[string]any{"filename": "a.v", "file": "b.v"}
	got := n.Normalize("write_file", params, writeFileParams)

	// "filename" is already canonical; "file" may not steal it.
	assert.Equal(t, "a.v", got["filename"])
	assert.Equal(t, "b.v", got["file"])
	assert.Equal(t, map[string]any{"filename": "a.v", "file": "b.v"}, params, "input must not be mutated")
}

func TestSubstringContainment(t *testing.T) {
	n := NewNormalizer()

	got := n.Normalize("write_file", map[string]any{"name": "adder.v"}, writeFileParams)

	// "name" is contained in "filename".
	assert.Equal(t, map[string]any{"filename": "adder.v"}, got)
}

func TestCleanedEquality(t *testing.T) {
	n := NewNormalizer()

	got := n.Normalize("write_file", map[string]any{"File-Name": "x.v"}, writeFileParams)

	assert.Equal(t, map[string]any{"filename": "x.v"}, got)
}

func TestUnknownKeysPassThrough(t *testing.T) {
	n := NewNormalizer()

	got := n.Normalize("write_file", map[string]any{"verbosity": 3}, writeFileParams)

	assert.Equal(t, map[string]any{"verbosity": 3}, got)
}

func TestUnknownToolGetsUniversalTableOnly(t *testing.T) {
	n := NewNormalizer()

	got := n.Normalize("synthesize", map[string]any{
		"file":   "top.v",
		"target": "ice40",
	}, []string{"filename", "board"})

	// "file" resolves via the universal table; "target" must pass through
	// even though a substring heuristic might have guessed at "board".
	assert.Equal(t, map[string]any{"filename": "top.v", "target": "ice40"}, got)
}

func TestTotality(t *testing.T) {
	n := NewNormalizer()

	assert.Equal(t, map[string]any{}, n.Normalize("write_file", nil, writeFileParams))
	assert.Equal(t, map[string]any{}, n.Normalize("nope", map[string]any{}, nil))
}

func TestIdempotence(t *testing.T) {
	n := NewNormalizer()

	cases := []struct {
		tool     string
		params   map[string]any
		expected []string
	}{
		{"write_file", map[string]any{"file": "a.v", "text": "module a;"}, writeFileParams},
		{"write_file", map[string]any{"weird_key": 1, "name": "b"}, writeFileParams},
		{"unknown_tool", map[string]any{"file": "x", "blob": true}, nil},
		{"read_file", map[string]any{"path": "c.v"}, []string{"filename"}},
	}

	for _, tc := range cases {
		once := n.Normalize(tc.tool, tc.params, tc.expected)
		twice := n.Normalize(tc.tool, once, tc.expected)
		assert.Equal(t, once, twice, "tool %s params %v", tc.tool, tc.params)
	}
}

func TestCollisionIsDeterministic(t *testing.T) {
	n := NewNormalizer()

	// Both "file" and "filepath" alias to "filename"; the lexicographically
	// first raw key claims it, the other passes through.
	for range 20 {
		got := n.Normalize("write_file", map[string]any{
			"file":     "a.v",
			"filepath": "b.v",
		}, writeFileParams)
		assert.Equal(t, map[string]any{"filename": "a.v", "filepath": "b.v"}, got)
	}
}

func TestExtend(t *testing.T) {
	n := NewNormalizer()
	n.Extend("simulate", map[string]string{"tb": "testbench"})

	got := n.Normalize("simulate", map[string]any{"tb": "tb_alu.v"}, []string{"testbench"})

	assert.Equal(t, map[string]any{"testbench": "tb_alu.v"}, got)
}
