package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoke(t *testing.T, tool Tool, args map[string]any) map[string]any {
	t.Helper()
	out, err := tool.Invoke(context.Background(), args)
	require.NoError(t, err)
	result, ok := out.(map[string]any)
	require.True(t, ok, "tool result should be a map, got %T", out)
	return result
}

func TestWriteAndReadFile(t *testing.T) {
	root := t.TempDir()

	wrote := invoke(t, NewWriteFileTool(root), map[string]any{
		"filename": "rtl/adder.v",
		"content":  "module adder;\nendmodule\n",
	})
	assert.Equal(t, true, wrote["success"])

	read := invoke(t, NewReadFileTool(root), map[string]any{"filename": "rtl/adder.v"})
	assert.Equal(t, true, read["success"])
	assert.Equal(t, "module adder;\nendmodule\n", read["content"])
}

func TestWriteFileRejectsEscapes(t *testing.T) {
	root := t.TempDir()

	for _, filename := range []string{"../outside.v", "/etc/passwd", "a/../../b.v"} {
		result := invoke(t, NewWriteFileTool(root), map[string]any{
			"filename": filename,
			"content":  "x",
		})
		assert.Equal(t, false, result["success"], "filename %q must be rejected", filename)
	}
}

func TestReadMissingFileReportsFailure(t *testing.T) {
	root := t.TempDir()

	result := invoke(t, NewReadFileTool(root), map[string]any{"filename": "nope.v"})
	assert.Equal(t, false, result["success"])
	assert.NotEmpty(t, result["error"])
}

func TestListDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "rtl"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Makefile"), []byte("all:\n"), 0o644))

	result := invoke(t, NewListDirectoryTool(root), map[string]any{})
	assert.Equal(t, true, result["success"])
	assert.ElementsMatch(t, []string{"rtl/", "Makefile"}, result["entries"])
}

func TestRunScriptCapturesOutput(t *testing.T) {
	root := t.TempDir()

	result := invoke(t, NewRunScriptTool(root, time.Minute), map[string]any{
		"command": "echo hello",
	})
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "hello\n", result["stdout"])
}

func TestRunScriptFailureIsDataNotError(t *testing.T) {
	root := t.TempDir()

	result := invoke(t, NewRunScriptTool(root, time.Minute), map[string]any{
		"command": "exit 3",
	})
	assert.Equal(t, false, result["success"])
	assert.Contains(t, result["error"], "command failed")
}

func TestRunScriptTimeout(t *testing.T) {
	root := t.TempDir()

	result := invoke(t, NewRunScriptTool(root, 50*time.Millisecond), map[string]any{
		"command": "sleep 5",
	})
	assert.Equal(t, false, result["success"])
	assert.Contains(t, result["error"], "timed out")
}

func TestGenerateModule(t *testing.T) {
	root := t.TempDir()

	result := invoke(t, NewGenerateModuleTool(root), map[string]any{
		"name": "alu",
		"ports": []any{
			map[string]any{"name": "clk"},
			map[string]any{"name": "a", "width": float64(8)},
			map[string]any{"name": "result", "direction": "output", "width": float64(8)},
		},
	})
	assert.Equal(t, true, result["success"])

	data, err := os.ReadFile(filepath.Join(root, "alu.v"))
	require.NoError(t, err)
	source := string(data)
	assert.Contains(t, source, "module alu (")
	assert.Contains(t, source, "input clk")
	assert.Contains(t, source, "input [7:0] a")
	assert.Contains(t, source, "output [7:0] result")
	assert.Contains(t, source, "endmodule")
}

func TestGenerateModuleValidatesPorts(t *testing.T) {
	root := t.TempDir()

	result := invoke(t, NewGenerateModuleTool(root), map[string]any{
		"name":  "alu",
		"ports": []any{map[string]any{"direction": "input"}},
	})
	assert.Equal(t, false, result["success"])
}

func TestCatalogRegisterOverwrites(t *testing.T) {
	catalog := NewStaticCatalog(nil)

	first := NewFunc(Spec{Name: "echo", Description: "v1"}, func(context.Context, map[string]any) (any, error) { return "v1", nil })
	second := NewFunc(Spec{Name: "Echo", Description: "v2"}, func(context.Context, map[string]any) (any, error) { return "v2", nil })

	require.NoError(t, catalog.Register(first))
	require.NoError(t, catalog.Register(second))

	_, spec, ok := catalog.Lookup("echo")
	require.True(t, ok)
	assert.Equal(t, "v2", spec.Description)
	assert.Equal(t, []string{"echo"}, catalog.Names())
}

func TestCatalogRejectsInvalid(t *testing.T) {
	catalog := NewStaticCatalog(nil)
	assert.Error(t, catalog.Register(nil))
	assert.Error(t, catalog.Register(NewFunc(Spec{Name: "  "}, func(context.Context, map[string]any) (any, error) { return nil, nil })))
}
