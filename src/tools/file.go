package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolvePath confines rel to the workspace root. Escapes via ".." or
// absolute paths are rejected.
func resolvePath(root, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", fmt.Errorf("path is empty")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute paths are not allowed: %s", rel)
	}
	full := filepath.Clean(filepath.Join(root, rel))
	rootClean := filepath.Clean(root)
	if full != rootClean && !strings.HasPrefix(full, rootClean+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes the workspace: %s", rel)
	}
	return full, nil
}

func failure(format string, args ...any) map[string]any {
	return map[string]any{"success": false, "error": fmt.Sprintf(format, args...)}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// NewWriteFileTool returns the write_file tool rooted at workspace root.
func NewWriteFileTool(root string) Tool {
	spec := Spec{
		Name:        "write_file",
		Description: "Write content to a file inside the workspace, creating parent directories as needed.",
		Parameters: map[string]Param{
			"filename":  {Type: "string", Description: "Path of the file, relative to the workspace.", Required: true},
			"content":   {Type: "string", Description: "Full file content to write.", Required: true},
			"directory": {Type: "string", Description: "Optional subdirectory to prepend to the filename.", Required: false},
		},
	}
	return NewFunc(spec, func(_ context.Context, args map[string]any) (any, error) {
		filename := stringArg(args, "filename")
		if dir := stringArg(args, "directory"); dir != "" {
			filename = filepath.Join(dir, filename)
		}
		full, err := resolvePath(root, filename)
		if err != nil {
			return failure("invalid filename: %v", err), nil
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return failure("create directories: %v", err), nil
		}
		content := stringArg(args, "content")
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return failure("write %s: %v", filename, err), nil
		}
		return map[string]any{
			"success":  true,
			"message":  fmt.Sprintf("wrote %d bytes to %s", len(content), filename),
			"filename": filename,
		}, nil
	})
}

// NewReadFileTool returns the read_file tool rooted at workspace root.
func NewReadFileTool(root string) Tool {
	spec := Spec{
		Name:        "read_file",
		Description: "Read a file from the workspace and return its content.",
		Parameters: map[string]Param{
			"filename": {Type: "string", Description: "Path of the file, relative to the workspace.", Required: true},
		},
	}
	return NewFunc(spec, func(_ context.Context, args map[string]any) (any, error) {
		filename := stringArg(args, "filename")
		full, err := resolvePath(root, filename)
		if err != nil {
			return failure("invalid filename: %v", err), nil
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return failure("read %s: %v", filename, err), nil
		}
		return map[string]any{
			"success":  true,
			"filename": filename,
			"content":  string(data),
		}, nil
	})
}

// NewListDirectoryTool returns the list_directory tool rooted at workspace
// root.
func NewListDirectoryTool(root string) Tool {
	spec := Spec{
		Name:        "list_directory",
		Description: "List the entries of a workspace directory.",
		Parameters: map[string]Param{
			"directory": {Type: "string", Description: "Directory to list, relative to the workspace. Defaults to the workspace root.", Required: false},
		},
	}
	return NewFunc(spec, func(_ context.Context, args map[string]any) (any, error) {
		dir := stringArg(args, "directory")
		full := root
		if dir != "" && dir != "." {
			var err error
			full, err = resolvePath(root, dir)
			if err != nil {
				return failure("invalid directory: %v", err), nil
			}
		}
		entries, err := os.ReadDir(full)
		if err != nil {
			return failure("list %s: %v", dir, err), nil
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
		return map[string]any{
			"success": true,
			"entries": names,
		}, nil
	})
}
