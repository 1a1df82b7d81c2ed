package tools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

const defaultScriptTimeout = 60 * time.Second

// NewRunScriptTool returns the run_script tool. Commands run through the
// shell in the workspace root (or a subdirectory) under a wall-clock timeout;
// a timed-out or failing command is reported as a normal success:false result
// so the engine is never left hanging.
func NewRunScriptTool(root string, timeout time.Duration) Tool {
	if timeout <= 0 {
		timeout = defaultScriptTimeout
	}
	spec := Spec{
		Name:        "run_script",
		Description: "Run a build or simulation command inside the workspace and capture its output.",
		Parameters: map[string]Param{
			"command":   {Type: "string", Description: "Shell command to run, e.g. 'make lint' or 'iverilog -o sim alu.v'.", Required: true},
			"directory": {Type: "string", Description: "Working directory relative to the workspace. Defaults to the workspace root.", Required: false},
		},
	}
	return NewFunc(spec, func(ctx context.Context, args map[string]any) (any, error) {
		command := stringArg(args, "command")
		if command == "" {
			return failure("command is empty"), nil
		}

		workdir := root
		if dir := stringArg(args, "directory"); dir != "" && dir != "." {
			resolved, err := resolvePath(root, dir)
			if err != nil {
				return failure("invalid directory: %v", err), nil
			}
			workdir = resolved
		}

		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(runCtx, "sh", "-c", command)
		cmd.Dir = workdir

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		start := time.Now()
		err := cmd.Run()
		elapsed := time.Since(start)

		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return failure("command timed out after %s: %s", timeout, command), nil
		}
		if err != nil {
			out := failure("command failed: %v", err)
			out["stdout"] = stdout.String()
			out["stderr"] = stderr.String()
			return out, nil
		}
		return map[string]any{
			"success":     true,
			"stdout":      stdout.String(),
			"stderr":      stderr.String(),
			"duration_ms": elapsed.Milliseconds(),
		}, nil
	})
}
