package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NewGenerateModuleTool returns the generate_module tool: it writes a Verilog
// module skeleton with the requested ports so the model can iterate on a
// compilable starting point instead of a blank file.
func NewGenerateModuleTool(root string) Tool {
	spec := Spec{
		Name:        "generate_module",
		Description: "Generate a Verilog module skeleton with the given name and ports.",
		Parameters: map[string]Param{
			"name":     {Type: "string", Description: "Module name, e.g. 'alu'.", Required: true},
			"ports":    {Type: "array", Description: "Port list; each entry has name, direction (input/output/inout) and optional width.", Required: false},
			"filename": {Type: "string", Description: "Target file, relative to the workspace. Defaults to '<name>.v'.", Required: false},
		},
	}
	return NewFunc(spec, func(_ context.Context, args map[string]any) (any, error) {
		name := strings.TrimSpace(stringArg(args, "name"))
		if name == "" {
			return failure("module name is required"), nil
		}

		ports, err := parsePorts(args["ports"])
		if err != nil {
			return failure("invalid ports: %v", err), nil
		}

		filename := stringArg(args, "filename")
		if filename == "" {
			filename = name + ".v"
		}
		full, err := resolvePath(root, filename)
		if err != nil {
			return failure("invalid filename: %v", err), nil
		}

		source := renderModule(name, ports)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return failure("create directories: %v", err), nil
		}
		if err := os.WriteFile(full, []byte(source), 0o644); err != nil {
			return failure("write %s: %v", filename, err), nil
		}
		return map[string]any{
			"success":  true,
			"message":  fmt.Sprintf("generated module %s with %d ports", name, len(ports)),
			"filename": filename,
		}, nil
	})
}

type port struct {
	name      string
	direction string
	width     int
}

func parsePorts(raw any) ([]port, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", raw)
	}
	var ports []port
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("port %d: expected an object, got %T", i, item)
		}
		p := port{direction: "input", width: 1}
		if v, ok := entry["name"].(string); ok && strings.TrimSpace(v) != "" {
			p.name = strings.TrimSpace(v)
		} else {
			return nil, fmt.Errorf("port %d: name is required", i)
		}
		if v, ok := entry["direction"].(string); ok && v != "" {
			switch v {
			case "input", "output", "inout":
				p.direction = v
			default:
				return nil, fmt.Errorf("port %s: unknown direction %q", p.name, v)
			}
		}
		switch w := entry["width"].(type) {
		case nil:
		case float64:
			if w < 1 {
				return nil, fmt.Errorf("port %s: width must be positive", p.name)
			}
			p.width = int(w)
		case int:
			if w < 1 {
				return nil, fmt.Errorf("port %s: width must be positive", p.name)
			}
			p.width = w
		default:
			return nil, fmt.Errorf("port %s: width must be a number", p.name)
		}
		ports = append(ports, p)
	}
	return ports, nil
}

func renderModule(name string, ports []port) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("module %s (\n", name))
	for i, p := range ports {
		sb.WriteString("    ")
		sb.WriteString(p.direction)
		if p.width > 1 {
			sb.WriteString(fmt.Sprintf(" [%d:0]", p.width-1))
		}
		sb.WriteString(" ")
		sb.WriteString(p.name)
		if i < len(ports)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(");\n\n    // TODO: implement " + name + "\n\nendmodule\n")
	return sb.String()
}
