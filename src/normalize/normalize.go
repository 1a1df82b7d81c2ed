// Package normalize rewrites tool-call parameter names onto the canonical
// names a tool's implementation expects. Models routinely invent close-but-
// wrong names ("file" for "filename", "dir" for "directory"); rather than
// failing the call, the normalizer maps them using per-tool alias tables and
// two schema-driven fallbacks.
package normalize

import (
	"sort"
	"strings"
)

// aliasTables holds hand-authored alias mappings for the common built-in
// tools, keyed by tool name. Kept as static data, separate from the matching
// algorithm.
var aliasTables = map[string]map[string]string{
	"write_file": {
		"file":     "filename",
		"path":     "filename",
		"filepath": "filename",
		"text":     "content",
		"data":     "content",
		"body":     "content",
		"dir":      "directory",
	},
	"read_file": {
		"file":     "filename",
		"path":     "filename",
		"filepath": "filename",
		"name":     "filename",
	},
	"list_directory": {
		"dir":    "directory",
		"path":   "directory",
		"folder": "directory",
	},
	"run_script": {
		"cmd":    "command",
		"script": "command",
		"dir":    "directory",
	},
	"generate_module": {
		"module":      "name",
		"module_name": "name",
		"file":        "filename",
	},
}

// universalAliases is the only table applied to tools that have no
// hand-authored table of their own.
var universalAliases = map[string]string{
	"file": "filename",
	"path": "file_path",
	"dir":  "directory",
	"text": "content",
	"data": "content",
}

// Normalizer canonicalizes parameter maps.
type Normalizer struct {
	tables map[string]map[string]string
}

// NewNormalizer returns a normalizer seeded with the built-in alias tables.
func NewNormalizer() *Normalizer {
	return &Normalizer{tables: aliasTables}
}

// Extend registers an alias table for a tool, replacing any existing one.
// The built-in tables are never mutated.
func (n *Normalizer) Extend(tool string, aliases map[string]string) {
	merged := make(map[string]map[string]string, len(n.tables)+1)
	for k, v := range n.tables {
		merged[k] = v
	}
	merged[strings.ToLower(tool)] = aliases
	n.tables = merged
}

// Normalize maps raw parameter names onto the names in expected. For tools
// with a known alias table the resolution order is: exact alias match, then
// substring containment against expected names, then cleaned-string equality
// (underscores/hyphens stripped). Tools without a table get only a small
// universal alias set. Keys that never resolve pass through unchanged; the
// input map is not modified and the result is always non-nil.
//
// Normalize is pure and idempotent: normalizing an already-normalized map
// returns an equal map.
func (n *Normalizer) Normalize(tool string, params map[string]any, expected []string) map[string]any {
	out := make(map[string]any, len(params))
	if len(params) == 0 {
		return out
	}

	table, hasTable := n.tables[strings.ToLower(tool)]

	expectedSet := make(map[string]bool, len(expected))
	for _, name := range expected {
		expectedSet[name] = true
	}

	// Sorted key order keeps collision resolution deterministic regardless
	// of map iteration order.
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// A canonical name can only be claimed once; keys already present in the
	// input and keys resolved earlier both count as claims.
	claimed := make(map[string]bool, len(params))
	for key := range params {
		claimed[key] = true
	}

	for _, key := range keys {
		target := key
		switch {
		case expectedSet[key]:
			// Already canonical; never rewritten. This is what makes the
			// whole pass idempotent.
		case !hasTable:
			if canonical, ok := universalAliases[strings.ToLower(key)]; ok && !claimed[canonical] {
				target = canonical
			}
		default:
			target = resolveAgainstSchema(key, table, expected, claimed)
		}
		if target != key {
			claimed[target] = true
		}
		out[target] = params[key]
	}
	return out
}

func resolveAgainstSchema(key string, table map[string]string, expected []string, claimed map[string]bool) string {
	if canonical, ok := table[strings.ToLower(key)]; ok && !claimed[canonical] {
		return canonical
	}
	if canonical, ok := matchBySubstring(key, expected, claimed); ok {
		return canonical
	}
	if canonical, ok := matchCleaned(key, expected, claimed); ok {
		return canonical
	}
	return key
}

func matchBySubstring(key string, expected []string, claimed map[string]bool) (string, bool) {
	lower := strings.ToLower(key)
	for _, name := range expected {
		candidate := strings.ToLower(name)
		if strings.Contains(candidate, lower) || strings.Contains(lower, candidate) {
			if !claimed[name] {
				return name, true
			}
		}
	}
	return "", false
}

func matchCleaned(key string, expected []string, claimed map[string]bool) (string, bool) {
	cleaned := cleanName(key)
	for _, name := range expected {
		if cleanName(name) == cleaned && !claimed[name] {
			return name, true
		}
	}
	return "", false
}

func cleanName(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}
