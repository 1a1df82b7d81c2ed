// Package models holds the LLM client collaborators. Each backend satisfies
// the Agent interface; the runtime renders a conversation into a prompt and
// treats the completion as opaque text.
package models

import "context"

// Agent is the minimal language-model contract the runtime depends on.
// Implementations must be safe to retry: a failed call leaves no state
// behind.
type Agent interface {
	Generate(ctx context.Context, prompt string) (any, error)
}
