// Package engine executes tool calls against a catalog with bounded retry.
// Unknown tools fail immediately; tool-internal failures (an error return, a
// panic, or a result map carrying success:false) are retried up to the
// configured bound with a constant delay between attempts.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/hdlforge/go-hdlforge/src/concurrent"
	"github.com/hdlforge/go-hdlforge/src/events"
	"github.com/hdlforge/go-hdlforge/src/normalize"
	"github.com/hdlforge/go-hdlforge/src/toolcall"
	"github.com/hdlforge/go-hdlforge/src/tools"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = time.Second
)

// ErrUnknownTool marks a call to a tool absent from the catalog.
var ErrUnknownTool = errors.New("unknown tool")

// Options configure an Engine.
type Options struct {
	Catalog     tools.Catalog
	Normalizer  *normalize.Normalizer
	MaxAttempts int           // total tries per call; default 3
	RetryDelay  time.Duration // constant delay between tries; default 1s
	Sink        events.Sink
}

// Engine resolves and executes tool calls.
type Engine struct {
	catalog     tools.Catalog
	normalizer  *normalize.Normalizer
	maxAttempts int
	retryDelay  time.Duration
	sink        events.Sink
}

// New creates an Engine with the provided options.
func New(opts Options) (*Engine, error) {
	if opts.Catalog == nil {
		return nil, errors.New("engine requires a tool catalog")
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = normalize.NewNormalizer()
	}
	return &Engine{
		catalog:     opts.Catalog,
		normalizer:  normalizer,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		sink:        opts.Sink,
	}, nil
}

// outcome is the result classification of one attempt. The retry loop
// pattern-matches on it rather than using errors for control flow.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetryable
	outcomeFatal
)

type attempt struct {
	outcome outcome
	result  any
	err     string
}

// Execute runs one tool call to completion and returns the final result.
// Intermediate failed attempts are visible only through the event sink.
func (e *Engine) Execute(ctx context.Context, call toolcall.ToolCall) toolcall.ToolResult {
	tool, spec, ok := e.catalog.Lookup(call.Name)
	if !ok {
		msg := e.unknownToolMessage(call.Name)
		events.Emit(e.sink, events.Event{
			Kind:   events.ToolCallFailed,
			Tool:   call.Name,
			CallID: call.CallID,
			Error:  msg,
		})
		return toolcall.Fail(call.CallID, msg)
	}

	normalized := e.normalizer.Normalize(call.Name, call.Parameters, spec.ParameterNames())
	if !parametersEqual(normalized, call.Parameters) {
		call = call.WithParameters(normalized)
	}

	var last attempt
	for try := 1; try <= e.maxAttempts; try++ {
		events.Emit(e.sink, events.Event{
			Kind:    events.ToolCallStarted,
			Tool:    call.Name,
			CallID:  call.CallID,
			Attempt: try,
		})

		start := time.Now()
		last = invokeOnce(ctx, tool, call.Parameters)
		elapsed := time.Since(start)

		switch last.outcome {
		case outcomeSuccess:
			events.Emit(e.sink, events.Event{
				Kind:     events.ToolCallSucceeded,
				Tool:     call.Name,
				CallID:   call.CallID,
				Attempt:  try,
				Duration: elapsed,
				Success:  true,
			})
			return toolcall.Succeed(call.CallID, last.result)
		case outcomeFatal:
			events.Emit(e.sink, events.Event{
				Kind:     events.ToolCallFailed,
				Tool:     call.Name,
				CallID:   call.CallID,
				Attempt:  try,
				Duration: elapsed,
				Error:    last.err,
			})
			return toolcall.Fail(call.CallID, last.err)
		case outcomeRetryable:
			events.Emit(e.sink, events.Event{
				Kind:     events.ToolCallFailed,
				Tool:     call.Name,
				CallID:   call.CallID,
				Attempt:  try,
				Duration: elapsed,
				Error:    last.err,
			})
		}

		if try < e.maxAttempts {
			select {
			case <-ctx.Done():
				return toolcall.Fail(call.CallID, fmt.Sprintf("%s (canceled: %v)", last.err, ctx.Err()))
			case <-time.After(e.retryDelay):
			}
		}
	}

	return toolcall.Fail(call.CallID,
		fmt.Sprintf("%s (retries exhausted after %d attempts)", last.err, e.maxAttempts))
}

// ExecuteAll runs calls sequentially in the given order. This is the path the
// conversation loop uses; ordering of results matches the input.
func (e *Engine) ExecuteAll(ctx context.Context, calls []toolcall.ToolCall) []toolcall.ToolResult {
	results := make([]toolcall.ToolResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, e.Execute(ctx, call))
	}
	return results
}

// ExecuteAllParallel runs calls with bounded concurrency. Results keep input
// order but execution order is unspecified; only callers that do not depend
// on ordering should use it.
func (e *Engine) ExecuteAllParallel(ctx context.Context, calls []toolcall.ToolCall, maxConcurrency int) []toolcall.ToolResult {
	results, _ := concurrent.ParallelMap(ctx, calls, func(call toolcall.ToolCall) (toolcall.ToolResult, error) {
		return e.Execute(ctx, call), nil
	}, maxConcurrency)
	return results
}

// invokeOnce runs the tool and classifies the outcome. A panic inside a tool
// is contained and treated like any other tool-internal failure.
func invokeOnce(ctx context.Context, tool tools.Tool, params map[string]any) (out attempt) {
	defer func() {
		if r := recover(); r != nil {
			out = attempt{outcome: outcomeRetryable, err: fmt.Sprintf("tool panicked: %v", r)}
		}
	}()

	result, err := tool.Invoke(ctx, params)
	if err != nil {
		return attempt{outcome: outcomeRetryable, err: err.Error()}
	}

	if m, ok := result.(map[string]any); ok {
		if success, ok := m["success"].(bool); ok && !success {
			msg, _ := m["error"].(string)
			if msg == "" {
				msg = "tool reported failure without an error message"
			}
			return attempt{outcome: outcomeRetryable, result: result, err: msg}
		}
	}
	return attempt{outcome: outcomeSuccess, result: result}
}

func (e *Engine) unknownToolMessage(name string) string {
	names := e.catalog.Names()
	msg := fmt.Sprintf("%v: %q", ErrUnknownTool, name)
	if len(names) == 0 {
		return msg + "; no tools are registered"
	}
	msg += "; available tools: " + strings.Join(names, ", ")
	if matches := fuzzy.Find(name, names); len(matches) > 0 {
		msg += fmt.Sprintf(" (did you mean %q?)", matches[0].Str)
	}
	return msg
}

func parametersEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
