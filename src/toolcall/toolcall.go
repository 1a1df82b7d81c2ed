package toolcall

import "fmt"

// ToolCall is a structured request extracted from a model response. It names
// the operation the model wants to run and the arguments it supplied.
// Values are immutable once created; use WithParameters to derive a copy.
type ToolCall struct {
	Name       string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
	CallID     string         `json:"call_id,omitempty"`
}

// NewToolCall builds a call with a non-nil parameter map and a generated
// call id when none is supplied. Index feeds the generated id.
func NewToolCall(name string, params map[string]any, callID string, index int) ToolCall {
	if params == nil {
		params = map[string]any{}
	}
	if callID == "" {
		callID = fmt.Sprintf("call_%d", index)
	}
	return ToolCall{Name: name, Parameters: params, CallID: callID}
}

// WithParameters returns a copy of the call carrying the given parameters.
// The original call is left untouched.
func (c ToolCall) WithParameters(params map[string]any) ToolCall {
	if params == nil {
		params = map[string]any{}
	}
	return ToolCall{Name: c.Name, Parameters: params, CallID: c.CallID}
}

// ToolResult is the outcome of executing one ToolCall. Exactly one of
// Result/Error is meaningful depending on Success; both may be populated for
// debugging.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Succeed builds a successful result correlated to the given call.
func Succeed(callID string, result any) ToolResult {
	if callID == "" {
		callID = "unknown"
	}
	return ToolResult{CallID: callID, Success: true, Result: result}
}

// Fail builds a failed result correlated to the given call.
func Fail(callID string, err string) ToolResult {
	if callID == "" {
		callID = "unknown"
	}
	return ToolResult{CallID: callID, Success: false, Error: err}
}
