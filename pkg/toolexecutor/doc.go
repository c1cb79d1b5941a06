// Package toolexecutor adapts plain Go functions into schema-described tools
// and invokes them on behalf of a model.
//
// Invariants:
// - Tool identity is its name; registering a name again replaces the tool.
// - Arguments are coerced and schema-validated before the handler runs.
// - Execute never returns a Go error: every failure is reported inside the
//   ToolResult as a *ToolInvocationError so the caller can hand it to a model.
//
// Usage:
//
//	exec := toolexecutor.New()
//	_ = exec.RegisterTool(toolexecutor.Func("echo", "Echo input",
//		[]toolexecutor.ToolParameter{{Name: "text", Type: "string", Required: true}},
//		func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
//			return params["text"], nil
//		},
//	))
//	res := exec.Execute(ctx, "echo", map[string]interface{}{"text": "hi"}, nil)
package toolexecutor
