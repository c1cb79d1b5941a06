// Package agent turns a task into rounds of model calls and tool dispatch and
// records every run through a history.Recorder.
//
// Invariants:
// - Tool requests from one model response run sequentially, in order.
// - Tool failures are fed back to the model and never abort the run.
// - The number of model calls per run is bounded by MaxIterations.
// - Every Run persists exactly one TaskRecord; only a persistence failure is
//   returned as an error.
//
// Usage:
//
//	gw, _ := agent.NewGateway(ctx, agent.ProviderConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: key})
//	a, _ := agent.New(agent.Config{Name: "assistant", Gateway: gw, Tools: tools, Recorder: rec})
//	answer, err := a.Run(ctx, "What is 42 * 17?")
package agent
