package coretools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harun/onion/pkg/toolexecutor"
)

// SearchFunc answers a search query.
type SearchFunc func(ctx context.Context, query string) (string, error)

// Options configures core tool registration.
type Options struct {
	// Enabled limits registration to the named tools. Empty registers all.
	Enabled       []string
	WorkspaceRoot string
	Search        SearchFunc
	Now           func() time.Time
}

// Names lists the built-in tools in registration order.
var Names = []string{"search", "calculate", "get_time", "read_file"}

// Definitions returns the built-in tool definitions selected by opts.
func Definitions(opts Options) ([]toolexecutor.ToolDefinition, error) {
	all := map[string]toolexecutor.ToolDefinition{
		"search":    SearchTool(opts.Search),
		"calculate": CalculateTool(),
		"get_time":  TimeTool(opts.Now),
		"read_file": ReadFileTool(opts.WorkspaceRoot),
	}

	names := opts.Enabled
	if len(names) == 0 {
		names = Names
	}

	defs := make([]toolexecutor.ToolDefinition, 0, len(names))
	for _, name := range names {
		def, ok := all[name]
		if !ok {
			return nil, fmt.Errorf("unknown core tool: %s", name)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// RegisterCoreTools registers the selected built-in tools.
func RegisterCoreTools(executor *toolexecutor.ToolExecutor, opts Options) error {
	if executor == nil {
		return errors.New("tool executor is required")
	}

	defs, err := Definitions(opts)
	if err != nil {
		return err
	}

	for _, tool := range defs {
		if err := executor.RegisterTool(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
	}
	return nil
}

// SearchTool returns the search tool. A nil fn uses an offline responder.
func SearchTool(fn SearchFunc) toolexecutor.ToolDefinition {
	if fn == nil {
		fn = offlineSearch
	}
	return toolexecutor.Func("search", "Search for information.",
		[]toolexecutor.ToolParameter{
			{Name: "query", Type: toolexecutor.TypeString, Description: "What to search for", Required: true},
		},
		func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			query, _ := params["query"].(string)
			if query == "" {
				return nil, errors.New("query cannot be empty")
			}
			return fn(ctx, query)
		},
	)
}

func offlineSearch(_ context.Context, query string) (string, error) {
	return fmt.Sprintf("Search results for '%s': Found relevant information about %s.", query, query), nil
}

// TimeTool returns the get_time tool. A nil now uses time.Now.
func TimeTool(now func() time.Time) toolexecutor.ToolDefinition {
	if now == nil {
		now = time.Now
	}
	return toolexecutor.Func("get_time", "Get the current date and time.",
		[]toolexecutor.ToolParameter{
			{Name: "timezone", Type: toolexecutor.TypeString, Description: "IANA time zone such as Europe/Paris (default local)"},
			{Name: "format", Type: toolexecutor.TypeString, Description: "Go time layout (default 2006-01-02 15:04:05)"},
		},
		func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			t := now()

			if tz, _ := params["timezone"].(string); tz != "" {
				loc, err := time.LoadLocation(tz)
				if err != nil {
					return nil, fmt.Errorf("unknown timezone %q", tz)
				}
				t = t.In(loc)
			}

			layout := "2006-01-02 15:04:05"
			if f, _ := params["format"].(string); f != "" {
				layout = f
			}
			return t.Format(layout), nil
		},
	)
}
