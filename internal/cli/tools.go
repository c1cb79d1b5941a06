package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/gosuri/uitable"
	"github.com/harun/onion/pkg/coretools"
	"github.com/harun/onion/pkg/toolexecutor"
	"github.com/spf13/cobra"
)

var toolsAll bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools available to the agent",
	Long: heredoc.Doc(`
		List the built-in tools enabled in the configuration together with
		their parameters. Required parameters are marked with "*".
	`),
	Args: cobra.NoArgs,
	RunE: runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsAll, "all", false, "list every built-in tool, ignoring tools.enabled")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	opts := coretools.Options{}
	if !toolsAll {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		opts.Enabled = cfg.Tools.Enabled
		opts.WorkspaceRoot = cfg.Tools.WorkspaceRoot
	}

	defs, err := coretools.Definitions(opts)
	if err != nil {
		return err
	}

	printTools(cmd.OutOrStdout(), defs)
	return nil
}

func printTools(w io.Writer, defs []toolexecutor.ToolDefinition) {
	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true

	table.AddRow("NAME", "PARAMETERS", "DESCRIPTION")
	for _, def := range defs {
		table.AddRow(def.Name, formatParameters(def.Parameters), def.Description)
	}

	fmt.Fprintln(w, table)
}

func formatParameters(params []toolexecutor.ToolParameter) string {
	if len(params) == 0 {
		return "-"
	}

	parts := make([]string, 0, len(params))
	for _, p := range params {
		name := p.Name
		if p.Required {
			name += "*"
		}
		typ := p.Type
		if typ == "" {
			typ = toolexecutor.TypeAny
		}
		parts = append(parts, fmt.Sprintf("%s:%s", name, typ))
	}
	return strings.Join(parts, ", ")
}
