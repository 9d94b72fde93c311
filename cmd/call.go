package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentic-research/yxflow/internal/tools"
)

func init() {
	rootCmd.AddCommand(callCmd)
}

var callCmd = &cobra.Command{
	Use:   "call <tool> [json-args]",
	Short: "Run one tool and print its result",
	Long: `Run one tool with arguments given as a JSON object, e.g.

  yxflow call find_tools '{"workflow": "etl.yxmd", "plugin_type": "DbFileInput"}'

Use "-" to read the arguments from stdin.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		var raw []byte
		if len(args) == 2 {
			if args[1] == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read arguments: %w", err)
				}
				raw = data
			} else {
				raw = []byte(args[1])
			}
		}
		toolArgs, err := tools.ParseArgs(raw)
		if err != nil {
			return err
		}

		res, err := rt.registry.Call(cmd.Context(), name, toolArgs)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), strings.TrimRight(rt.registry.Failure(name, err).Text, "\n"))
			return fmt.Errorf("%s failed", name)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		return nil
	},
}
