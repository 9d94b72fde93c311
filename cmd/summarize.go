package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/yxflow/internal/tools"
)

var summaryMapping string

func init() {
	summarizeCmd.Flags().StringVarP(&summaryMapping, "mapping", "m", "", "Connection mapping file whose labels name connections")
	rootCmd.AddCommand(summarizeCmd)
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <workflow>",
	Short: "Print a Markdown summary of a workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := rt.registry.Call(cmd.Context(), "summarize_workflow", tools.Args{
			"workflow": args[0],
			"mapping":  summaryMapping,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		return nil
	},
}
