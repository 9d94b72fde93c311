package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/yxflow/internal/tools"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", tools.DefaultHistoryLimit, "Maximum number of entries")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [workflow]",
	Short: "Show journaled edits, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if rt.journal == nil {
			return fmt.Errorf("the journal is disabled; enable it with --journal or journal.enabled")
		}
		var path string
		if len(args) == 1 {
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			path = abs
		}
		entries, err := rt.journal.List(cmd.Context(), path, historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, e := range entries {
			fmt.Fprintf(out, "%s  %s  %s\n", e.RecordedAt.Local().Format(time.RFC3339), e.Operation, e.Workflow)
			for _, c := range e.Changes {
				fmt.Fprintf(out, "    %s\n", c)
			}
		}
		return nil
	},
}
