package cmd

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/user/gopro-telemetry/db"
	"github.com/user/gopro-telemetry/pkg/fileutil"
	"github.com/user/gopro-telemetry/pkg/timeutil"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <dir>",
	Short: "List recorded pipeline steps for a directory",
	Long:  `Print the run journal stored in <dir>, newest steps first.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if !fileutil.Exists(db.PathFor(dir)) {
			fmt.Fprintf(cmd.OutOrStdout(), "No journal in %s\n", dir)
			return nil
		}

		journal, err := db.OpenJournal(dir)
		if err != nil {
			return err
		}
		defer journal.Close()

		entries, err := journal.History(historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No steps recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tVIDEO\tSTEP\tSTATUS\tTOOK\tDETAIL")
		for _, e := range entries {
			detail := e.Error
			if detail == "" && len(e.Paths) > 0 {
				detail = filepath.Base(e.Paths[0])
				if len(e.Paths) > 1 {
					detail += fmt.Sprintf(" (+%d)", len(e.Paths)-1)
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				humanize.Time(e.StartedAt),
				filepath.Base(e.Path),
				e.Step,
				e.Status,
				timeutil.FormatElapsed(e.Duration),
				detail,
			)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "number of steps to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}
