package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avolkov/unihost/internal/app"
	"github.com/avolkov/unihost/internal/ledger"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [HOST]",
	Short: "Show recent reconcile runs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	return withOfflineApp(func(ctx context.Context, a *app.App) error {
		var entries []*ledger.Entry
		var err error
		if len(args) == 1 {
			entries, err = a.Ledger().ByHost(args[0], historyLimit)
		} else {
			entries, err = a.Ledger().Recent(historyLimit)
		}
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}

		for _, e := range entries {
			line := fmt.Sprintf("%s\t%s\t%s\tchanged=%t\t%s",
				e.StartedAt.Format("2006-01-02T15:04:05Z"),
				e.Host, e.Outcome, e.Changed, e.Duration)
			if e.Error != "" {
				line += "\t" + e.Error
			}
			fmt.Println(line)
		}
		return nil
	})
}
