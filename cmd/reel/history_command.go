package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reel/internal/daemonctl"
	"reel/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent publish history",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := daemonctl.FetchHistory(cmd.Context(), ctx.socketPath(), ctx.configValue(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, map[string]any{"records": records})
			}

			stdout := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(stdout, "No publishes recorded")
				return nil
			}
			table := renderTable(
				[]string{"Date", "Weekday", "Title", "Identifier", "Published"},
				historyRows(records),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(stdout, table)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of records to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the records as JSON")
	return cmd
}

func historyRows(records []ipc.HistoryRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.Date,
			rec.Weekday,
			rec.Title,
			rec.Identifier,
			yesNo(rec.Published),
		})
	}
	return rows
}
