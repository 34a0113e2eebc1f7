package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reel/internal/daemonctl"
)

func newNextCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show the next scheduled run time",
		RunE: func(cmd *cobra.Command, args []string) error {
			at, scheduled, err := daemonctl.NextFireTime(ctx.socketPath(), ctx.configValue())
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			if !scheduled || at == nil {
				fmt.Fprintln(stdout, "No weekly slots configured")
				return nil
			}
			fmt.Fprintf(stdout, "Next run: %s\n", formatFireTime(*at))
			return nil
		},
	}
}
