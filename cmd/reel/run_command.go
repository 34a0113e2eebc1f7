package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reel/internal/ipc"
	"reel/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Trigger a pipeline run now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TriggerRun(ipc.TriggerRunRequest{Wait: wait})
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("missing trigger response")
				}
				if !resp.Started {
					if message := strings.TrimSpace(resp.Message); message != "" {
						return errors.New(message)
					}
					return errors.New("run was not started")
				}

				stdout := cmd.OutOrStdout()
				if resp.Run == nil {
					message := strings.TrimSpace(resp.Message)
					if message == "" {
						message = "run started"
					}
					fmt.Fprintln(stdout, message)
					fmt.Fprintln(stdout, "Follow progress with `reel logs --follow`")
					return nil
				}

				renderRunSummary(stdout, resp.Run, shouldColorize(stdout))
				if resp.Run.Status == string(pipeline.RunFailed) {
					if errMsg := strings.TrimSpace(resp.Run.Error); errMsg != "" {
						return errors.New(errMsg)
					}
					return errors.New("run failed")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Block until the run reaches a terminal state")
	return cmd
}

func renderRunSummary(w io.Writer, run *ipc.RunSummary, colorize bool) {
	if run == nil {
		return
	}
	detail := fmt.Sprintf("%s run %s", run.Trigger, run.Status)
	if errMsg := strings.TrimSpace(run.Error); errMsg != "" {
		detail = fmt.Sprintf("%s: %s", detail, errMsg)
	}
	fmt.Fprintln(w, renderStatusLine("Run", runStatusKind(run.Status), detail, colorize))
	if len(run.Steps) == 0 {
		return
	}
	table := renderTable(
		[]string{"#", "Step", "Status", "Duration", "Detail"},
		runStepRows(run),
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
	fmt.Fprintln(w, table)
}

func runStatusKind(status string) statusKind {
	switch status {
	case string(pipeline.RunSucceeded):
		return statusOK
	case string(pipeline.RunFailed):
		return statusError
	default:
		return statusInfo
	}
}

func runStepRows(run *ipc.RunSummary) [][]string {
	rows := make([][]string, 0, len(run.Steps))
	for _, step := range run.Steps {
		detail := strings.TrimSpace(step.Output)
		if errMsg := strings.TrimSpace(step.Error); errMsg != "" {
			detail = errMsg
		}
		rows = append(rows, []string{
			strconv.Itoa(step.Ordinal),
			step.Label,
			step.Status,
			stepDuration(step),
			detail,
		})
	}
	return rows
}

func stepDuration(step ipc.StepSummary) string {
	if step.StartedAt == nil || step.FinishedAt == nil {
		return "-"
	}
	return step.FinishedAt.Sub(*step.StartedAt).Round(10 * time.Millisecond).String()
}
