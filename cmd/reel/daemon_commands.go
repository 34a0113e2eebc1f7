package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reel/internal/daemonctl"
	"reel/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startDiagnostic bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the reel daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx, startDiagnostic),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Message) != "" {
					fmt.Fprintln(stdout, result.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}
	startCmd.Flags().BoolVar(&startDiagnostic, "diagnostic", false, "Enable diagnostic mode with a separate DEBUG log")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the reel daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			} else {
				fmt.Fprintln(stdout, "Stopping daemon...")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, schedule, and publish status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, statusResp)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range systemStatusLines(statusResp, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Checks", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, check := range statusResp.Checks {
				kind := statusError
				if check.Passed {
					kind = statusOK
				}
				fmt.Fprintln(stdout, renderStatusLine(check.Name, kind, check.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Schedule", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if len(statusResp.Schedule) == 0 {
				fmt.Fprintln(stdout, "No weekly slots configured")
			} else {
				rows := make([][]string, 0, len(statusResp.Schedule))
				for _, entry := range statusResp.Schedule {
					rows = append(rows, []string{entry.Weekday, entry.At})
				}
				table := renderTable([]string{"Weekday", "Time"}, rows, []columnAlignment{alignLeft, alignLeft})
				fmt.Fprintln(stdout, table)
			}

			if statusResp.LastRun != nil {
				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Last Run", colorize) {
					fmt.Fprintln(stdout, line)
				}
				renderRunSummary(stdout, statusResp.LastRun, colorize)
			}
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Emit the status snapshot as JSON")

	var restartDiagnostic bool
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the reel daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx, restartDiagnostic),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}

			switch result.Start.State {
			case daemonctl.StartStateStarted, daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon restarted")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Start.Message) != "" {
					fmt.Fprintln(stdout, result.Start.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}
	restartCmd.Flags().BoolVar(&restartDiagnostic, "diagnostic", false, "Enable diagnostic mode with a separate DEBUG log")

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func systemStatusLines(resp *ipc.StatusResponse, colorize bool) []string {
	lines := make([]string, 0, 3)
	if resp.Running {
		detail := "Running"
		if resp.PID > 0 {
			detail = fmt.Sprintf("Running (pid %d)", resp.PID)
		}
		lines = append(lines, renderStatusLine("Reel", statusOK, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Reel", statusWarn, "Not running (run `reel start`)", colorize))
	}

	switch {
	case resp.NextRunAt != nil:
		lines = append(lines, renderStatusLine("Next run", statusInfo, formatFireTime(*resp.NextRunAt), colorize))
	case resp.Running:
		lines = append(lines, renderStatusLine("Next run", statusInfo, "No weekly slots configured", colorize))
	}

	if resp.Progress != nil {
		detail := fmt.Sprintf("%s %.0f%%", resp.Progress.Label, resp.Progress.Percent)
		if msg := strings.TrimSpace(resp.Progress.Message); msg != "" {
			detail = fmt.Sprintf("%s (%s)", detail, msg)
		}
		lines = append(lines, renderStatusLine("Current step", statusInfo, detail, colorize))
	}

	if resp.LastPublished != nil {
		detail := fmt.Sprintf("%s %s", resp.LastPublished.Date, resp.LastPublished.Title)
		if id := strings.TrimSpace(resp.LastPublished.Identifier); id != "" {
			detail = fmt.Sprintf("%s (%s)", detail, id)
		}
		lines = append(lines, renderStatusLine("Last published", statusOK, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Last published", statusInfo, "No publishes recorded", colorize))
	}
	return lines
}

func formatFireTime(at time.Time) string {
	return at.Local().Format("Monday 2006-01-02 15:04")
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, diagnostic bool) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{Diagnostic: diagnostic}
	if path := ctx.configPath(); path != "" {
		opts.ConfigPath = path
	}
	return opts
}
