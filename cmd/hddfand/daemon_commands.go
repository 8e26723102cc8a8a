package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"hddfand/internal/daemon"
	"hddfand/internal/daemonctl"
	"hddfand/internal/daemonrun"
)

const defaultRecentActuations = 10

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the hddfand daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, mgr, err := ctx.manager(nil)
			if err != nil {
				return err
			}
			// Sensor and fan problems must surface here, not in a detached process.
			if _, err := daemonrun.Prepare(cfg, nil, ""); err != nil {
				return err
			}
			pid, err := mgr.Start(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "hddfand started (pid %d)\n", pid)
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the hddfand daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := ctx.manager(nil)
			if err != nil {
				return err
			}
			result, err := mgr.Stop(cmd.Context())
			if err != nil {
				return err
			}
			printStopResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the hddfand daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, mgr, err := ctx.manager(nil)
			if err != nil {
				return err
			}
			if _, err := daemonrun.Prepare(cfg, nil, ""); err != nil {
				return err
			}
			stopped, pid, err := mgr.Restart(cmd.Context())
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			printStopResult(stdout, stopped)
			fmt.Fprintf(stdout, "hddfand started (pid %d)\n", pid)
			return nil
		},
	}

	var recent int
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon state, readiness checks and recent fan changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, mgr, err := ctx.manager(nil)
			if err != nil {
				return err
			}
			snapshot, err := daemonctl.BuildStatusSnapshot(cmd.Context(), mgr, cfg, recent)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			renderStatus(stdout, snapshot, shouldColorize(stdout))
			return nil
		},
	}
	statusCmd.Flags().IntVarP(&recent, "recent", "n", defaultRecentActuations, "Number of journal entries to show")

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func printStopResult(w io.Writer, result daemon.StopResult) {
	switch {
	case !result.WasRunning:
		fmt.Fprintln(w, "hddfand is not running")
	case result.Stale:
		fmt.Fprintf(w, "Removed stale lock artifact (pid %d was not running)\n", result.PID)
	case result.Forced:
		fmt.Fprintf(w, "hddfand killed (pid %d ignored SIGTERM)\n", result.PID)
	default:
		fmt.Fprintf(w, "hddfand stopped (pid %d)\n", result.PID)
	}
}
