package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hddfand/internal/daemon"
	"hddfand/internal/daemonctl"
	"hddfand/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground (for service managers)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstance(cmd, ctx, false)
		},
	}
}

func newDaemonStageCommand(ctx *commandContext) *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:    "daemon",
		Short:  "Internal detachment stage launched by start",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch strings.TrimSpace(stage) {
			case daemon.StageSession:
				return continueDetachment(ctx)
			case daemon.StageDetached:
				return runInstance(cmd, ctx, true)
			default:
				return fmt.Errorf("unknown daemon stage %q", stage)
			}
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "Detachment stage (session or detached)")
	return cmd
}

// continueDetachment runs in the session leader: it starts the final stage and
// returns so the leader exits and the final stage is orphaned.
func continueDetachment(ctx *commandContext) error {
	opts := ctx.launchOptions()
	if opts.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve executable: %w", err)
		}
		opts.Executable = exe
	}
	return daemonctl.Launcher(opts).Continue()
}

func runInstance(cmd *cobra.Command, ctx *commandContext, detached bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	runID := daemonrun.NewRunID()
	logger, err := daemonrun.NewLogger(cfg, runID)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	_, mgr, err := ctx.manager(logger)
	if err != nil {
		return err
	}
	return daemonrun.Run(cmd.Context(), cfg, mgr, daemonrun.Options{
		Detached: detached,
		RunID:    runID,
		Logger:   logger,
	})
}
