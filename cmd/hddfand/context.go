package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"hddfand/internal/config"
	"hddfand/internal/daemon"
	"hddfand/internal/daemonctl"
	"hddfand/internal/logging"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	// executable overrides the binary re-executed by the launcher.
	executable string
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) flagPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(c.flagPath())
		if err != nil {
			if !exists {
				err = fmt.Errorf("load config %s (file not found): %w", path, err)
			} else {
				err = fmt.Errorf("load config %s: %w", path, err)
			}
			c.configErr = err
			return
		}
		c.config = cfg
		if exists {
			c.configPath = path
		}
	})
	return c.config, c.configErr
}

// launchConfigPath is the file the detached stages load. It is absolute
// because the stages run from "/".
func (c *commandContext) launchConfigPath() string {
	if c.configPath != "" {
		return c.configPath
	}
	if path := c.flagPath(); path != "" {
		if expanded, err := config.ExpandPath(path); err == nil {
			return expanded
		}
		return path
	}
	return ""
}

func (c *commandContext) launchOptions() daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{
		Executable: c.executable,
		ConfigPath: c.launchConfigPath(),
	}
}

// cliLogger reports lifecycle warnings of short-lived control commands on
// stderr. Informational records are only shown with --verbose.
func (c *commandContext) cliLogger(cfg *config.Config) *slog.Logger {
	level := "warn"
	if c.verboseFlag != nil && *c.verboseFlag {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) manager(logger *slog.Logger) (*config.Config, *daemon.Manager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if logger == nil {
		logger = c.cliLogger(cfg)
	}
	mgr, err := daemonctl.NewManager(cfg, c.launchOptions(), logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, mgr, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
