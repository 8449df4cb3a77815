// Package command assembles the devmux CLI. The root command runs the
// multiplexer; config and version are helper subcommands.
package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/oklog/run"
	"github.com/olebedev/emitter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/devmux/devmux/config"
	"github.com/devmux/devmux/dashboard"
	"github.com/devmux/devmux/engine"
	devmuxctx "github.com/devmux/devmux/internal/context"
	"github.com/devmux/devmux/internal/logging"
	"github.com/devmux/devmux/metrics"
	"github.com/devmux/devmux/registry"
	"github.com/devmux/devmux/utils"
)

const metricsShutdownTimeout = 5 * time.Second

func Root() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "devmux",
		Short: "Tabbed multiplexer for development processes",
		Long: `Devmux supervises long-running development commands, each in its own
pseudo-terminal tab, and multiplexes them onto one terminal with a
tab bar, per-tab scrollback, and an interactive pass-through mode.`,
		Example: `  # Run the tabs declared in the config file
  $ devmux

  # Run with debug logging
  $ devmux --debug

  # Show where the config file lives
  $ devmux config path`,
		RunE: runE,
	}

	rootCmd.PersistentFlags().String("config", "", fmt.Sprintf("config file (default %s)", utils.ShortenHomePath(utils.ConfigFilePath())))
	rootCmd.Flags().Bool("debug", os.Getenv("DEBUG") != "", "log at debug level")
	rootCmd.Flags().String("log-file", "", fmt.Sprintf("log file (default %s)", utils.ShortenHomePath(utils.LogFilePath())))
	rootCmd.Flags().String("sentry-dsn", "", "report errors to this Sentry DSN")
	rootCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.Flags().Int("scrollback", 0, "default retained scrollback rows per tab")

	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func runE(c *cobra.Command, args []string) error {
	cfg, err := config.Load(c)
	if err != nil {
		return err
	}

	logPath := cfg.LogFile
	if logPath == "" {
		logPath = utils.LogFilePath()
	}
	opts := []logging.Option{logging.File(logPath)}
	if cfg.Debug {
		opts = append(opts, logging.Debug())
	}
	if cfg.SentryDSN != "" {
		opts = append(opts, logging.Sentry(cfg.SentryDSN))
	}
	logger, err := logging.New(opts...)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()
	c.SetContext(devmuxctx.WithLogger(c.Context(), logger))

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("devmux needs a terminal on stdin")
	}

	events := emitter.New(uint(len(cfg.Tabs)))
	reg := prometheus.NewRegistry()
	set := metrics.NewSet(reg)

	controllers := make([]*engine.Controller, 0, len(cfg.Tabs))
	for _, tab := range cfg.Tabs {
		argv, err := tab.Argv()
		if err != nil {
			return err
		}
		controllers = append(controllers, engine.NewController(engine.Config{
			Name:       tab.DisplayName(),
			Command:    argv,
			Dir:        tab.Dir,
			Env:        tab.EnvSlice(),
			Autostart:  tab.Autostart,
			Scrollback: cfg.TabScrollback(tab),
			Logger:     logger.Logger,
			Events:     events,
			Metrics:    set,
		}))
	}

	loop := engine.NewLoop(engine.LoopConfig{
		Controllers: controllers,
		Renderer:    dashboard.New(),
		Keys:        registry.Defaults(logger.Logger),
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Logger:      logger.Logger,
	})

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("unable to set terminal to raw mode: %w", err)
	}
	defer func() { _ = term.Restore(int(os.Stdin.Fd()), oldState) }()

	var g run.Group
	g.Add(func() error {
		return loop.Run()
	}, func(err error) {
		loop.RequestQuit()
	})
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(reg)
		g.Add(func() error {
			logger.Info("serving metrics", "addr", cfg.MetricsAddr)
			return srv.ListenAndServe(cfg.MetricsAddr)
		}, func(err error) {
			ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(ctx)
		})
	}

	return g.Run()
}
