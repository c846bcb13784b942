package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"urlfilter/internal/facade"
	"urlfilter/internal/logging"
	"urlfilter/internal/metrics"
	"urlfilter/internal/watch"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Hot-reload filter lists on change",
		Long: `Builds the filter engine from configuration, then watches each configured
list source: the literal directory before the first wildcard component of a
glob pattern, or the path itself for a pattern with no wildcard. On a
create/write/remove/rename event, the
engine is fully rebuilt (defaults plus all configured sources) and swapped
in atomically. Runs until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd)
		},
	}

	return cmd
}

func runWatch(cmd *cobra.Command) error {
	cfg, err := loadConfigFromFlag(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := buildEngine(cfg); err != nil {
		return err
	}
	defer facade.Shutdown()

	if len(cfg.Engine.Lists) == 0 {
		return fmt.Errorf("urlfilter watch: no engine.lists configured, nothing to watch")
	}

	errorLogger, _ := logging.NewErrorLogger(cfg.Logging.Dir + "/watch-errors.log")
	logger := logging.NewComponentLogger("watch", errorLogger, nil)

	reload := func() error {
		if !facade.ReloadAll(cfg.Engine.DisableDefault, cfg.Engine.Lists, cfg.Engine.Whitelist) {
			return fmt.Errorf("rebuild failed")
		}
		metrics.SetRulesLoaded(facade.RuleCount())
		return nil
	}

	w, err := watch.New(cfg.Engine.Lists, reload, logger)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	fmt.Printf("watching %d list source(s), %d rules loaded\n", len(cfg.Engine.Lists), facade.RuleCount())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w.Run(ctx)
	return nil
}
