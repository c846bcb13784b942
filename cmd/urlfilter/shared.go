package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"urlfilter/internal/config"
	"urlfilter/internal/facade"
	"urlfilter/internal/logging"
	"urlfilter/internal/metrics"
)

func defaultConfigHint() string {
	if p := config.ConfigPath(); p != "" {
		return p
	}
	return "~/.config/urlfilter/config.toml"
}

// loadConfigFromFlag reads the --config flag (falling back to the default
// path) and loads it, returning a ready-to-use Config.
func loadConfigFromFlag(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.LoadConfig()
	}
	return config.LoadFrom(path)
}

// buildEngine initializes the package-wide facade from cfg: the embedded
// default list (unless disabled), every glob-matched list file, and the
// configured whitelist. It also points the facade's ComponentLogger at
// engine-errors.log under cfg.Logging.Dir (plus any configured receivers),
// so rule-compile warnings and lifecycle transitions are recorded there.
func buildEngine(cfg *config.Config) error {
	errorLogger, _ := logging.NewErrorLogger(cfg.Logging.Dir + "/engine-errors.log")
	dispatcher, _ := logging.NewDispatcherFromConfig(cfg.Logging.Receivers, cfg.Logging.Attributes, cfg.Logging.Dir)
	facade.SetLogger(logging.NewComponentLogger("filter", errorLogger, dispatcher))

	if !facade.ReloadAll(cfg.Engine.DisableDefault, cfg.Engine.Lists, cfg.Engine.Whitelist) {
		return fmt.Errorf("urlfilter: failed to build filter engine from configuration")
	}
	metrics.SetRulesLoaded(facade.RuleCount())
	return nil
}
