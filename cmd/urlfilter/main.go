// Command urlfilter is a CLI around the synchronous URL filtering engine:
// it can classify a single URL, run a demonstration forward proxy in front
// of real traffic, hot-reload filter lists from disk, and print engine
// statistics.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"urlfilter/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "urlfilter",
		Short: "AdBlock/EasyList-style URL filtering engine",
		Long: `urlfilter compiles AdBlock/EasyList-style filter lists into an in-memory
rule set and decides, for a given (url, document_url, resource_type) triple,
whether a request should be blocked or allowed.`,
		Version:               version.Version,
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		SilenceErrors:         true,
	}

	rootCmd.PersistentFlags().String("config", "", "path to config.toml (default: "+defaultConfigHint()+")")

	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newStatsCmd())

	rootCmd.SetVersionTemplate(fmt.Sprintf("urlfilter %s (built: %s)\n", version.FullVersion(), version.Date))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
