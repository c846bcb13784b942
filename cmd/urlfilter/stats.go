package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"urlfilter/internal/facade"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print rule count and pattern-form breakdown",
		Long: `Builds the filter engine from configuration and prints the total rule
count, whitelist size, and a breakdown by pattern form and rule kind.
Output is a bordered table on a terminal, plain tab-separated text when
piped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd)
		},
	}

	return cmd
}

func runStats(cmd *cobra.Command) error {
	cfg, err := loadConfigFromFlag(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := buildEngine(cfg); err != nil {
		return err
	}
	defer facade.Shutdown()

	counts := facade.Stats()
	rows := [][]string{
		{"rules (total)", strconv.Itoa(facade.RuleCount())},
		{"  block", strconv.Itoa(counts.Block)},
		{"  allow", strconv.Itoa(counts.Allow)},
		{"domain anchor", strconv.Itoa(counts.DomainAnchor)},
		{"regex", strconv.Itoa(counts.Regex)},
		{"wildcard regex", strconv.Itoa(counts.WildcardRegex)},
		{"substring", strconv.Itoa(counts.Substring)},
		{"whitelist entries", strconv.Itoa(len(cfg.Engine.Whitelist))},
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("METRIC", "VALUE")
		for _, row := range rows {
			_ = table.Append(row[0], row[1])
		}
		return table.Render()
	}

	for _, row := range rows {
		fmt.Printf("%s\t%s\n", row[0], row[1])
	}
	return nil
}
