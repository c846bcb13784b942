package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"urlfilter/internal/facade"
)

func newCheckCmd() *cobra.Command {
	var docURL, resType string

	cmd := &cobra.Command{
		Use:   "check <url>",
		Short: "Classify a single URL as blocked or allowed",
		Long: `Builds a filter engine from the configured (or default) filter lists and
reports whether the given URL would be blocked, along with the deciding
rule's pattern text when one matches.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0], docURL, resType)
		},
	}

	cmd.Flags().StringVar(&docURL, "doc-url", "", "originating document URL")
	cmd.Flags().StringVar(&resType, "type", "", "resource type (script, image, stylesheet, document, xmlhttprequest, ...)")

	return cmd
}

func runCheck(cmd *cobra.Command, url, docURL, resType string) error {
	cfg, err := loadConfigFromFlag(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := buildEngine(cfg); err != nil {
		return err
	}
	defer facade.Shutdown()

	blocked, matchedRule, whitelisted := facade.Decide(url, docURL, resType)
	switch {
	case blocked:
		fmt.Printf("BLOCK  %s\n", matchedRule)
	case whitelisted:
		fmt.Println("ALLOW  (whitelisted)")
	case matchedRule != "":
		fmt.Printf("ALLOW  %s\n", matchedRule)
	default:
		fmt.Println("ALLOW")
	}
	return nil
}
