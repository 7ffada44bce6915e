package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/detentsh/testgate/internal/whitelist"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the config and compile every whitelist pattern without running any audit",
	Long: `validate is a dry run: it loads testgate.yml and checks that every
whitelist pattern across every audit compiles as a glob, so a typo in the
config surfaces before a real CI run spends time on it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		groups := map[string][]string{
			"detekt.whitelist":    cfg.Detekt.Whitelist.Patterns,
			"lint.whitelist":      cfg.Lint.Whitelist.Patterns,
			"sqlFts.whitelist":    cfg.SqlFts.Whitelist.Patterns,
			"fixtures.whitelist":  cfg.Fixtures.Whitelist.Patterns,
			"tests.whitelist":     cfg.Tests.Whitelist.Patterns,
			"coverage.whitelist":  cfg.Coverage.Whitelist.Patterns,
			"stack.whitelist":     cfg.Stack.Whitelist.Files,
			"structure.allowList": cfg.Structure.InstrumentedAllowList,
		}

		var bad []string
		for group, patterns := range groups {
			for _, p := range whitelist.Validate(patterns) {
				bad = append(bad, fmt.Sprintf("%s: %q", group, p))
			}
		}

		if len(bad) > 0 {
			for _, b := range bad {
				fmt.Fprintln(cmd.ErrOrStderr(), "invalid pattern:", b)
			}
			return fmt.Errorf("%d invalid whitelist pattern(s)", len(bad))
		}

		fmt.Fprintln(cmd.OutOrStdout(), "config valid")
		return nil
	},
}
