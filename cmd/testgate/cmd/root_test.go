package cmd

import "testing"

func TestRootCommandUse(t *testing.T) {
	if rootCmd.Use != "testgate" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "testgate")
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	want := []string{"run", "validate", "version"}

	have := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}

	for _, name := range want {
		if !have[name] {
			t.Errorf("rootCmd missing subcommand %q", name)
		}
	}
}
