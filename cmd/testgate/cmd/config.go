package cmd

import (
	"os"

	"github.com/detentsh/testgate/internal/config"
)

// loadConfig reads configPath, falling back to all-defaults when the file
// doesn't exist at all (a module with nothing to override is the common
// case), and propagating any other read/parse failure.
func loadConfig(path string) (config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}
