package main

import (
	"fmt"
	"os"

	"github.com/detentsh/testgate/cmd/testgate/cmd"
	"github.com/detentsh/testgate/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	defer telemetry.RecoverAndReport()
	cleanup := telemetry.Init(cmd.Version)
	defer cleanup()

	if err := cmd.Execute(); err != nil {
		telemetry.CaptureError(err)
		fmt.Fprintln(os.Stderr, "testgate: "+err.Error())
		return 1
	}
	return 0
}
