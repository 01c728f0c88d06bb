// Command phobos decodes, stores, plots and simulates telemetry logs captured
// from the bicycle firmware.
package main

import (
	"context"
	"os"
)

func main() {
	a := newApp()
	err := a.rootCmd().ExecuteContext(context.Background())
	a.close()
	if err != nil {
		os.Exit(1)
	}
}
