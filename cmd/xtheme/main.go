// Command xtheme previews and simulates storefront themes.
package main

import (
	"fmt"
	"os"

	"github.com/trickstertwo/xtheme/internal/cli"
)

// Build information injected via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)); err != nil {
		os.Exit(1)
	}
}
