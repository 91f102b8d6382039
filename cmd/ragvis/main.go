// Command ragvis answers questions from ingested documents and projects the
// corpus into 3D.
package main

import (
	"os"

	"github.com/SanjayDoppalapudi/RAG/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
