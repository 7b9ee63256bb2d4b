// Command pdfqa indexes PDFs into a vector store and answers questions about them.
package main

import (
	"os"

	"github.com/custodia-labs/pdfqa/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(wire)
	os.Exit(cli.Execute())
}
