// Command hellovia serves, bundles or runs in a terminal the hello toggle page.
package main

import (
	"os"

	"github.com/ryanhamamura/hellovia/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], cli.StdIO()))
}
