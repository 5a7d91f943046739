// Command civil loads type definitions, runs simulations, and inspects
// recorded traces.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/civil/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
