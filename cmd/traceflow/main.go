// Command traceflow reconstructs ordered user-journey traces from
// unordered identity-policy recorder logs.
package main

import (
	"fmt"
	"os"

	"github.com/kwilcz/traceflow/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
