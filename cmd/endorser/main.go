// Command endorser maintains allow-lists and auto-endorses ledger writes
// they permit.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/endorser/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
