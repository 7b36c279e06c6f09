// Command balancerd drives one partition-balance or leader-balance job
// against a graph metadata store's placement records.
package main

import (
	"fmt"
	"os"

	"github.com/darionyaphet/nebula-storage/cmd/balancerd/commands"
)

func main() {
	if err := commands.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
