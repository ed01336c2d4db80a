// Command tierprobe drives functions through the tiering state machine
// and checks that optimization survives calls that raise.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tierprobe/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
