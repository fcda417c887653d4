// Command threadview keeps a post's comment tree in sync with a live event
// stream.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/threadview/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
