package main

import (
	"fmt"
	"os"

	"github.com/roach88/txprop/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "txprop:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
