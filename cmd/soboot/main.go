package main

import (
	"fmt"
	"os"

	"github.com/roach88/sobootstrap/internal/cli"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := cli.NewRootCommand()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
