package main

import (
	"fmt"
	"io"
	"os"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout))
}

// execute runs the command line and returns the process exit code.
// Every diagnostic, including the final error, goes to stdout.
func execute(args []string, stdout io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stdout)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stdout, "[!] %v\n", err)
		return 1
	}
	return 0
}
