// Package main is the pwkeeper command-line password vault.
package main

import (
	"context"
	"os"

	"github.com/awnumar/memguard"
	"golang.org/x/term"

	"github.com/atinyakov/pwkeeper/internal/cli"
	"github.com/atinyakov/pwkeeper/internal/clierror"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Purge key material and exit on interrupt.
	memguard.CatchInterrupt()
	os.Exit(run(os.Args[1:]))
}

// run executes one command and returns the process exit code. Every
// memguard buffer is destroyed before it returns.
func run(args []string) int {
	defer memguard.Purge()

	app := &cli.App{
		Spinner:   term.IsTerminal(int(os.Stderr.Fd())),
		Version:   version,
		BuildDate: buildDate,
	}
	root := cli.NewRootCmd(app)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	if err != nil {
		clierror.Print(os.Stderr, clierror.From(err))
	}
	return clierror.ExitCode(err)
}
