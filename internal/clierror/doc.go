// Package clierror turns vault errors into user-facing messages, hints and
// process exit codes.
//
// # Usage
//
//	if err := cmd.Execute(); err != nil {
//	    cliErr := clierror.From(err)
//	    clierror.Print(os.Stderr, cliErr)
//	    os.Exit(cliErr.ExitCode)
//	}
package clierror
