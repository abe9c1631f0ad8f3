// marinactl runs maintenance tasks against the marina backend without the
// HTTP API: a one-off auto-checkout pass, history exports and password
// hashing for seeding accounts.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env environment, args []string) error
}

// environment carries the process streams so commands stay testable.
type environment struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

var commands = []command{
	{name: "autocheckout", summary: "close movements open longer than the threshold on every site", run: runAutoCheckout},
	{name: "export", summary: "write the movement history of a site as CSV or XLSX", run: runExport},
	{name: "hash-password", summary: "read a password from stdin and print its argon2id hash", run: runHashPassword},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := environment{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := dispatch(ctx, env, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, env environment, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(env.stderr)
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(ctx, env, args[1:])
		}
	}
	printUsage(env.stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: marinactl <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-14s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Backend settings are read from the same MARINA_* variables as marinagate.")
}
