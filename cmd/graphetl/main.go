// Command graphetl turns a directory of delimited graph files into one
// dataset per node label and relationship type.
//
//	graphetl build --input ./social_network --output ./out
//	graphetl build -i ./social_network -f postgres --dsn postgres://... --on-integrity-error skip
//	graphetl inspect ./social_network/dynamic/person_0_0.csv
//
// Exit status is 0 when the build completes (skipped files included), 1
// when it fails and 2 on usage errors.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"graphetl/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the process exit status.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rc := NewRootCommand(stdin, stdout, stderr)
	rc.SetArgs(args)
	err := rc.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "graphetl: %v\n", err)
	return exitCode(err)
}

func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) || errors.Is(err, errors.ErrInvalidConfig) {
		return 2
	}
	// cobra reports unknown subcommands as plain errors.
	if strings.HasPrefix(err.Error(), "unknown command") {
		return 2
	}
	return 1
}
