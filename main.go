// Command recmover moves finished screen recordings to a remote machine over
// ssh, filing each one under a year/month/day directory taken from its name.
// It is meant to be run by a file watcher each time a new recording appears.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "recmover: interrupted")
		} else {
			fmt.Fprintln(os.Stderr, "recmover:", err)
		}
		stop()
		os.Exit(1)
	}
}
