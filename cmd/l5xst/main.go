// Command l5xst converts Logix L5X projects to IEC 61131-3 Structured Text
// and back.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/l5xst/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		// Commands print their own errors; cobra flag errors do not.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			stop()
			os.Exit(cli.ExitCommandError)
		}
		stop()
		os.Exit(exitErr.Code)
	}
}
