// Command studio is the command-line client of the code studio.
//
//	studio run hello.py
//	studio explain main.js
//	studio --user <id> snippets list --language python
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/code-studio/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(cli.LoadFromEnv).ExecuteContext(ctx); err != nil {
		// Output of a failed run is already on screen.
		if !errors.Is(err, cli.ErrRunFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		stop()
		os.Exit(1)
	}
}
