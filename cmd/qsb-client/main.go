// Command qsb-client joins a session and flies one synced body.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/isrecalpear/quantum-space-buddies/internal/cmd/cmdutil"

	clientcmd "github.com/isrecalpear/quantum-space-buddies/internal/cmd/client"
)

func main() {
	cfg, err := clientcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		cmdutil.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := clientcmd.Run(ctx, cfg, os.Stderr); err != nil {
		cmdutil.Exitf("Error: %v", err)
	}
}
