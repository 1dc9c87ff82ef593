// Command qsb-server hosts a shared session.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/isrecalpear/quantum-space-buddies/internal/cmd/cmdutil"

	servercmd "github.com/isrecalpear/quantum-space-buddies/internal/cmd/server"
)

func main() {
	cfg, err := servercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		cmdutil.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := servercmd.Run(ctx, cfg, os.Stderr); err != nil {
		cmdutil.Exitf("Error: %v", err)
	}
}
