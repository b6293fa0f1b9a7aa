package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/cmd/s3transfer/cmd"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		if errors.Code(err) == errors.CodeCanceled {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
