package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/A2Data/auto-douyin/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
