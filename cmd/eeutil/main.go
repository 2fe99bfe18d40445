package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/airbusgeo/ee-ingester/service/log"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		log.Fatal("error", zap.Error(err))
	}
}
