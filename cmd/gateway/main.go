package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pwabuilder/internal/gateway/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, os.Args[1:])
	if err != nil {
		log.Fatalf("gateway: init: %v", err)
	}
	if err := a.Run(ctx); err != nil {
		log.Fatalf("gateway: %v", err)
	}
	log.Println("gateway: stopped")
}
