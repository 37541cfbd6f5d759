package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vektorlab/multivac/internal/config"
	"github.com/vektorlab/multivac/internal/store"
	"github.com/vektorlab/multivac/internal/worker"
)

func main() {
	_ = godotenv.Load()

	settings := config.Load()

	st, err := store.New(settings.RedisAddr)
	if err != nil {
		log.Fatalf("failed to connect to store: %v", err)
	}
	defer st.Close()

	w, err := worker.New(st, settings)
	if err != nil {
		log.Fatalf("failed to create worker: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("worker failed: %v", err)
	}
	log.Printf("worker %s shutting down", w.Name())
}
