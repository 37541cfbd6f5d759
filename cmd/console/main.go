package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vektorlab/multivac/internal/chatbot"
	"github.com/vektorlab/multivac/internal/config"
	"github.com/vektorlab/multivac/internal/store"
)

func main() {
	_ = godotenv.Load()

	settings := config.Load()
	user := flag.String("user", settings.ConsoleUser, "initiator identity for created jobs")
	flag.Parse()

	st, err := store.New(settings.RedisAddr, store.WithRequireWorkers(settings.RequireWorkers))
	if err != nil {
		log.Fatalf("failed to connect to store: %v", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	console := chatbot.NewConsole(chatbot.New(st), *user, os.Stdin, os.Stdout)
	if err := console.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("console failed: %v", err)
	}
}
