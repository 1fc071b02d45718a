package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fathia/miniapp/internal/config"
	"github.com/fathia/miniapp/internal/db"
	"github.com/fathia/miniapp/internal/events"
	"github.com/fathia/miniapp/internal/notify"
	"go.uber.org/zap"
)

// notify-webhook subscribes to the wallet and transaction streams and
// forwards every event to NOTIFY_WEBHOOK_URL.

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	if cfg.NotifyWebhookURL == "" {
		log.Fatal("NOTIFY_WEBHOOK_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	subscriber := events.NewRedisSubscriber(rdb, log)
	client := notify.NewWebhookClient(cfg.NotifyWebhookURL, log)

	for _, stream := range []string{events.StreamWallet, events.StreamTx} {
		stream := stream
		err := subscriber.Subscribe(ctx, stream, func(event events.Event) {
			log.Info("forwarding event", zap.String("stream", stream), zap.String("type", event.Type))
			if err := client.Forward(ctx, stream, event); err != nil {
				log.Warn("failed to forward event", zap.String("type", event.Type), zap.Error(err))
			}
		})
		if err != nil {
			log.Fatal("failed to subscribe", zap.String("stream", stream), zap.Error(err))
		}
	}

	log.Info("notify-webhook started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down notify-webhook")
	cancel()
}
