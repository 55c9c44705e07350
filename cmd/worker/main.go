package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"accessx/internal/config"
	"accessx/internal/logging"
	"accessx/internal/notify"
	"accessx/internal/store"
)

// Worker consumes attendance events and maintains per-session live counters
// in Redis for the instructor dashboards. Best effort: a missed event only
// skews a display counter, never the record store.
func main() {
	cfg := config.Load()
	log := logging.New(cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var bus notify.Bus
	if cfg.BusBackend == "memory" {
		bus = notify.NewInMemory()
	} else {
		bus = notify.NewRedisBus(redisClient.Client)
	}

	events, err := bus.Subscribe(ctx, notify.TopicAttendanceRecorded)
	if err != nil {
		log.Fatal().Err(err).Msg("bus subscribe failed")
	}

	log.Info().Msg("worker started, waiting for events")
	for evt := range events {
		var rec struct {
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal(evt.Body, &rec); err != nil || rec.SessionID == "" {
			log.Warn().Err(err).Msg("unparseable attendance event")
			continue
		}
		if err := redisClient.Client.Incr(ctx, notify.CountKey(rec.SessionID)).Err(); err != nil {
			log.Warn().Err(err).Str("session", rec.SessionID).Msg("counter update failed")
			continue
		}
		log.Debug().Str("session", rec.SessionID).Msg("counter updated")
	}
	log.Info().Msg("worker stopped")
}
