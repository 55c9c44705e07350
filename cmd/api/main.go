package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"accessx/internal/attendance"
	"accessx/internal/auth"
	"accessx/internal/cloudinary"
	"accessx/internal/config"
	"accessx/internal/httpapi"
	"accessx/internal/logging"
	"accessx/internal/notify"
	"accessx/internal/session"
	"accessx/internal/store"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.Env)

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var bus notify.Bus
	if cfg.BusBackend == "memory" {
		bus = notify.NewInMemory()
	} else {
		bus = notify.NewRedisBus(redisClient.Client)
	}

	sessionRepo := session.NewPostgresRepo(db.Client)
	recordRepo := attendance.NewPostgresRepo(db.Client)

	issuer := session.NewIssuer(sessionRepo, session.IssuerConfig{
		Bus:    bus,
		Logger: log.With().Str("component", "issuer").Logger(),
	})

	var images attendance.ImageStore
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		images = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Info().Str("cloud", cfg.CloudinaryCloudName).Msg("cloudinary configured")
	} else {
		log.Info().Msg("cloudinary not configured, student images stored inline")
	}

	recorder := attendance.NewRecorder(sessionRepo, recordRepo, attendance.RecorderConfig{
		Window:             cfg.AttendanceWindow,
		ProximityMaxMeters: cfg.ProximityMaxMeters,
		Location:           cfg.WindowLocation(),
		Images:             images,
		Bus:                bus,
		Logger:             log.With().Str("component", "recorder").Logger(),
	})

	handler := httpapi.New(httpapi.Deps{
		Cfg:        cfg,
		Log:        log.With().Str("component", "http").Logger(),
		Issuer:     issuer,
		Sessions:   sessionRepo,
		Recorder:   recorder,
		Query:      attendance.NewQuery(recordRepo),
		Records:    recordRepo,
		Challenges: auth.NewRedisChallenges(redisClient.Client, cfg.ChallengeTTL),
		Bus:        bus,
		DB:         db,
		Redis:      redisClient,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server forced shutdown")
	}
	log.Info().Msg("server exited")
}
