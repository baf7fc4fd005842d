package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/last-emo-boy/uptimepulse/pkg/alerter"
	"github.com/last-emo-boy/uptimepulse/pkg/api"
	"github.com/last-emo-boy/uptimepulse/pkg/auth"
	"github.com/last-emo-boy/uptimepulse/pkg/clock"
	"github.com/last-emo-boy/uptimepulse/pkg/config"
	"github.com/last-emo-boy/uptimepulse/pkg/database"
	"github.com/last-emo-boy/uptimepulse/pkg/fsm"
	"github.com/last-emo-boy/uptimepulse/pkg/healthmonitor"
	"github.com/last-emo-boy/uptimepulse/pkg/kv"
	"github.com/last-emo-boy/uptimepulse/pkg/mail"
	"github.com/last-emo-boy/uptimepulse/pkg/probe"
	"github.com/last-emo-boy/uptimepulse/pkg/scheduler"
	"github.com/last-emo-boy/uptimepulse/pkg/snapshot"
	"github.com/last-emo-boy/uptimepulse/pkg/telemetry"
)

func main() {
	log.Println("🔍 Starting Uptime Pulse...")

	environment := os.Getenv("UPTIMEPULSE_ENV")
	if environment == "" {
		environment = "development"
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}
	log.Printf("📋 Environment: %s", environment)

	db, err := database.NewDB(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	defer db.Close()

	kvStore := newKV(cfg.KV)
	defer kvStore.Close()

	mailer := mail.NewSMTPMailer(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort, cfg.Mail.SMTPUsername, cfg.Mail.SMTPPassword, cfg.Mail.DefaultFromEmail)
	c := clock.New()

	tel := telemetry.NewGopsutilTelemetry("/")
	prober := probe.New(c)
	a := alerter.New(mailer, c)
	snap := snapshot.New(tel, db, c)

	sched := scheduler.New(db, prober, nil, c, time.Duration(cfg.Scheduler.TickIntervalSeconds)*time.Second, cfg.Scheduler.MaxConcurrentProbes)
	targetFSM := fsm.New(db, a, snap, sched, c)
	sched.SetFSM(targetFSM)

	healthTick := cfg.Scheduler.HealthTickSeconds
	if healthTick <= 0 {
		healthTick = 60
	}
	cooldownTTL := time.Duration(cfg.KV.CooldownTTLSeconds) * time.Second
	monitor := healthmonitor.New(tel, db, kvStore, a, snap, c, time.Duration(healthTick)*time.Second, cfg.KV.RingSize, cooldownTTL)

	authService, err := auth.New(cfg.Auth.JWT)
	if err != nil {
		log.Fatalf("❌ Failed to initialize auth: %v", err)
	}

	sched.Start()
	monitor.Start()

	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(db, kvStore, tel, sched, authService)

	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler:        router,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("🚀 API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down Uptime Pulse...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	monitor.Stop()
	sched.Stop()

	log.Println("✅ Uptime Pulse shutdown complete")
}

func newKV(cfg config.KVConfig) kv.KV {
	if cfg.URL == "" {
		log.Println("⚠️ no kv.url configured, using in-process kv store")
		return kv.NewMemKV(time.Minute)
	}
	redisKV, err := kv.NewRedisKV(cfg.URL)
	if err != nil {
		log.Printf("⚠️ failed to connect to redis at %s, falling back to in-process kv: %v", cfg.URL, err)
		return kv.NewMemKV(time.Minute)
	}
	return redisKV
}
