package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"passgate.org/internal/auth"
	"passgate.org/internal/cache"
	"passgate.org/internal/config"
	"passgate.org/internal/httpapi"
	"passgate.org/internal/obs"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.Printf("config: %s", cfg)

	// Postgres is optional; without a DSN the service keeps users in memory.
	var db *sql.DB
	var store auth.UserStore
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		store = auth.NewPGStore(db)
	} else {
		log.Println("PASSGATE_PG_DSN is empty, using the in-memory user store")
		store = auth.NewMemoryStore()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	codec, err := auth.NewCodec(cfg.SigningKey, cfg.Issuer, cfg.Audience)
	if err != nil {
		log.Fatalf("codec: %v", err)
	}
	svc, err := auth.NewService(store, cache.NewRedis(rdb), codec, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		log.Fatalf("service: %v", err)
	}

	api := httpapi.New(svc, codec, cfg, httpapi.ReadyProbe{DB: db, Redis: rdb}, version)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting passgate-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = rdb.Close()
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
