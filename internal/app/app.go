// Package app builds the attendance core from configuration. The API, the worker and the
// operator CLI all share it so every trigger runs the same sweep over the same stores.
package app

import (
	"context"
	"fmt"
	"log"

	"qrattend/internal/attendance"
	"qrattend/internal/config"
	"qrattend/internal/httpmiddleware"
	"qrattend/internal/queue"
	"qrattend/internal/schedule"
	"qrattend/internal/store"
	"qrattend/internal/token"
)

type App struct {
	Config  config.App
	DB      *store.DB    // nil with the memory store backend
	Redis   *store.Redis // nil unless a Redis backend is configured
	Index   schedule.Index
	Repo    attendance.Repository
	Codec   *token.Codec
	Service *attendance.Service
	Sweeper *attendance.Sweeper
	Jobs    queue.Queue // nil when sweeps run inline
}

// New connects the configured backends. An unreachable database is logged, not fatal,
// so /healthz can report it.
func New(ctx context.Context, cfg config.App) (*App, error) {
	a := &App{Config: cfg}

	switch cfg.StoreBackend {
	case "memory":
		a.Repo = attendance.NewMemoryRepository()
	case "postgres", "":
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if db == nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err != nil {
			log.Printf("warning: db not reachable: %v", err)
		}
		a.DB = db
		a.Repo = attendance.NewPostgresRepository(db.Client)
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if cfg.ScheduleFile != "" {
		idx, err := schedule.LoadFile(cfg.ScheduleFile)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Index = idx
	} else if a.DB != nil {
		a.Index = schedule.NewPostgresIndex(a.DB.Client)
	} else {
		return nil, fmt.Errorf("STORE_BACKEND=%s needs SCHEDULE_FILE", cfg.StoreBackend)
	}

	if cfg.QueueBackend == "redis" || cfg.RateLimitBackend == "redis" {
		a.Redis = store.NewRedis(cfg.RedisAddr)
	}
	if cfg.QueueBackend == "redis" {
		a.Jobs = queue.NewRedisQueue(a.Redis.Client, queue.DefaultKey)
	}

	codec, err := token.NewCodec(cfg.TokenSecret)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Codec = codec
	a.Service = attendance.NewService(codec, a.Index, a.Repo, attendance.Options{
		Location:     cfg.Location(),
		IssueTTL:     cfg.TokenTTL,
		SessionGrace: cfg.SessionGrace,
	})
	a.Sweeper = attendance.NewSweeper(a.Index, a.Repo, cfg.Location(), nil)
	return a, nil
}

// Limiter returns the configured per-IP rate limiter.
func (a *App) Limiter() httpmiddleware.Limiter {
	if a.Config.RateLimitBackend == "redis" && a.Redis != nil {
		return httpmiddleware.NewRedisWindow(a.Redis.Client, a.Config.RateLimitPerMin)
	}
	return httpmiddleware.NewSimpleTokenBucket(a.Config.RateLimitPerMin, a.Config.RateLimitPerMin)
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
