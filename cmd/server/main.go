package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	cliAdapter "profitscope/internal/adapters/cli"
	webAdapter "profitscope/internal/adapters/web"
	"profitscope/internal/app"
	"profitscope/internal/cache"
	"profitscope/internal/config"
	"profitscope/internal/db"
	"profitscope/internal/snapshot"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	var reportCache cache.ReportCache = cache.NoopReportCache{}
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisReportCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("Warning: redis unreachable, reports will not be cached: %v", err)
		} else {
			reportCache = redisCache
			defer redisCache.Close()
		}
	}

	loader := snapshot.NewLoader(pool)
	svc := app.NewReportService(loader, reportCache, time.Duration(cfg.ReportTTLSeconds)*time.Second)

	// One-shot CLI mode: server report <command> <org> <from> <to> [extra]
	if len(os.Args) > 1 && os.Args[1] == "report" {
		cliAdapter.Run(ctx, svc, os.Args[2:])
		return
	}

	handler := webAdapter.NewHandler(svc, cfg.AllowedOrigin, cfg.DefaultOrganization)

	log.Printf("server starting on %s", cfg.Address())
	if err := http.ListenAndServe(cfg.Address(), handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
