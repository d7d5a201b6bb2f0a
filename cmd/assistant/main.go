// cmd/assistant/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"siem-assistant/internal/assistant"
	"siem-assistant/internal/audit"
	"siem-assistant/internal/common/config"
	"siem-assistant/internal/common/database"
	"siem-assistant/internal/common/logger"
	"siem-assistant/internal/siem"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	configPath := flag.String("config", "", "path to config file (default: configs/config.yaml)")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting SIEM assistant...")

	ctx := context.Background()

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.SIEM)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis response cache (optional) ---
	var cache *siem.ResponseCache
	if cfg.Cache.Enabled {
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			// Test the connection with context
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			// Degraded mode: queries still run, responses just aren't cached.
			zapLog.Warn("redis unavailable, response cache disabled", zap.Error(err))
		} else {
			defer redis.Close()
			cache = siem.NewResponseCache(redis, time.Duration(cfg.Cache.TTLSeconds)*time.Second, log)
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Init PostgreSQL audit store (optional) ---
	var auditStore *audit.Store
	if cfg.Database.Postgres.Host != "" {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			// Test the connection with context
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

		if err != nil {
			zapLog.Warn("postgres unavailable, audit log disabled", zap.Error(err))
		} else {
			defer pg.Close()
			auditStore = audit.NewStore(pg.DB, log)
			zapLog.Info("PostgreSQL connected successfully")
		}
	}

	connector := siem.NewConnector(esClient.Client, cache, log)
	asst := assistant.New(cfg, connector, auditStore, log)

	// --- Health & Metrics Server ---
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(asst.HealthCheck(r.Context()))
			})
			mux.Handle("/metrics", promhttp.Handler())
			zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
			if err := http.ListenAndServe(cfg.Metrics.Address, mux); err != nil {
				zapLog.Error("Health/Metrics server failed", zap.Error(err))
			}
		}()
	}

	// One-shot mode: remaining args are the question.
	if flag.NArg() > 0 {
		question := strings.Join(flag.Args(), " ")
		answer, err := asst.Ask(ctx, question)
		if err != nil {
			zapLog.Fatal("query failed", zap.Error(err))
		}

		out, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			zapLog.Fatal("encode answer failed", zap.Error(err))
		}
		fmt.Println(string(out))
		return
	}

	session := assistant.NewSession(asst, os.Stdin, os.Stdout, log)
	if err := session.Run(ctx); err != nil {
		zapLog.Fatal("session failed", zap.Error(err))
	}

	zapLog.Info("SIEM assistant stopped")
}
