package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	mcache "github.com/lobsterbattle/wallet-battle-poc/internal/match-service/cache"
	mhttp "github.com/lobsterbattle/wallet-battle-poc/internal/match-service/http"
	kpub "github.com/lobsterbattle/wallet-battle-poc/internal/match-service/producer"
	"github.com/lobsterbattle/wallet-battle-poc/internal/match-service/repo"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/cache"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/config"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/db"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/kafka"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/logger"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis (cache de pool/odds)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	// Kafka writer (topic bet_placed)
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer writer.Close()

	// deps
	repository := repo.NewPostgres(pg)
	poolCache := mcache.New(rdb)
	publ := kpub.NewKafkaPublisher(writer, cfg.TopicBetPlaced)

	// HTTP público
	api := mhttp.NewServer(log, repository, poolCache, publ, cfg.HouseFeeBps, cfg.HouseEdgeBps)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})

	log.Info("match-service listening", zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
