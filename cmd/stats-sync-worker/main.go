package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	mcache "github.com/lobsterbattle/wallet-battle-poc/internal/match-service/cache"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/cache"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/config"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/db"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/kafka"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/logger"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/metrics"
	"github.com/lobsterbattle/wallet-battle-poc/internal/stats-sync/producer"
	"github.com/lobsterbattle/wallet-battle-poc/internal/stats-sync/provider"
	"github.com/lobsterbattle/wallet-battle-poc/internal/stats-sync/pubsub"
	"github.com/lobsterbattle/wallet-battle-poc/internal/stats-sync/repo"
	"github.com/lobsterbattle/wallet-battle-poc/internal/stats-sync/service"
)

// Métricas Prometheus do loop de sincronização
var (
	matchesSynced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stats_sync_matches_synced_total",
		Help: "Total de syncs de match concluídos",
	})
	roundsRolled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stats_sync_rounds_rolled_total",
		Help: "Total de rounds diários fechados na virada UTC",
	})
	matchesEnded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stats_sync_matches_ended_total",
		Help: "Total de matches encerrados por expiração",
	})
	syncErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stats_sync_errors_total",
		Help: "Erros do worker por estágio",
	}, []string{"stage"})
)

func init() {
	prometheus.MustRegister(matchesSynced, roundsRolled, matchesEnded, syncErrors)
}

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	oddsWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicOddsUpdates)
	defer oddsWriter.Close()
	endedWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchEnded)
	defer endedWriter.Close()

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
		return nil
	})

	syncer := service.New(
		log,
		repo.NewPostgres(pg),
		provider.New(cfg.PnlProviderURL),
		producer.NewKafkaPublisher(oddsWriter, endedWriter),
	)
	syncer.Broadcast = pubsub.NewRedisBroadcaster(rdb)
	syncer.Cache = mcache.New(rdb)
	syncer.Interval = cfg.SyncInterval
	syncer.Channel = cfg.RedisPubSubChannel
	syncer.HouseEdgeBps = cfg.HouseEdgeBps
	syncer.OnSynced = matchesSynced.Inc
	syncer.OnRoundRoll = roundsRolled.Inc
	syncer.OnMatchEnded = matchesEnded.Inc
	syncer.OnError = func(stage string) { syncErrors.WithLabelValues(stage).Inc() }

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("stats-sync-worker started",
		zap.String("provider", cfg.PnlProviderURL),
		zap.Duration("interval", cfg.SyncInterval))
	if err := syncer.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal("syncer", zap.Error(err))
	}
}
