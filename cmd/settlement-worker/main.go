package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lobsterbattle/wallet-battle-poc/internal/parimutuel"
	"github.com/lobsterbattle/wallet-battle-poc/internal/settlement-worker/engine"
	kpub "github.com/lobsterbattle/wallet-battle-poc/internal/settlement-worker/producer"
	"github.com/lobsterbattle/wallet-battle-poc/internal/settlement-worker/repo"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/config"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/db"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/kafka"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/logger"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/metrics"
	ev "github.com/lobsterbattle/wallet-battle-poc/pkg/contracts/events"
)

var (
	matchesSettled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_matches_settled_total",
		Help: "Total de matches liquidados com sucesso",
	})
	settlementSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_skipped_total",
		Help: "Eventos ignorados porque o match já estava liquidado",
	})
	settlementDLQ = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_dlq_total",
		Help: "Eventos enviados pra DLQ após esgotar tentativas",
	})
)

func init() {
	prometheus.MustRegister(matchesSettled, settlementSkipped, settlementDLQ)
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

	// Kafka consumer: eventos match_ended disparam a liquidação
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicMatchEnded, "settlement-worker")
	defer reader.Close()

	// Kafka producers: resultado da liquidação e DLQ
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchSettled)
	defer settledWriter.Close()
	dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchEndedDLQ)
	defer dlqWriter.Close()

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
		return nil
	})

	eng := engine.New(log, repo.NewPostgres(pg))
	publ := kpub.NewKafkaPublisher(settledWriter)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicMatchEnded),
		zap.String("publish", cfg.TopicMatchSettled))

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("settlement-worker stopped")
				return
			}
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var ended ev.MatchEnded
		if jerr := json.Unmarshal(msg.Value, &ended); jerr != nil {
			log.Error("unmarshal match_ended", zap.Error(jerr))
			continue
		}

		if err := settleOne(ctx, log, eng, publ, &ended); err != nil {
			// Retry simples: tenta mais 3 vezes antes de mandar pra DLQ
			const retries = 3
			for i := 0; i < retries && err != nil && !terminal(err); i++ {
				time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
				err = settleOne(ctx, log, eng, publ, &ended)
			}
			if err != nil {
				log.Error("settle failed", zap.String("match_id", ended.MatchID), zap.Error(err))
				_ = kafka.WriteJSON(ctx, dlqWriter, ended.MatchID, msg.Value)
				settlementDLQ.Inc()
			}
		}
	}
}

// settleOne liquida um match. Reentrega do mesmo evento é esperada
// (at-least-once): o já-liquidado vira skip, não erro.
func settleOne(ctx context.Context, log *zap.Logger, eng *engine.Engine, publ *kpub.KafkaPublisher, ended *ev.MatchEnded) error {
	res, err := eng.Settle(ctx, ended.MatchID)
	if errors.Is(err, engine.ErrAlreadySettled) {
		log.Info("match already settled", zap.String("match_id", ended.MatchID))
		settlementSkipped.Inc()
		return nil
	}
	if err != nil {
		return err
	}

	matchesSettled.Inc()
	var paid int64
	for _, p := range res.Settlement.Payouts {
		paid += p.AmountCents
	}
	return publ.PublishMatchSettled(ctx, ev.MatchSettled{
		MatchID:         ended.MatchID,
		WinnerSide:      string(res.WinnerSide),
		TotalPoolCents:  res.Settlement.TotalPoolCents,
		HouseFeeCents:   res.Settlement.HouseFeeCents,
		PayoutPoolCents: res.Settlement.PayoutPoolCents,
		PayoutCount:     len(res.Settlement.Payouts),
		TotalPaidCents:  paid,
	})
}

// terminal identifica erros que retry não resolve: vão direto pra DLQ
// pra um operador olhar
func terminal(err error) bool {
	return errors.Is(err, engine.ErrNoWinner) ||
		errors.Is(err, engine.ErrNotFound) ||
		errors.Is(err, parimutuel.ErrNoWinningBets)
}
