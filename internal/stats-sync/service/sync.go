package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lobsterbattle/wallet-battle-poc/internal/parimutuel"
	"github.com/lobsterbattle/wallet-battle-poc/internal/stats-sync/provider"
	"github.com/lobsterbattle/wallet-battle-poc/internal/stats-sync/pubsub"
	"github.com/lobsterbattle/wallet-battle-poc/internal/stats-sync/repo"
	"github.com/lobsterbattle/wallet-battle-poc/pkg/contracts/events"
)

// Store é o contrato de persistência que o syncer precisa
type Store interface {
	ActivateDue(ctx context.Context, now time.Time) (int64, error)
	ListLive(ctx context.Context) ([]repo.Match, error)
	CaptureBaseline(ctx context.Context, matchID string, valueA, valueB float64) (bool, error)
	GetStats(ctx context.Context, matchID string) (*repo.Stats, error)
	UpsertStats(ctx context.Context, s *repo.Stats) error
	CloseActiveRound(ctx context.Context, matchID string, finalPnlA, finalPnlB float64, winnerWalletID string, endAt time.Time) error
	EndMatch(ctx context.Context, matchID, winnerWalletID string) (bool, error)
	CreateRematch(ctx context.Context, old repo.Match, startAt, endAt time.Time) (*repo.Match, error)
}

// PnlProvider devolve o snapshot atual de uma carteira
type PnlProvider interface {
	Snapshot(ctx context.Context, walletID string) (*provider.WalletSnapshot, error)
}

// Publisher emite os eventos do worker no Kafka
type Publisher interface {
	PublishOddsUpdate(ctx context.Context, e events.OddsUpdate) error
	PublishMatchEnded(ctx context.Context, e events.MatchEnded) error
}

// Broadcaster replica a odds atualizada no canal de pub/sub do Redis
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Invalidator derruba o cache de odds do match após cada sync
type Invalidator interface {
	DelOdds(ctx context.Context, matchID string) error
}

// Syncer recalcula PnL e odds de cada batalha LIVE a cada tick
type Syncer struct {
	Log       *zap.Logger
	Store     Store
	Provider  PnlProvider
	Publisher Publisher
	Broadcast Broadcaster
	Cache     Invalidator

	Interval     time.Duration
	Channel      string
	HouseEdgeBps int

	// relógio injetável pra teste de virada de dia
	Now func() time.Time

	// Callbacks de métricas (incrementam contadores Prometheus)
	OnSynced     func()
	OnRoundRoll  func()
	OnMatchEnded func()
	OnError      func(stage string)

	versions map[string]int
}

func New(log *zap.Logger, st Store, pv PnlProvider, pub Publisher) *Syncer {
	return &Syncer{
		Log:       log,
		Store:     st,
		Provider:  pv,
		Publisher: pub,
		Interval:  15 * time.Second,
		Channel:   pubsub.ChannelOddsBroadcast,
		Now:       time.Now,
		versions:  map[string]int{},
	}
}

// Run roda o loop de sync até o contexto encerrar
func (s *Syncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Log.Info("stats syncer started", zap.Duration("interval", s.Interval))
	for {
		if err := s.Tick(ctx); err != nil {
			s.Log.Error("sync tick failed", zap.Error(err))
			s.errStage("tick")
		}
		select {
		case <-ctx.Done():
			s.Log.Info("stats syncer stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick processa uma rodada completa: ativa matches devidos e sincroniza os LIVE
func (s *Syncer) Tick(ctx context.Context) error {
	now := s.Now().UTC()

	if n, err := s.Store.ActivateDue(ctx, now); err != nil {
		return fmt.Errorf("activate due: %w", err)
	} else if n > 0 {
		s.Log.Info("matches activated", zap.Int64("count", n))
	}

	matches, err := s.Store.ListLive(ctx)
	if err != nil {
		return fmt.Errorf("list live: %w", err)
	}
	for _, m := range matches {
		if err := s.syncMatch(ctx, m, now); err != nil {
			s.Log.Error("match sync failed", zap.String("match_id", m.ID), zap.Error(err))
			s.errStage("sync")
		}
	}
	return nil
}

func (s *Syncer) syncMatch(ctx context.Context, m repo.Match, now time.Time) error {
	snapA, err := s.Provider.Snapshot(ctx, m.WalletAID)
	if err != nil {
		return fmt.Errorf("snapshot wallet a: %w", err)
	}
	snapB, err := s.Provider.Snapshot(ctx, m.WalletBID)
	if err != nil {
		return fmt.Errorf("snapshot wallet b: %w", err)
	}

	// Baseline capturada no primeiro sync após o LIVE, nunca sobrescrita
	if m.InitialA == nil || m.InitialB == nil {
		if _, err := s.Store.CaptureBaseline(ctx, m.ID, snapA.PortfolioValueUSD, snapB.PortfolioValueUSD); err != nil {
			return fmt.Errorf("capture baseline: %w", err)
		}
		a, b := snapA.PortfolioValueUSD, snapB.PortfolioValueUSD
		m.InitialA, m.InitialB = &a, &b
		s.Log.Info("baseline captured",
			zap.String("match_id", m.ID),
			zap.Float64("value_a", a),
			zap.Float64("value_b", b))
	}

	pnlA := pnlPct(snapA.PortfolioValueUSD, *m.InitialA)
	pnlB := pnlPct(snapB.PortfolioValueUSD, *m.InitialB)

	prev, err := s.Store.GetStats(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	dailyInitialA, dailyInitialB := snapA.PortfolioValueUSD, snapB.PortfolioValueUSD
	lastReset := now
	if prev != nil {
		dailyInitialA, dailyInitialB = prev.DailyInitialA, prev.DailyInitialB
		lastReset = prev.LastDailyResetAt

		if isNewUTCDay(prev.LastDailyResetAt, now) {
			// Virada de dia: fecha o round com o PnL diário final e reinicia
			finalA := pnlPct(snapA.PortfolioValueUSD, dailyInitialA)
			finalB := pnlPct(snapB.PortfolioValueUSD, dailyInitialB)
			winner := winnerWallet(m, finalA, finalB)
			if err := s.Store.CloseActiveRound(ctx, m.ID, finalA, finalB, winner, now); err != nil {
				return fmt.Errorf("close round: %w", err)
			}
			s.Log.Info("daily round closed",
				zap.String("match_id", m.ID),
				zap.String("winner_wallet_id", winner),
				zap.Float64("final_pnl_a", finalA),
				zap.Float64("final_pnl_b", finalB))
			if s.OnRoundRoll != nil {
				s.OnRoundRoll()
			}
			dailyInitialA, dailyInitialB = snapA.PortfolioValueUSD, snapB.PortfolioValueUSD
			lastReset = now
		}
	}

	dailyPnlA := pnlPct(snapA.PortfolioValueUSD, dailyInitialA)
	dailyPnlB := pnlPct(snapB.PortfolioValueUSD, dailyInitialB)

	if err := s.Store.UpsertStats(ctx, &repo.Stats{
		MatchID:          m.ID,
		PortfolioValueA:  snapA.PortfolioValueUSD,
		PortfolioValueB:  snapB.PortfolioValueUSD,
		PnlA:             pnlA,
		PnlB:             pnlB,
		DailyPnlA:        dailyPnlA,
		DailyPnlB:        dailyPnlB,
		DailyInitialA:    dailyInitialA,
		DailyInitialB:    dailyInitialB,
		LastDailyResetAt: lastReset,
		Trades24hA:       snapA.Trades24h,
		Trades24hB:       snapB.Trades24h,
	}); err != nil {
		return fmt.Errorf("upsert stats: %w", err)
	}

	s.publishOdds(ctx, m, dailyPnlA, dailyPnlB, now)

	if s.OnSynced != nil {
		s.OnSynced()
	}

	if !now.Before(m.EndAt) {
		return s.endMatch(ctx, m, pnlA, pnlB, now)
	}
	return nil
}

// publishOdds emite a cotação por PnL no Kafka, replica no Redis e invalida o cache.
// Falha de publicação não aborta o sync: o estado em banco já está consistente.
func (s *Syncer) publishOdds(ctx context.Context, m repo.Match, dailyPnlA, dailyPnlB float64, now time.Time) {
	q := parimutuel.FromPnl(dailyPnlA, dailyPnlB, s.HouseEdgeBps)
	s.versions[m.ID]++
	ev := events.OddsUpdate{
		MatchID:      m.ID,
		Source:       "pnl",
		OddsA:        q.OddsA,
		OddsB:        q.OddsB,
		ImpliedProbA: q.ImpliedProbA,
		ImpliedProbB: q.ImpliedProbB,
		DailyPnlA:    dailyPnlA,
		DailyPnlB:    dailyPnlB,
		UpdatedAt:    now,
		Version:      s.versions[m.ID],
	}
	if err := s.Publisher.PublishOddsUpdate(ctx, ev); err != nil {
		s.Log.Error("odds publish failed", zap.String("match_id", m.ID), zap.Error(err))
		s.errStage("publish")
	}
	if s.Broadcast != nil {
		payload, _ := json.Marshal(pubsub.WSUpdate{MatchID: m.ID, Payload: ev})
		if err := s.Broadcast.Publish(ctx, s.Channel, payload); err != nil {
			s.Log.Error("odds broadcast failed", zap.String("match_id", m.ID), zap.Error(err))
			s.errStage("broadcast")
		}
	}
	if s.Cache != nil {
		if err := s.Cache.DelOdds(ctx, m.ID); err != nil {
			s.Log.Error("odds cache invalidation failed", zap.String("match_id", m.ID), zap.Error(err))
			s.errStage("cache")
		}
	}
}

// endMatch encerra a batalha expirada e abre a revanche
func (s *Syncer) endMatch(ctx context.Context, m repo.Match, pnlA, pnlB float64, now time.Time) error {
	winner := winnerWallet(m, pnlA, pnlB)
	ok, err := s.Store.EndMatch(ctx, m.ID, winner)
	if err != nil {
		return fmt.Errorf("end match: %w", err)
	}
	if !ok {
		// outro worker encerrou primeiro
		return nil
	}

	side := "A"
	if winner == m.WalletBID {
		side = "B"
	}
	s.Log.Info("match ended",
		zap.String("match_id", m.ID),
		zap.String("winner_wallet_id", winner),
		zap.String("winner_side", side),
		zap.Float64("final_pnl_a", pnlA),
		zap.Float64("final_pnl_b", pnlB))
	if s.OnMatchEnded != nil {
		s.OnMatchEnded()
	}

	if err := s.Publisher.PublishMatchEnded(ctx, events.MatchEnded{
		MatchID:        m.ID,
		WinnerWalletID: winner,
		WinnerSide:     side,
		FinalPnlA:      pnlA,
		FinalPnlB:      pnlB,
		Ts:             now,
	}); err != nil {
		s.Log.Error("match ended publish failed", zap.String("match_id", m.ID), zap.Error(err))
		s.errStage("publish")
	}

	// Revanche automática: a batalha nunca para pro mesmo par
	next, err := s.Store.CreateRematch(ctx, m, now, now.Add(matchWindow(m.Timeframe)))
	if err != nil {
		s.Log.Error("rematch creation failed", zap.String("match_id", m.ID), zap.Error(err))
		s.errStage("rematch")
		return nil
	}
	s.Log.Info("rematch created",
		zap.String("previous_match_id", m.ID),
		zap.String("match_id", next.ID))
	return nil
}

func (s *Syncer) errStage(stage string) {
	if s.OnError != nil {
		s.OnError(stage)
	}
}

// pnlPct calcula o retorno percentual sobre a baseline
func pnlPct(current, initial float64) float64 {
	if initial <= 0 {
		return 0
	}
	return (current - initial) / initial * 100
}

// isNewUTCDay diz se "now" caiu num dia UTC posterior ao do último reset
func isNewUTCDay(lastReset, now time.Time) bool {
	ly, lm, ld := lastReset.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	return ny > ly || (ny == ly && (nm > lm || (nm == lm && nd > ld)))
}

// winnerWallet escolhe a carteira vencedora pelo PnL; empate fica com A
func winnerWallet(m repo.Match, pnlA, pnlB float64) string {
	if pnlB > pnlA {
		return m.WalletBID
	}
	return m.WalletAID
}

// matchWindow converte o timeframe na duração da batalha
func matchWindow(timeframe string) time.Duration {
	switch timeframe {
	case "WEEKLY":
		return 7 * 24 * time.Hour
	case "MONTHLY":
		return 30 * 24 * time.Hour
	default: // DAILY
		return 24 * time.Hour
	}
}
