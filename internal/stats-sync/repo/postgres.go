package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Match é a visão do match que o sync precisa
type Match struct {
	ID        string
	WalletAID string
	WalletBID string
	Timeframe string
	StartAt   time.Time
	EndAt     time.Time
	Status    string
	InitialA  *float64
	InitialB  *float64
}

// Stats é a linha de match_stats mantida pelo worker
type Stats struct {
	MatchID          string
	PortfolioValueA  float64
	PortfolioValueB  float64
	PnlA             float64
	PnlB             float64
	DailyPnlA        float64
	DailyPnlB        float64
	DailyInitialA    float64
	DailyInitialB    float64
	LastDailyResetAt time.Time
	Trades24hA       int
	Trades24hB       int
}

// Postgres implementa as operações de sincronização de stats
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// ActivateDue promove matches UPCOMING cujo start_at já passou
func (p *Postgres) ActivateDue(ctx context.Context, now time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE matches SET status='LIVE' WHERE status='UPCOMING' AND start_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListLive retorna os matches LIVE com baseline (pode estar nula)
func (p *Postgres) ListLive(ctx context.Context) ([]Match, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, wallet_a_id, wallet_b_id, timeframe, start_at, end_at, status,
		       initial_portfolio_value_a, initial_portfolio_value_b
		FROM matches WHERE status='LIVE' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.WalletAID, &m.WalletBID, &m.Timeframe, &m.StartAt, &m.EndAt, &m.Status,
			&m.InitialA, &m.InitialB); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CaptureBaseline grava os valores iniciais de portfólio uma única vez.
// O WHERE ... IS NULL garante o set-exactly-once mesmo com workers concorrentes.
func (p *Postgres) CaptureBaseline(ctx context.Context, matchID string, valueA, valueB float64) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE matches SET initial_portfolio_value_a=$1, initial_portfolio_value_b=$2
		WHERE id=$3 AND initial_portfolio_value_a IS NULL`, valueA, valueB, matchID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetStats retorna a linha de stats do match, ou nil se ainda não existe
func (p *Postgres) GetStats(ctx context.Context, matchID string) (*Stats, error) {
	var s Stats
	err := p.db.QueryRowContext(ctx, `
		SELECT match_id, portfolio_value_a, portfolio_value_b, pnl_a, pnl_b, daily_pnl_a, daily_pnl_b,
		       daily_initial_portfolio_value_a, daily_initial_portfolio_value_b, last_daily_reset_at,
		       trades_24h_a, trades_24h_b
		FROM match_stats WHERE match_id=$1`, matchID,
	).Scan(&s.MatchID, &s.PortfolioValueA, &s.PortfolioValueB, &s.PnlA, &s.PnlB, &s.DailyPnlA, &s.DailyPnlB,
		&s.DailyInitialA, &s.DailyInitialB, &s.LastDailyResetAt, &s.Trades24hA, &s.Trades24hB)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertStats insere ou atualiza a projeção de stats do match
func (p *Postgres) UpsertStats(ctx context.Context, s *Stats) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO match_stats
		  (match_id, portfolio_value_a, portfolio_value_b, pnl_a, pnl_b, daily_pnl_a, daily_pnl_b,
		   daily_initial_portfolio_value_a, daily_initial_portfolio_value_b, last_daily_reset_at,
		   trades_24h_a, trades_24h_b, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW())
		ON CONFLICT (match_id) DO UPDATE SET
		  portfolio_value_a = EXCLUDED.portfolio_value_a,
		  portfolio_value_b = EXCLUDED.portfolio_value_b,
		  pnl_a = EXCLUDED.pnl_a,
		  pnl_b = EXCLUDED.pnl_b,
		  daily_pnl_a = EXCLUDED.daily_pnl_a,
		  daily_pnl_b = EXCLUDED.daily_pnl_b,
		  daily_initial_portfolio_value_a = EXCLUDED.daily_initial_portfolio_value_a,
		  daily_initial_portfolio_value_b = EXCLUDED.daily_initial_portfolio_value_b,
		  last_daily_reset_at = EXCLUDED.last_daily_reset_at,
		  trades_24h_a = EXCLUDED.trades_24h_a,
		  trades_24h_b = EXCLUDED.trades_24h_b,
		  updated_at = NOW()`,
		s.MatchID, s.PortfolioValueA, s.PortfolioValueB, s.PnlA, s.PnlB, s.DailyPnlA, s.DailyPnlB,
		s.DailyInitialA, s.DailyInitialB, s.LastDailyResetAt, s.Trades24hA, s.Trades24hB,
	)
	return err
}

// CloseActiveRound encerra o round ativo do match com o PnL final do dia
func (p *Postgres) CloseActiveRound(ctx context.Context, matchID string, finalPnlA, finalPnlB float64, winnerWalletID string, endAt time.Time) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE rounds SET status='ENDED', end_at=$1, final_pnl_a=$2, final_pnl_b=$3, winner_wallet_id=$4
		WHERE match_id=$5 AND status='ACTIVE'`,
		endAt, finalPnlA, finalPnlB, winnerWalletID, matchID)
	return err
}

// EndMatch faz a transição atômica LIVE -> ENDED com o vencedor.
// Retorna false se outro worker já encerrou.
func (p *Postgres) EndMatch(ctx context.Context, matchID, winnerWalletID string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE matches SET status='ENDED', winner_wallet_id=$1 WHERE id=$2 AND status='LIVE'`,
		winnerWalletID, matchID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CreateRematch abre a próxima batalha pro mesmo par de carteiras, com pool
// novo na mesma transação e a mesma fee do match anterior
func (p *Postgres) CreateRematch(ctx context.Context, old Match, startAt, endAt time.Time) (*Match, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var feeBps int
	if err = tx.QueryRowContext(ctx, `SELECT house_fee_bps FROM bet_pools WHERE match_id=$1`, old.ID).Scan(&feeBps); err != nil {
		return nil, err
	}

	m := &Match{
		ID:        uuid.NewString(),
		WalletAID: old.WalletAID,
		WalletBID: old.WalletBID,
		Timeframe: old.Timeframe,
		StartAt:   startAt,
		EndAt:     endAt,
		Status:    "LIVE",
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO matches (id, wallet_a_id, wallet_b_id, timeframe, start_at, end_at, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())`,
		m.ID, m.WalletAID, m.WalletBID, m.Timeframe, m.StartAt, m.EndAt, m.Status,
	); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO bet_pools (id, match_id, pool_a_cents, pool_b_cents, total_pool_cents, house_fee_bps, created_at, updated_at)
		VALUES ($1,$2,0,0,0,$3,NOW(),NOW())`,
		uuid.NewString(), m.ID, feeBps,
	); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return m, nil
}
