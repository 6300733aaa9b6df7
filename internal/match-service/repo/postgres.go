package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lobsterbattle/wallet-battle-poc/internal/parimutuel"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrMatchClosed   = errors.New("match is not accepting bets")
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidSide   = errors.New("invalid side")
	ErrBetNotPending = errors.New("bet is not pending")
)

// Postgres implementa a persistência de matches, pools, apostas e rounds
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// CreateMatch insere o match e o seu pool na mesma transação.
// Pool sempre nasce junto com o match — nada de lazy-init na hora da aposta.
func (p *Postgres) CreateMatch(ctx context.Context, walletAID, walletBID, timeframe string, startAt, endAt time.Time, houseFeeBps int) (*Match, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	m := &Match{
		ID:        uuid.NewString(),
		WalletAID: walletAID,
		WalletBID: walletBID,
		Timeframe: timeframe,
		StartAt:   startAt,
		EndAt:     endAt,
		Status:    MatchUpcoming,
		CreatedAt: time.Now().UTC(),
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO matches (id, wallet_a_id, wallet_b_id, timeframe, start_at, end_at, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		m.ID, m.WalletAID, m.WalletBID, m.Timeframe, m.StartAt, m.EndAt, m.Status, m.CreatedAt,
	); err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO bet_pools (id, match_id, pool_a_cents, pool_b_cents, total_pool_cents, house_fee_bps, created_at, updated_at)
		VALUES ($1,$2,0,0,0,$3,NOW(),NOW())`,
		uuid.NewString(), m.ID, houseFeeBps,
	); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return m, nil
}

// ActivateMatch faz a transição UPCOMING -> LIVE.
// A baseline de portfólio é capturada pelo stats-sync no primeiro tick LIVE.
func (p *Postgres) ActivateMatch(ctx context.Context, matchID string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE matches SET status=$1 WHERE id=$2 AND status=$3`,
		MatchLive, matchID, MatchUpcoming,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrMatchClosed
	}
	return nil
}

// GetMatch retorna um match pelo id
func (p *Postgres) GetMatch(ctx context.Context, matchID string) (*Match, error) {
	var m Match
	err := p.db.QueryRowContext(ctx, `
		SELECT id, wallet_a_id, wallet_b_id, timeframe, start_at, end_at, status,
		       initial_portfolio_value_a, initial_portfolio_value_b, winner_wallet_id, created_at
		FROM matches WHERE id=$1`, matchID,
	).Scan(&m.ID, &m.WalletAID, &m.WalletBID, &m.Timeframe, &m.StartAt, &m.EndAt, &m.Status,
		&m.InitialPortfolioValueA, &m.InitialPortfolioValueB, &m.WinnerWalletID, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMatches retorna matches, opcionalmente filtrados por status
func (p *Postgres) ListMatches(ctx context.Context, status string) ([]Match, error) {
	q := `
		SELECT id, wallet_a_id, wallet_b_id, timeframe, start_at, end_at, status,
		       initial_portfolio_value_a, initial_portfolio_value_b, winner_wallet_id, created_at
		FROM matches`
	args := []any{}
	if status != "" {
		q += ` WHERE status=$1`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.WalletAID, &m.WalletBID, &m.Timeframe, &m.StartAt, &m.EndAt, &m.Status,
			&m.InitialPortfolioValueA, &m.InitialPortfolioValueB, &m.WinnerWalletID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetPool retorna o pool de um match
func (p *Postgres) GetPool(ctx context.Context, matchID string) (*Pool, error) {
	var pl Pool
	err := p.db.QueryRowContext(ctx, `
		SELECT id, match_id, pool_a_cents, pool_b_cents, total_pool_cents, house_fee_bps, updated_at
		FROM bet_pools WHERE match_id=$1`, matchID,
	).Scan(&pl.ID, &pl.MatchID, &pl.PoolACents, &pl.PoolBCents, &pl.TotalPoolCents, &pl.HouseFeeBps, &pl.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

// PlaceBet aceita um stake novo com a cotação travada no aceite.
// O SELECT ... FOR UPDATE na linha do pool serializa apostas concorrentes no
// mesmo match; matches diferentes seguem em paralelo. A odds snapshot é a
// cotação auto-referente: calculada com o pool já incluindo este stake.
func (p *Postgres) PlaceBet(ctx context.Context, userID, matchID string, side parimutuel.Side, amountCents int64, txSignature string) (*Bet, *Pool, error) {
	if amountCents <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	if !side.Valid() {
		return nil, nil, ErrInvalidSide
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM matches WHERE id=$1`, matchID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if status != MatchLive && status != MatchUpcoming {
		return nil, nil, ErrMatchClosed
	}

	var pl Pool
	err = tx.QueryRowContext(ctx, `
		SELECT id, match_id, pool_a_cents, pool_b_cents, total_pool_cents, house_fee_bps, updated_at
		FROM bet_pools WHERE match_id=$1 FOR UPDATE`, matchID,
	).Scan(&pl.ID, &pl.MatchID, &pl.PoolACents, &pl.PoolBCents, &pl.TotalPoolCents, &pl.HouseFeeBps, &pl.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	odds := parimutuel.SnapshotOdds(pl.PoolACents, pl.PoolBCents, side, amountCents, pl.HouseFeeBps)

	b := &Bet{
		ID:           uuid.NewString(),
		UserID:       userID,
		MatchID:      matchID,
		Side:         string(side),
		AmountCents:  amountCents,
		OddsSnapshot: odds,
		Status:       BetPending,
		TxSignature:  txSignature,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO bets (id, user_id, match_id, side, amount_cents, odds_snapshot, status, tx_signature, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		b.ID, b.UserID, b.MatchID, b.Side, b.AmountCents, b.OddsSnapshot, b.Status, b.TxSignature, b.CreatedAt,
	); err != nil {
		return nil, nil, err
	}

	if side == parimutuel.SideA {
		pl.PoolACents += amountCents
	} else {
		pl.PoolBCents += amountCents
	}
	pl.TotalPoolCents += amountCents
	pl.UpdatedAt = time.Now().UTC()

	if _, err = tx.ExecContext(ctx, `
		UPDATE bet_pools SET pool_a_cents=$1, pool_b_cents=$2, total_pool_cents=$3, updated_at=$4 WHERE id=$5`,
		pl.PoolACents, pl.PoolBCents, pl.TotalPoolCents, pl.UpdatedAt, pl.ID,
	); err != nil {
		return nil, nil, err
	}

	// projeta o stake no round diário ativo (abre um se não existir)
	roundID, err := ensureActiveRound(ctx, tx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO round_deposits (id, round_id, bet_id, user_id, side, amount_cents, odds_snapshot, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())`,
		uuid.NewString(), roundID, b.ID, userID, b.Side, amountCents, odds,
	); err != nil {
		return nil, nil, err
	}
	if err = bumpRoundPool(ctx, tx, roundID, side, amountCents); err != nil {
		return nil, nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, err
	}
	return b, &pl, nil
}

// CancelBet desfaz uma aposta PENDING espelhando o aceite ao contrário:
// devolve o stake dos totais do pool e do round na mesma transação.
// O lock na linha do match serializa o cancelamento contra a liquidação: depois
// que o match sai de LIVE, nenhum stake sai do pool por aqui.
func (p *Postgres) CancelBet(ctx context.Context, betID string) (*Pool, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var b Bet
	err = tx.QueryRowContext(ctx, `
		SELECT id, match_id, side, amount_cents, status FROM bets WHERE id=$1 FOR UPDATE`, betID,
	).Scan(&b.ID, &b.MatchID, &b.Side, &b.AmountCents, &b.Status)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if b.Status != BetPending {
		return nil, ErrBetNotPending
	}

	var matchStatus string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM matches WHERE id=$1 FOR UPDATE`, b.MatchID).Scan(&matchStatus)
	if err != nil {
		return nil, err
	}
	if matchStatus != MatchLive && matchStatus != MatchUpcoming {
		return nil, ErrMatchClosed
	}

	var pl Pool
	err = tx.QueryRowContext(ctx, `
		SELECT id, match_id, pool_a_cents, pool_b_cents, total_pool_cents, house_fee_bps, updated_at
		FROM bet_pools WHERE match_id=$1 FOR UPDATE`, b.MatchID,
	).Scan(&pl.ID, &pl.MatchID, &pl.PoolACents, &pl.PoolBCents, &pl.TotalPoolCents, &pl.HouseFeeBps, &pl.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE bets SET status=$1 WHERE id=$2`, BetCancelled, betID); err != nil {
		return nil, err
	}

	if b.Side == string(parimutuel.SideA) {
		pl.PoolACents -= b.AmountCents
	} else {
		pl.PoolBCents -= b.AmountCents
	}
	pl.TotalPoolCents -= b.AmountCents
	pl.UpdatedAt = time.Now().UTC()

	if _, err = tx.ExecContext(ctx, `
		UPDATE bet_pools SET pool_a_cents=$1, pool_b_cents=$2, total_pool_cents=$3, updated_at=$4 WHERE id=$5`,
		pl.PoolACents, pl.PoolBCents, pl.TotalPoolCents, pl.UpdatedAt, pl.ID,
	); err != nil {
		return nil, err
	}

	// remove a projeção do round, se a aposta caiu em algum
	var roundID string
	err = tx.QueryRowContext(ctx, `SELECT round_id FROM round_deposits WHERE bet_id=$1`, betID).Scan(&roundID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err == nil {
		if _, err = tx.ExecContext(ctx, `DELETE FROM round_deposits WHERE bet_id=$1`, betID); err != nil {
			return nil, err
		}
		if err = bumpRoundPool(ctx, tx, roundID, parimutuel.Side(b.Side), -b.AmountCents); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return &pl, nil
}

// ListBets retorna apostas filtradas por usuário e/ou match
func (p *Postgres) ListBets(ctx context.Context, userID, matchID string) ([]Bet, error) {
	q := `
		SELECT id, user_id, match_id, side, amount_cents, odds_snapshot, status, payout_cents, tx_signature, created_at
		FROM bets WHERE 1=1`
	args := []any{}
	if userID != "" {
		args = append(args, userID)
		q += ` AND user_id=$1`
	}
	if matchID != "" {
		args = append(args, matchID)
		if len(args) == 1 {
			q += ` AND match_id=$1`
		} else {
			q += ` AND match_id=$2`
		}
	}
	q += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bet
	for rows.Next() {
		var b Bet
		var sig sql.NullString
		if err := rows.Scan(&b.ID, &b.UserID, &b.MatchID, &b.Side, &b.AmountCents, &b.OddsSnapshot,
			&b.Status, &b.PayoutCents, &sig, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.TxSignature = sig.String
		out = append(out, b)
	}
	return out, rows.Err()
}

// ActiveRound retorna o round ativo de um match e seus depósitos,
// abrindo um round novo se não houver nenhum ativo
func (p *Postgres) ActiveRound(ctx context.Context, matchID string) (*Round, []RoundDeposit, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	roundID, err := ensureActiveRound(ctx, tx, matchID)
	if err != nil {
		return nil, nil, err
	}

	var r Round
	err = tx.QueryRowContext(ctx, `
		SELECT id, match_id, round_number, start_at, end_at, status, final_pnl_a, final_pnl_b,
		       winner_wallet_id, pool_a_cents, pool_b_cents, total_pool_cents
		FROM rounds WHERE id=$1`, roundID,
	).Scan(&r.ID, &r.MatchID, &r.RoundNumber, &r.StartAt, &r.EndAt, &r.Status, &r.FinalPnlA, &r.FinalPnlB,
		&r.WinnerWalletID, &r.PoolACents, &r.PoolBCents, &r.TotalPoolCents)
	if err != nil {
		return nil, nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, round_id, bet_id, user_id, side, amount_cents, odds_snapshot, created_at
		FROM round_deposits WHERE round_id=$1 ORDER BY created_at`, roundID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var deps []RoundDeposit
	for rows.Next() {
		var d RoundDeposit
		if err := rows.Scan(&d.ID, &d.RoundID, &d.BetID, &d.UserID, &d.Side, &d.AmountCents, &d.OddsSnapshot, &d.CreatedAt); err != nil {
			return nil, nil, err
		}
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &r, deps, nil
}

// GetStats retorna a projeção de PnL mantida pelo stats-sync
func (p *Postgres) GetStats(ctx context.Context, matchID string) (*MatchStats, error) {
	var s MatchStats
	err := p.db.QueryRowContext(ctx, `
		SELECT match_id, portfolio_value_a, portfolio_value_b, pnl_a, pnl_b, daily_pnl_a, daily_pnl_b,
		       trades_24h_a, trades_24h_b, updated_at
		FROM match_stats WHERE match_id=$1`, matchID,
	).Scan(&s.MatchID, &s.PortfolioValueA, &s.PortfolioValueB, &s.PnlA, &s.PnlB, &s.DailyPnlA, &s.DailyPnlB,
		&s.Trades24hA, &s.Trades24hB, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ensureActiveRound devolve o round ativo do match, criando o próximo
// (round_number sequencial) quando não existe nenhum
func ensureActiveRound(ctx context.Context, tx *sql.Tx, matchID string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM rounds WHERE match_id=$1 AND status=$2 ORDER BY created_at DESC LIMIT 1`,
		matchID, RoundActive).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	var next int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(round_number),0)+1 FROM rounds WHERE match_id=$1`, matchID).Scan(&next); err != nil {
		return "", err
	}

	id = uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rounds (id, match_id, round_number, start_at, status, pool_a_cents, pool_b_cents, total_pool_cents, created_at)
		VALUES ($1,$2,$3,NOW(),$4,0,0,0,NOW())`,
		id, matchID, next, RoundActive,
	); err != nil {
		return "", err
	}
	return id, nil
}

// bumpRoundPool incrementa (ou decrementa, com delta negativo) os pools do round
func bumpRoundPool(ctx context.Context, tx *sql.Tx, roundID string, side parimutuel.Side, delta int64) error {
	col := "pool_b_cents"
	if side == parimutuel.SideA {
		col = "pool_a_cents"
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE rounds SET `+col+` = `+col+` + $1, total_pool_cents = total_pool_cents + $1 WHERE id=$2`,
		delta, roundID)
	return err
}
