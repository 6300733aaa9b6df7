package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/lobsterbattle/wallet-battle-poc/internal/parimutuel"
	"github.com/lobsterbattle/wallet-battle-poc/internal/settlement-worker/engine"
)

// Postgres implementa engine.Repo sobre o banco principal
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// GetMatchForSettlement carrega o estado do match com fee do pool e PnL final
func (p *Postgres) GetMatchForSettlement(ctx context.Context, matchID string) (*engine.MatchInfo, error) {
	var info engine.MatchInfo
	var winner sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT m.id, m.status, m.wallet_a_id, m.wallet_b_id, m.winner_wallet_id,
		       COALESCE(s.pnl_a, 0), COALESCE(s.pnl_b, 0), bp.house_fee_bps
		FROM matches m
		JOIN bet_pools bp ON bp.match_id = m.id
		LEFT JOIN match_stats s ON s.match_id = m.id
		WHERE m.id=$1`, matchID,
	).Scan(&info.ID, &info.Status, &info.WalletAID, &info.WalletBID, &winner,
		&info.FinalPnlA, &info.FinalPnlB, &info.HouseFeeBps)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	info.WinnerWalletID = winner.String
	return &info, nil
}

// ListActiveStakes retorna as apostas PENDING em ordem de criação.
// Apostas CANCELLED já saíram dos totais do pool e ficam fora da liquidação.
func (p *Postgres) ListActiveStakes(ctx context.Context, matchID string) ([]parimutuel.Stake, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, side, amount_cents FROM bets
		WHERE match_id=$1 AND status='PENDING'
		ORDER BY created_at, id`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []parimutuel.Stake
	for rows.Next() {
		var st parimutuel.Stake
		var side string
		if err := rows.Scan(&st.BetID, &st.UserID, &side, &st.AmountCents); err != nil {
			return nil, err
		}
		st.Side = parimutuel.Side(side)
		out = append(out, st)
	}
	return out, rows.Err()
}

// ApplySettlement grava a liquidação inteira numa transação única.
// A transição de status é um compare-and-set: se outro worker liquidou no
// meio do caminho, nada é pago e ErrAlreadySettled sobe.
func (p *Postgres) ApplySettlement(ctx context.Context, info *engine.MatchInfo, st parimutuel.Settlement) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE matches SET status='SETTLED' WHERE id=$1 AND status <> 'SETTLED'`, info.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.ErrAlreadySettled
	}

	// o predicado de status protege contra um cancelamento que commitou entre a
	// leitura dos stakes e este apply: pagar uma aposta cancelada criaria
	// dinheiro do nada. A transação falha inteira e o retry recalcula do zero.
	for _, payout := range st.Payouts {
		res, perr := tx.ExecContext(ctx, `
			UPDATE bets SET status='SETTLED', payout_cents=$1 WHERE id=$2 AND status='PENDING'`,
			payout.AmountCents, payout.BetID,
		)
		if perr != nil {
			return perr
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return fmt.Errorf("bet %s no longer pending, settlement aborted", payout.BetID)
		}
	}

	// perdedoras: tudo que ainda está PENDING recebe payout zero
	if _, err = tx.ExecContext(ctx, `
		UPDATE bets SET status='SETTLED', payout_cents=0 WHERE match_id=$1 AND status='PENDING'`, info.ID,
	); err != nil {
		return err
	}

	settlementID := uuid.NewString()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO settlements (id, match_id, final_pnl_a, final_pnl_b, winner_wallet_id,
		                         total_pool_cents, house_fee_cents, payout_pool_cents, settled_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())`,
		settlementID, info.ID, info.FinalPnlA, info.FinalPnlB, info.WinnerWalletID,
		st.TotalPoolCents, st.HouseFeeCents, st.PayoutPoolCents,
	); err != nil {
		return err
	}

	for _, payout := range st.Payouts {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO payout_ledger (id, settlement_id, bet_id, user_id, amount_cents, created_at)
			VALUES ($1,$2,$3,$4,$5,NOW())`,
			uuid.NewString(), settlementID, payout.BetID, payout.UserID, payout.AmountCents,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}
