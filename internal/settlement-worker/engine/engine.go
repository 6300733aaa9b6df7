package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lobsterbattle/wallet-battle-poc/internal/parimutuel"
)

var (
	// ErrAlreadySettled sinaliza liquidação repetida: no-op seguro, nunca paga duas vezes
	ErrAlreadySettled = errors.New("match already settled")

	// ErrNoWinner indica que o match ainda não tem vencedor determinado
	ErrNoWinner = errors.New("no winner determined")

	// ErrNotFound indica match inexistente
	ErrNotFound = errors.New("match not found")
)

// MatchInfo é o estado mínimo de um match necessário pra liquidar
type MatchInfo struct {
	ID             string
	Status         string
	WalletAID      string
	WalletBID      string
	WinnerWalletID string // vazio enquanto não determinado
	FinalPnlA      float64
	FinalPnlB      float64
	HouseFeeBps    int
}

// Repo define as operações de persistência usadas pelo engine de liquidação
type Repo interface {
	GetMatchForSettlement(ctx context.Context, matchID string) (*MatchInfo, error)

	// ListActiveStakes retorna as apostas PENDING (não canceladas) do match,
	// em ordem determinística de criação
	ListActiveStakes(ctx context.Context, matchID string) ([]parimutuel.Stake, error)

	// ApplySettlement grava o resultado inteiro numa transação única:
	// transição atômica de status pra SETTLED, payout por aposta vencedora,
	// payout zero pras perdedoras, registro de settlement e ledger.
	// Retorna ErrAlreadySettled se outro worker chegou primeiro, e falha sem
	// pagar nada se alguma aposta vencedora saiu de PENDING no meio do caminho
	// (cancelamento concorrente) — o retry recalcula com os stakes atuais.
	ApplySettlement(ctx context.Context, info *MatchInfo, st parimutuel.Settlement) error
}

// Result é o resumo de uma liquidação concluída
type Result struct {
	MatchID    string
	WinnerSide parimutuel.Side
	Settlement parimutuel.Settlement
}

// Engine liquida matches encerrados: distribui o pool (menos taxa) entre os
// vencedores, exatamente uma vez. Esta é a superfície de maior risco do
// sistema inteiro — qualquer erro aqui perde fundos de usuário ou cria valor
// do nada. A conservação do pool é testada direto no parimutuel.Settle.
type Engine struct {
	log  *zap.Logger
	repo Repo
}

func New(log *zap.Logger, repo Repo) *Engine {
	return &Engine{log: log, repo: repo}
}

// Settle executa a liquidação de um match encerrado.
// Idempotente: repetir a chamada devolve ErrAlreadySettled sem nenhum efeito.
func (e *Engine) Settle(ctx context.Context, matchID string) (*Result, error) {
	info, err := e.repo.GetMatchForSettlement(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if info.Status == "SETTLED" {
		return nil, ErrAlreadySettled
	}
	if info.WinnerWalletID == "" {
		return nil, ErrNoWinner
	}

	winner := parimutuel.SideB
	if info.WinnerWalletID == info.WalletAID {
		winner = parimutuel.SideA
	}

	stakes, err := e.repo.ListActiveStakes(ctx, matchID)
	if err != nil {
		return nil, err
	}

	st, err := parimutuel.Settle(stakes, winner, info.HouseFeeBps)
	if err != nil {
		// sem apostas vencedoras não há transferência nenhuma; o erro sobe
		// pro operador em vez de engolir os stakes silenciosamente
		return nil, fmt.Errorf("settle match %s: %w", matchID, err)
	}

	if err := e.repo.ApplySettlement(ctx, info, st); err != nil {
		return nil, err
	}

	e.log.Info("match settled",
		zap.String("matchId", matchID),
		zap.String("winnerSide", string(winner)),
		zap.Int64("totalPoolCents", st.TotalPoolCents),
		zap.Int64("houseFeeCents", st.HouseFeeCents),
		zap.Int64("payoutPoolCents", st.PayoutPoolCents),
		zap.Int("payouts", len(st.Payouts)),
	)

	return &Result{MatchID: matchID, WinnerSide: winner, Settlement: st}, nil
}
