package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lobsterbattle/wallet-battle-poc/internal/parimutuel"
)

// fakeRepo guarda o estado em memória e aplica as mesmas regras de
// atomicidade do repositório real (CAS de status)
type fakeRepo struct {
	info    *MatchInfo
	stakes  []parimutuel.Stake
	applied *parimutuel.Settlement
	applies int

	// simula outro worker liquidando entre o GET e o APPLY
	raceSettled bool

	// simula um cancelamento commitando entre a leitura dos stakes e o APPLY:
	// a aposta some de PENDING e o apply inteiro deve falhar
	cancelledMid map[string]bool
}

func (f *fakeRepo) GetMatchForSettlement(ctx context.Context, matchID string) (*MatchInfo, error) {
	if f.info == nil || f.info.ID != matchID {
		return nil, ErrNotFound
	}
	cp := *f.info
	return &cp, nil
}

func (f *fakeRepo) ListActiveStakes(ctx context.Context, matchID string) ([]parimutuel.Stake, error) {
	return f.stakes, nil
}

func (f *fakeRepo) ApplySettlement(ctx context.Context, info *MatchInfo, st parimutuel.Settlement) error {
	if f.raceSettled || f.info.Status == "SETTLED" {
		return ErrAlreadySettled
	}
	for _, p := range st.Payouts {
		if f.cancelledMid[p.BetID] {
			return fmt.Errorf("bet %s no longer pending, settlement aborted", p.BetID)
		}
	}
	f.info.Status = "SETTLED"
	f.applied = &st
	f.applies++
	return nil
}

func newFake() *fakeRepo {
	return &fakeRepo{
		info: &MatchInfo{
			ID:             "m1",
			Status:         "ENDED",
			WalletAID:      "wa",
			WalletBID:      "wb",
			WinnerWalletID: "wa",
			HouseFeeBps:    250,
		},
		stakes: []parimutuel.Stake{
			{BetID: "b1", UserID: "u1", Side: parimutuel.SideA, AmountCents: 1000},
			{BetID: "b2", UserID: "u2", Side: parimutuel.SideA, AmountCents: 2000},
			{BetID: "b3", UserID: "u3", Side: parimutuel.SideA, AmountCents: 3000},
			{BetID: "b4", UserID: "u4", Side: parimutuel.SideB, AmountCents: 1500},
			{BetID: "b5", UserID: "u5", Side: parimutuel.SideB, AmountCents: 2500},
		},
	}
}

func TestEngine_Settle(t *testing.T) {
	f := newFake()
	e := New(zap.NewNop(), f)

	res, err := e.Settle(context.Background(), "m1")
	require.NoError(t, err)

	assert.Equal(t, parimutuel.SideA, res.WinnerSide)
	assert.Equal(t, int64(10000), res.Settlement.TotalPoolCents)
	assert.Equal(t, int64(250), res.Settlement.HouseFeeCents)
	require.Len(t, res.Settlement.Payouts, 3)
	assert.Equal(t, int64(1625), res.Settlement.Payouts[0].AmountCents)

	// conservação: pagos + taxa == pool total
	var paid int64
	for _, p := range res.Settlement.Payouts {
		paid += p.AmountCents
	}
	assert.Equal(t, res.Settlement.TotalPoolCents, paid+res.Settlement.HouseFeeCents)
	assert.Equal(t, 1, f.applies)
}

func TestEngine_Settle_WinnerSideB(t *testing.T) {
	f := newFake()
	f.info.WinnerWalletID = "wb"
	e := New(zap.NewNop(), f)

	res, err := e.Settle(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, parimutuel.SideB, res.WinnerSide)
	require.Len(t, res.Settlement.Payouts, 2)
}

func TestEngine_Settle_Idempotent(t *testing.T) {
	f := newFake()
	e := New(zap.NewNop(), f)

	first, err := e.Settle(context.Background(), "m1")
	require.NoError(t, err)

	// segunda chamada: sinal explícito, nenhum pagamento a mais
	_, err = e.Settle(context.Background(), "m1")
	assert.ErrorIs(t, err, ErrAlreadySettled)
	assert.Equal(t, 1, f.applies)
	assert.Equal(t, first.Settlement, *f.applied)
}

func TestEngine_Settle_RaceOnApply(t *testing.T) {
	// o GET ainda vê ENDED, mas outro worker liquida antes do APPLY: o CAS segura
	f := newFake()
	f.raceSettled = true
	e := New(zap.NewNop(), f)

	_, err := e.Settle(context.Background(), "m1")
	assert.ErrorIs(t, err, ErrAlreadySettled)
	assert.Zero(t, f.applies)
}

func TestEngine_Settle_CancelDuringSettlement(t *testing.T) {
	// uma aposta vencedora é cancelada depois da leitura dos stakes: o apply
	// falha inteiro em vez de pagar refund + payout pra mesma aposta
	f := newFake()
	f.cancelledMid = map[string]bool{"b2": true}
	e := New(zap.NewNop(), f)

	_, err := e.Settle(context.Background(), "m1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadySettled)
	assert.Zero(t, f.applies)
	assert.Equal(t, "ENDED", f.info.Status)

	// retry sem a aposta cancelada: liquida normal e o pool restante confere
	f.cancelledMid = nil
	f.stakes = []parimutuel.Stake{
		{BetID: "b1", UserID: "u1", Side: parimutuel.SideA, AmountCents: 1000},
		{BetID: "b3", UserID: "u3", Side: parimutuel.SideA, AmountCents: 3000},
		{BetID: "b4", UserID: "u4", Side: parimutuel.SideB, AmountCents: 1500},
		{BetID: "b5", UserID: "u5", Side: parimutuel.SideB, AmountCents: 2500},
	}
	res, err := e.Settle(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, int64(8000), res.Settlement.TotalPoolCents)

	var paid int64
	for _, p := range res.Settlement.Payouts {
		paid += p.AmountCents
	}
	assert.Equal(t, res.Settlement.TotalPoolCents, paid+res.Settlement.HouseFeeCents)
}

func TestEngine_Settle_NoWinner(t *testing.T) {
	f := newFake()
	f.info.WinnerWalletID = ""
	e := New(zap.NewNop(), f)

	_, err := e.Settle(context.Background(), "m1")
	assert.ErrorIs(t, err, ErrNoWinner)
	assert.Zero(t, f.applies)
}

func TestEngine_Settle_NoWinningBets(t *testing.T) {
	f := newFake()
	f.info.WinnerWalletID = "wb"
	f.stakes = []parimutuel.Stake{
		{BetID: "b1", UserID: "u1", Side: parimutuel.SideA, AmountCents: 5000},
	}
	e := New(zap.NewNop(), f)

	// ninguém apostou no vencedor: erro reportável, nenhuma transferência
	_, err := e.Settle(context.Background(), "m1")
	assert.ErrorIs(t, err, parimutuel.ErrNoWinningBets)
	assert.Zero(t, f.applies)
	assert.Equal(t, "ENDED", f.info.Status)
}

func TestEngine_Settle_NotFound(t *testing.T) {
	e := New(zap.NewNop(), &fakeRepo{})
	_, err := e.Settle(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
