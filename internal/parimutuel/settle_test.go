package parimutuel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stakesFixture() []Stake {
	// 3 apostas em A (10, 20, 30) e 2 em B (15, 25), valores em centavos
	return []Stake{
		{BetID: "b1", UserID: "u1", Side: SideA, AmountCents: 1000},
		{BetID: "b2", UserID: "u2", Side: SideA, AmountCents: 2000},
		{BetID: "b3", UserID: "u3", Side: SideA, AmountCents: 3000},
		{BetID: "b4", UserID: "u4", Side: SideB, AmountCents: 1500},
		{BetID: "b5", UserID: "u5", Side: SideB, AmountCents: 2500},
	}
}

func TestSettle_ProportionalPayouts(t *testing.T) {
	st, err := Settle(stakesFixture(), SideA, 250)
	require.NoError(t, err)

	assert.Equal(t, int64(10000), st.TotalPoolCents)
	assert.Equal(t, int64(6000), st.WinningPoolCents)
	assert.Equal(t, int64(250), st.HouseFeeCents)
	assert.Equal(t, int64(9750), st.PayoutPoolCents)

	require.Len(t, st.Payouts, 3)
	// (1000/6000)*9750 = 1625
	assert.Equal(t, int64(1625), st.Payouts[0].AmountCents)
	assert.Equal(t, int64(3250), st.Payouts[1].AmountCents)
	assert.Equal(t, int64(4875), st.Payouts[2].AmountCents)
}

func TestSettle_Conservation(t *testing.T) {
	// soma(payouts) + taxa == pool total, exato em centavos,
	// inclusive quando a divisão não é redonda
	cases := [][]Stake{
		stakesFixture(),
		{
			{BetID: "b1", Side: SideA, AmountCents: 1},
			{BetID: "b2", Side: SideA, AmountCents: 1},
			{BetID: "b3", Side: SideA, AmountCents: 1},
			{BetID: "b4", Side: SideB, AmountCents: 100},
		},
		{
			{BetID: "b1", Side: SideA, AmountCents: 333},
			{BetID: "b2", Side: SideA, AmountCents: 667},
			{BetID: "b3", Side: SideB, AmountCents: 999},
			{BetID: "b4", Side: SideB, AmountCents: 1},
		},
		{
			{BetID: "b1", Side: SideB, AmountCents: 7777},
		},
	}

	for _, stakes := range cases {
		for _, winner := range []Side{SideA, SideB} {
			st, err := Settle(stakes, winner, 250)
			if err == ErrNoWinningBets {
				continue
			}
			require.NoError(t, err)

			var paid int64
			for _, p := range st.Payouts {
				paid += p.AmountCents
			}
			assert.Equal(t, st.PayoutPoolCents, paid)
			assert.Equal(t, st.TotalPoolCents, paid+st.HouseFeeCents)
		}
	}
}

func TestSettle_RemainderGoesToFirstWinners(t *testing.T) {
	stakes := []Stake{
		{BetID: "b1", Side: SideA, AmountCents: 1},
		{BetID: "b2", Side: SideA, AmountCents: 1},
		{BetID: "b3", Side: SideA, AmountCents: 1},
		{BetID: "b4", Side: SideB, AmountCents: 97},
	}
	// total=100, fee=2, payoutPool=98; 98/3 => 32 cada + resto 2
	st, err := Settle(stakes, SideA, 250)
	require.NoError(t, err)

	assert.Equal(t, int64(33), st.Payouts[0].AmountCents)
	assert.Equal(t, int64(33), st.Payouts[1].AmountCents)
	assert.Equal(t, int64(32), st.Payouts[2].AmountCents)
}

func TestSettle_Deterministic(t *testing.T) {
	a, err := Settle(stakesFixture(), SideB, 250)
	require.NoError(t, err)
	b, err := Settle(stakesFixture(), SideB, 250)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSettle_NoWinningBets(t *testing.T) {
	stakes := []Stake{
		{BetID: "b1", Side: SideA, AmountCents: 5000},
	}
	_, err := Settle(stakes, SideB, 250)
	assert.ErrorIs(t, err, ErrNoWinningBets)

	// pool completamente vazio cai no mesmo caso
	_, err = Settle(nil, SideA, 250)
	assert.ErrorIs(t, err, ErrNoWinningBets)
}

func TestSettle_InvalidSide(t *testing.T) {
	_, err := Settle(stakesFixture(), Side("C"), 250)
	assert.ErrorIs(t, err, ErrInvalidSide)
}

func TestSettle_ZeroFee(t *testing.T) {
	st, err := Settle(stakesFixture(), SideA, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.HouseFeeCents)
	assert.Equal(t, st.TotalPoolCents, st.PayoutPoolCents)
}
