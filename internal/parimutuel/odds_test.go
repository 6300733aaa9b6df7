package parimutuel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromPools_EmptyPool(t *testing.T) {
	q := FromPools(0, 0, 250)

	assert.Equal(t, 2.0, q.OddsA)
	assert.Equal(t, 2.0, q.OddsB)
	assert.Equal(t, 0.5, q.ImpliedProbA)
	assert.Equal(t, 0.5, q.ImpliedProbB)
}

func TestFromPools_KnownScenario(t *testing.T) {
	// poolA=1000, poolB=2000, fee 2.5% => payoutPool=2925
	q := FromPools(100000, 200000, 250)

	assert.InDelta(t, 2.925, q.OddsA, 1e-9)
	assert.InDelta(t, 1.4625, q.OddsB, 1e-9)
	assert.InDelta(t, 1.0/3.0, q.ImpliedProbA, 1e-9)
	assert.InDelta(t, 2.0/3.0, q.ImpliedProbB, 1e-9)
}

func TestFromPools_OneSidedPool(t *testing.T) {
	// ninguém apostou em B: lado vazio fica na odd padrão
	q := FromPools(50000, 0, 250)

	assert.Equal(t, 2.0, q.OddsB)
	assert.Equal(t, 0.0, q.ImpliedProbB)
	// o lado cheio seria 0.975, degenera e bate no piso
	assert.Equal(t, 1.01, q.OddsA)
}

func TestFromPools_Monotonicity(t *testing.T) {
	// aumentar poolA com poolB fixo nunca sobe oddsA nem desce oddsB
	prev := FromPools(10000, 50000, 250)
	for poolA := int64(20000); poolA <= 200000; poolA += 10000 {
		q := FromPools(poolA, 50000, 250)
		assert.LessOrEqual(t, q.OddsA, prev.OddsA)
		assert.GreaterOrEqual(t, q.OddsB, prev.OddsB)
		prev = q
	}
}

func TestFromPools_FloorBound(t *testing.T) {
	for _, tc := range [][2]int64{
		{1, 0},
		{1000000, 1},
		{999999999, 5},
		{77777, 77777},
	} {
		q := FromPools(tc[0], tc[1], 250)
		assert.GreaterOrEqual(t, q.OddsA, 1.01)
		assert.GreaterOrEqual(t, q.OddsB, 1.01)
	}
}

func TestFromPnl_Tie(t *testing.T) {
	for _, x := range []float64{0, 1.5, -3.2, 42.0} {
		q := FromPnl(x, x, 500)
		assert.Equal(t, q.OddsA, q.OddsB)
		assert.Equal(t, q.ImpliedProbA, q.ImpliedProbB)
		// empate com edge de 5%: implied 0.525 de cada lado
		assert.InDelta(t, 0.525, q.ImpliedProbA, 1e-9)
	}
}

func TestFromPnl_KnownScenario(t *testing.T) {
	// diff=3.0 => scaled=min(6.0, 0.35)=0.35 => raw 0.675/0.325
	q := FromPnl(5.0, 2.0, 500)

	assert.InDelta(t, 0.70875, q.ImpliedProbA, 1e-5)
	assert.InDelta(t, 0.34125, q.ImpliedProbB, 1e-5)
	assert.InDelta(t, 1.4109, q.OddsA, 1e-4)
	assert.InDelta(t, 2.9304, q.OddsB, 1e-4)
}

func TestFromPnl_TrailingSideLeads(t *testing.T) {
	q := FromPnl(-1.0, 4.0, 500)
	assert.Greater(t, q.OddsA, q.OddsB)
	assert.Greater(t, q.ImpliedProbB, q.ImpliedProbA)
}

func TestFromPnl_Bounds(t *testing.T) {
	for _, tc := range [][2]float64{
		{100, -100},
		{-50, 60},
		{0.005, 0},
		{12.3, 12.2},
	} {
		q := FromPnl(tc[0], tc[1], 500)
		assert.GreaterOrEqual(t, q.OddsA, 1.10)
		assert.LessOrEqual(t, q.OddsA, 10.0)
		assert.GreaterOrEqual(t, q.OddsB, 1.10)
		assert.LessOrEqual(t, q.OddsB, 10.0)
	}
}

func TestFromPnl_HouseEdgeOverround(t *testing.T) {
	q := FromPnl(3.0, 1.0, 500)
	assert.InDelta(t, 1.05, q.ImpliedProbA+q.ImpliedProbB, 1e-9)
}

func TestSnapshotOdds_FirstBetOnEmptyPool(t *testing.T) {
	// cotação auto-referente: o stake entra no próprio denominador.
	// Primeiro apostador de um pool vazio fica com payoutPool/stake = 0.975,
	// que bate no piso de 1.01.
	odds := SnapshotOdds(0, 0, SideA, 10000, 250)
	assert.Equal(t, 1.01, odds)

	// o lado oposto continua na odd padrão
	q := FromPools(10000, 0, 250)
	assert.Equal(t, 2.0, q.OddsB)
}

func TestSnapshotOdds_MovesAgainstBettor(t *testing.T) {
	before := FromPools(100000, 200000, 250)
	snap := SnapshotOdds(100000, 200000, SideA, 50000, 250)

	// a própria aposta piora o preço em relação ao pool pré-aposta
	assert.Less(t, snap, before.OddsA)
	assert.InDelta(t, 341250.0/150000.0, snap, 1e-9)
}
