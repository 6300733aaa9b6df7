package parimutuel

import "math"

// Side identifica o lado da aposta em uma batalha de carteiras
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// Valid informa se o lado é um dos dois lados conhecidos
func (s Side) Valid() bool { return s == SideA || s == SideB }

const (
	// odds padrão quando o pool ainda não tem informação nenhuma
	defaultOdds = 2.0

	// piso das odds baseadas em pool; evita valores degenerados perto de zero
	minPoolOdds = 1.01

	// limites das odds baseadas em PnL
	minPnlOdds = 1.10
	maxPnlOdds = 10.0

	// diferença de PnL abaixo disso é tratada como empate
	pnlTieWindow = 0.01

	// teto do swing de probabilidade causado pela diferença de PnL
	pnlSwingCap = 0.35
)

// Quote é o par de odds decimais e probabilidades implícitas de um match.
// A soma das probabilidades implícitas excede 1.0 — essa é a margem da casa.
type Quote struct {
	OddsA        float64 `json:"oddsA"`
	OddsB        float64 `json:"oddsB"`
	ImpliedProbA float64 `json:"impliedProbA"`
	ImpliedProbB float64 `json:"impliedProbB"`
}

// FromPools converte os totais acumulados de cada lado em odds de pagamento.
// Pool vazio retorna 2.0/2.0 com probabilidades 0.5/0.5.
// Função pura e determinística: é usada tanto pra precificar a aposta na
// submissão quanto pra exibir retorno potencial na UI.
func FromPools(poolACents, poolBCents int64, houseFeeBps int) Quote {
	total := poolACents + poolBCents
	if total == 0 {
		return Quote{
			OddsA:        defaultOdds,
			OddsB:        defaultOdds,
			ImpliedProbA: 0.5,
			ImpliedProbB: 0.5,
		}
	}

	payoutPool := float64(total) * (1 - float64(houseFeeBps)/10000)

	oddsA := defaultOdds
	if poolACents > 0 {
		oddsA = payoutPool / float64(poolACents)
	}
	oddsB := defaultOdds
	if poolBCents > 0 {
		oddsB = payoutPool / float64(poolBCents)
	}

	return Quote{
		OddsA:        math.Max(minPoolOdds, oddsA),
		OddsB:        math.Max(minPoolOdds, oddsB),
		ImpliedProbA: float64(poolACents) / float64(total),
		ImpliedProbB: float64(poolBCents) / float64(total),
	}
}

// FromPnl precifica o match pelo desempenho diário das duas carteiras,
// independente dos stakes — as odds se mexem antes de qualquer aposta.
// A diferença de PnL é escalada (x2) e limitada em 0.35 pra nunca gerar
// odds absurdas; as probabilidades são normalizadas pra somar 1 + edge.
func FromPnl(pnlA, pnlB float64, houseEdgeBps int) Quote {
	diff := pnlA - pnlB

	var rawProbA, rawProbB float64
	if math.Abs(diff) < pnlTieWindow {
		rawProbA, rawProbB = 0.5, 0.5
	} else {
		scaled := math.Min(math.Abs(diff)*2, pnlSwingCap)
		if pnlA > pnlB {
			rawProbA = 0.5 + scaled/2
			rawProbB = 1 - rawProbA
		} else {
			rawProbB = 0.5 + scaled/2
			rawProbA = 1 - rawProbB
		}
	}

	totalImplied := 1 + float64(houseEdgeBps)/10000
	impliedA := rawProbA / (rawProbA + rawProbB) * totalImplied
	impliedB := rawProbB / (rawProbA + rawProbB) * totalImplied

	return Quote{
		OddsA:        clampOdds(1 / impliedA),
		OddsB:        clampOdds(1 / impliedB),
		ImpliedProbA: impliedA,
		ImpliedProbB: impliedB,
	}
}

func clampOdds(o float64) float64 {
	return math.Max(minPnlOdds, math.Min(maxPnlOdds, o))
}

// SnapshotOdds é a cotação travada pro apostador no momento do aceite.
// Convenção auto-referente: o stake da própria aposta já entra no pool antes
// do cálculo, então cada aposta move o preço levemente contra quem apostou.
func SnapshotOdds(poolACents, poolBCents int64, side Side, amountCents int64, houseFeeBps int) float64 {
	if side == SideA {
		poolACents += amountCents
	} else {
		poolBCents += amountCents
	}
	q := FromPools(poolACents, poolBCents, houseFeeBps)
	if side == SideA {
		return q.OddsA
	}
	return q.OddsB
}
