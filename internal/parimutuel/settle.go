package parimutuel

import "errors"

var (
	// ErrNoWinningBets indica que ninguém apostou no lado vencedor.
	// O engine não distribui nada nesse caso — o erro sobe pro operador decidir.
	ErrNoWinningBets = errors.New("no winning bets")

	// ErrInvalidSide indica lado vencedor desconhecido
	ErrInvalidSide = errors.New("invalid winning side")
)

// Stake é uma aposta aceita e não cancelada, vista pelo engine de liquidação
type Stake struct {
	BetID       string
	UserID      string
	Side        Side
	AmountCents int64
}

// Payout é a fatia do pool devida a uma aposta vencedora
type Payout struct {
	BetID       string
	UserID      string
	AmountCents int64
}

// Settlement é o resultado completo de uma liquidação.
// Invariante: HouseFeeCents + soma(Payouts) == TotalPoolCents, exato em centavos.
type Settlement struct {
	Winner           Side
	TotalPoolCents   int64
	WinningPoolCents int64
	HouseFeeCents    int64
	PayoutPoolCents  int64
	Payouts          []Payout
}

// Settle distribui o pool coletado (menos a taxa da casa) proporcionalmente
// entre as apostas do lado vencedor. Aritmética inteira em centavos: a divisão
// trunca por aposta e os centavos de resto são distribuídos um a um na ordem
// de entrada, garantindo conservação exata do pool.
func Settle(stakes []Stake, winner Side, houseFeeBps int) (Settlement, error) {
	if !winner.Valid() {
		return Settlement{}, ErrInvalidSide
	}

	var totalPool, winningPool int64
	for _, st := range stakes {
		totalPool += st.AmountCents
		if st.Side == winner {
			winningPool += st.AmountCents
		}
	}

	if winningPool == 0 {
		return Settlement{}, ErrNoWinningBets
	}

	houseFee := totalPool * int64(houseFeeBps) / 10000
	payoutPool := totalPool - houseFee

	out := Settlement{
		Winner:           winner,
		TotalPoolCents:   totalPool,
		WinningPoolCents: winningPool,
		HouseFeeCents:    houseFee,
		PayoutPoolCents:  payoutPool,
	}

	var paid int64
	for _, st := range stakes {
		if st.Side != winner {
			continue
		}
		p := st.AmountCents * payoutPool / winningPool
		paid += p
		out.Payouts = append(out.Payouts, Payout{
			BetID:       st.BetID,
			UserID:      st.UserID,
			AmountCents: p,
		})
	}

	// resto do truncamento: sempre menor que o número de vencedores
	remainder := payoutPool - paid
	for i := range out.Payouts {
		if remainder == 0 {
			break
		}
		out.Payouts[i].AmountCents++
		remainder--
	}

	return out, nil
}
