package dto

import (
	"time"

	"github.com/lobsterbattle/wallet-battle-poc/internal/match-service/repo"
	"github.com/lobsterbattle/wallet-battle-poc/internal/parimutuel"
)

type PlaceBetResponse struct {
	Bet  *repo.Bet  `json:"bet"`
	Pool *repo.Pool `json:"pool"`
}

type MatchResponse struct {
	Match *repo.Match      `json:"match"`
	Pool  *repo.Pool       `json:"pool,omitempty"`
	Stats *repo.MatchStats `json:"stats,omitempty"`
}

// OddsResponse carrega as duas precificações do match: a do pool (usada pra
// travar apostas) e a viva por PnL diário (usada pra exibição in-round)
type OddsResponse struct {
	MatchID        string            `json:"matchId"`
	Pool           parimutuel.Quote  `json:"pool"`
	Live           *parimutuel.Quote `json:"live,omitempty"`
	PoolACents     int64             `json:"poolACents"`
	PoolBCents     int64             `json:"poolBCents"`
	TotalPoolCents int64             `json:"totalPoolCents"`
	HouseFeeBps    int               `json:"houseFeeBps"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

type RoundResponse struct {
	Round    *repo.Round         `json:"round"`
	Deposits []repo.RoundDeposit `json:"deposits"`
}

type BetListResponse struct {
	Bets []repo.Bet `json:"bets"`
}
