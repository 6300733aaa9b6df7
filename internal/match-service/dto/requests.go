package dto

import "time"

type CreateMatchRequest struct {
	WalletAID   string    `json:"walletAId"`
	WalletBID   string    `json:"walletBId"`
	Timeframe   string    `json:"timeframe"` // "DAILY" | "WEEKLY" | "MONTHLY"
	StartAt     time.Time `json:"startAt"`
	EndAt       time.Time `json:"endAt"`
	HouseFeeBps int       `json:"house_fee_bps,omitempty"` // 0 usa o default do serviço
}

type PlaceBetRequest struct {
	UserID      string `json:"userId"`
	MatchID     string `json:"matchId"`
	Side        string `json:"side"` // "A" | "B"
	AmountCents int64  `json:"amount_cents"`
	TxSignature string `json:"tx_signature"` // prova de pagamento já verificada pelo caller
}
