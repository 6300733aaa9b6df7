package events

type BetPlaced struct {
	BetID        string  `json:"bet_id"`
	UserID       string  `json:"user_id"`
	MatchID      string  `json:"match_id"`
	Side         string  `json:"side"` // "A" | "B"
	AmountCents  int64   `json:"amount_cents"`
	OddsSnapshot float64 `json:"odds_snapshot"` // multiplicador travado no aceite
	TxSignature  string  `json:"tx_signature"`  // prova de pagamento verificada pelo caller
	TsUnixMs     int64   `json:"ts_unix_ms"`
}
