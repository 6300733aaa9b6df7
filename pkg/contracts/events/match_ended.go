package events

import "time"

// Evento emitido pelo stats-sync-worker quando um match expira.
// O settlement-worker consome esse evento pra liquidar o pool.
type MatchEnded struct {
	MatchID        string    `json:"match_id"`
	WinnerWalletID string    `json:"winner_wallet_id"`
	WinnerSide     string    `json:"winner_side"` // "A" | "B"
	FinalPnlA      float64   `json:"final_pnl_a"`
	FinalPnlB      float64   `json:"final_pnl_b"`
	Ts             time.Time `json:"ts"`
}
